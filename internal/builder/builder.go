package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qobs-build/cargo-xcode/internal/builder/gen"
	"github.com/qobs-build/cargo-xcode/internal/metadata"
	"github.com/qobs-build/cargo-xcode/internal/msg"
)

const KindAll = "all"

var (
	errUnknownKind = errors.New("unknown target kind")
)

// Options come from the command line and take precedence over the config file
type Options struct {
	ManifestPath string
	OutputDir    string
	ProjectName  string
	ConfigPath   string
	MetadataFile string // read metadata from here instead of running cargo
	Kind         string // KindAll or one of gen.KindBin, gen.KindCdylib, gen.KindStaticlib
	Scripts      gen.ScriptParams
}

// MetadataSource provides cargo package metadata
type MetadataSource interface {
	Query(ctx context.Context, manifestPath string) ([]*metadata.Package, error)
}

type Builder struct {
	opts   Options
	cfg    *Config
	source MetadataSource
}

func NewBuilder(opts Options) (*Builder, error) {
	configDir := "."
	if opts.ManifestPath != "" {
		configDir = filepath.Dir(opts.ManifestPath)
	}
	configDir, err := filepath.Abs(configDir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(opts.ConfigPath, configDir, NewConfigEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := kindFilter(opts.Kind); err != nil {
		return nil, err
	}

	runner := metadata.NewRunner()
	if msg.IsVerbose() {
		runner.Stderr = &msg.IndentWriter{Indent: "    ", W: msg.Out}
	}

	return &Builder{opts: opts, cfg: cfg, source: runner}, nil
}

// NewBuilderWithConfig skips config file discovery
func NewBuilderWithConfig(opts Options, cfg *Config, source MetadataSource) *Builder {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Builder{opts: opts, cfg: cfg, source: source}
}

func kindFilter(kind string) (gen.KindFilter, error) {
	switch kind {
	case "", KindAll:
		return nil, nil
	case gen.KindBin, gen.KindCdylib, gen.KindStaticlib:
		return gen.OnlyKind(kind), nil
	default:
		return nil, fmt.Errorf("%w %q", errUnknownKind, kind)
	}
}

func (b *Builder) packages(ctx context.Context) ([]*metadata.Package, error) {
	if b.opts.MetadataFile != "" {
		return metadata.Load(b.opts.MetadataFile)
	}
	return b.source.Query(ctx, b.opts.ManifestPath)
}

func (b *Builder) genOptions() (gen.Options, error) {
	kinds, err := kindFilter(b.opts.Kind)
	if err != nil {
		return gen.Options{}, err
	}

	outputDir := b.opts.OutputDir
	if outputDir == "" {
		outputDir = b.cfg.OutputDir()
	}
	if outputDir != "" {
		if outputDir, err = filepath.Abs(outputDir); err != nil {
			return gen.Options{}, err
		}
	}

	projectName := b.opts.ProjectName
	if projectName == "" {
		projectName = b.cfg.Project.Name
	}

	return gen.Options{
		OutputDir:    outputDir,
		ProjectName:  projectName,
		Features:     b.cfg.Project.Features,
		Kinds:        kinds,
		TargetFilter: b.cfg.MatchTarget,
		Scripts:      b.opts.Scripts,
	}, nil
}

// Generate writes one Xcode project per eligible package and returns the written .xcodeproj paths.
// Packages without bin, cdylib or staticlib targets are skipped, so the result may be empty.
func (b *Builder) Generate(ctx context.Context) ([]string, error) {
	packages, err := b.packages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cargo metadata: %w", err)
	}

	opts, err := b.genOptions()
	if err != nil {
		return nil, err
	}

	var written []string
	for _, pkg := range packages {
		ok, err := b.cfg.MatchPackage(pkg)
		if err != nil {
			return written, err
		}
		if !ok {
			msg.Verbose("skipping package %s: excluded by [filter] packages", pkg.Name)
			continue
		}

		g := gen.NewXcodeGen(pkg, opts)
		if len(g.Targets()) == 0 {
			msg.Verbose("skipping package %s: no bin, cdylib or staticlib targets", pkg.Name)
			continue
		}

		if opts.ProjectName != "" && len(written) > 0 {
			msg.Warn("project name %q is used for more than one package, %s overwrites the previous project", opts.ProjectName, pkg.Name)
		}

		projectDir, err := WritePackage(g)
		if err != nil {
			return written, fmt.Errorf("package %s: %w", pkg.Name, err)
		}
		written = append(written, projectDir)
	}

	return written, nil
}

// WritePackage renders the project of g and writes it to disk, returning the .xcodeproj path
func WritePackage(g *gen.XcodeGen) (string, error) {
	data, err := g.Generate()
	if err != nil {
		return "", err
	}
	for _, t := range g.Targets() {
		msg.Verbose("%s: %s -> %s", g.ProjectName(), t.Name(), t.XcodeFileName)
	}
	if err := writeFileAtomic(g.BuildFile(), []byte(data)); err != nil {
		return "", err
	}
	return g.ProjectDir(), nil
}

// writeFileAtomic replaces path in one step, so readers see either the old or the new file
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
