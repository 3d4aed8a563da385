package gen

import (
	"fmt"
	"path/filepath"

	"github.com/qobs-build/cargo-xcode/internal/metadata"
)

const (
	projectExt  = ".xcodeproj"
	pbxprojName = "project.pbxproj"
)

// Options tune project generation for one package
type Options struct {
	// OutputDir receives the .xcodeproj. Empty means the directory of Cargo.toml.
	// Must be absolute when set, because the manifest reference is made relative to it.
	OutputDir   string
	ProjectName string // defaults to the package name
	Features    []string
	Kinds       KindFilter
	// TargetFilter selects cargo targets by name. nil accepts all.
	TargetFilter func(name string) bool
	Scripts      ScriptParams
}

// XcodeGen generates the Xcode project of a single cargo package
type XcodeGen struct {
	pkg     *metadata.Package
	opts    Options
	ids     IDAllocator
	targets []Target
}

func NewXcodeGen(pkg *metadata.Package, opts Options) *XcodeGen {
	cargoTargets := pkg.Targets
	if opts.TargetFilter != nil {
		cargoTargets = nil
		for _, t := range pkg.Targets {
			if opts.TargetFilter(t.Name) {
				cargoTargets = append(cargoTargets, t)
			}
		}
	}

	return &XcodeGen{
		pkg:     pkg,
		opts:    opts,
		ids:     NewIDAllocator(pkg.ID),
		targets: ClassifyTargets(cargoTargets, opts.Kinds),
	}
}

// Targets returns the Xcode products this package turns into. Empty means there is nothing to generate.
func (g *XcodeGen) Targets() []Target { return g.targets }

func (g *XcodeGen) ProjectName() string {
	if g.opts.ProjectName != "" {
		return g.opts.ProjectName
	}
	return g.pkg.Name
}

// ProjectDir is the path of the .xcodeproj directory
func (g *XcodeGen) ProjectDir() string {
	dir := g.opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(g.pkg.ManifestPath)
	}
	return filepath.Join(dir, g.ProjectName()+projectExt)
}

// BuildFile is the path of the generated project.pbxproj
func (g *XcodeGen) BuildFile() string {
	return filepath.Join(g.ProjectDir(), pbxprojName)
}

func (g *XcodeGen) manifestRef() (string, error) {
	if g.opts.OutputDir == "" {
		return "Cargo.toml", nil
	}
	// saved metadata may carry a manifest path relative to the working directory
	manifest, err := filepath.Abs(g.pkg.ManifestPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(g.opts.OutputDir, manifest)
	if err != nil {
		return "", fmt.Errorf("locating %s from %s: %w", g.pkg.ManifestPath, g.opts.OutputDir, err)
	}
	return filepath.ToSlash(rel), nil
}

// Project assembles the object graph
func (g *XcodeGen) Project() (*Project, error) {
	manifest, err := g.manifestRef()
	if err != nil {
		return nil, err
	}
	info := ProjectInfo{
		Name:         g.pkg.Name,
		Version:      g.pkg.Version,
		ManifestPath: manifest,
		Features:     g.opts.Features,
		Scripts:      g.opts.Scripts,
	}
	return AssembleProject(g.ids, info, g.targets), nil
}

// Generate returns the contents of project.pbxproj
func (g *XcodeGen) Generate() (string, error) {
	p, err := g.Project()
	if err != nil {
		return "", err
	}
	return Serialize(p), nil
}
