package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pelletier/go-toml/v2"
	"github.com/qobs-build/cargo-xcode/internal/metadata"
)

// ConfigFilename is looked up next to Cargo.toml when no config path is given
const ConfigFilename = "cargo-xcode.toml"

type Config struct {
	Project ProjectSection `toml:"project"`
	Filter  FilterSection  `toml:"filter"`

	basedir        string
	packageProgram *vm.Program
}

// ProjectSection defines the [project] section
type ProjectSection struct {
	Name      string   `toml:"name"`
	OutputDir string   `toml:"output-dir"`
	Features  []string `toml:"features"`
}

// FilterSection defines the [filter] section
type FilterSection struct {
	Packages string   `toml:"packages"`
	Targets  []string `toml:"targets"`
}

// OutputDir returns the configured output directory resolved against the config file's directory
func (c *Config) OutputDir() string {
	if c.Project.OutputDir == "" || filepath.IsAbs(c.Project.OutputDir) {
		return c.Project.OutputDir
	}
	return filepath.Join(c.basedir, c.Project.OutputDir)
}

// PackageEnv is what a [filter] packages expression can see
type PackageEnv struct {
	Name    string   `expr:"name"`
	Version string   `expr:"version"`
	ID      string   `expr:"id"`
	Kinds   []string `expr:"kinds"`
	Targets []string `expr:"targets"`
}

func NewPackageEnv(pkg *metadata.Package) PackageEnv {
	return PackageEnv{
		Name:    pkg.Name,
		Version: pkg.Version.String(),
		ID:      pkg.ID,
		Kinds:   pkg.Kinds(),
		Targets: pkg.TargetNames(),
	}
}

// MatchPackage evaluates the packages expression. Without one every package matches.
func (c *Config) MatchPackage(pkg *metadata.Package) (bool, error) {
	if c.packageProgram == nil {
		return true, nil
	}
	result, err := expr.Run(c.packageProgram, NewPackageEnv(pkg))
	if err != nil {
		return false, fmt.Errorf("failed to run [filter] packages expression for %q: %w", pkg.Name, err)
	}
	matched, _ := result.(bool)
	return matched, nil
}

// MatchTarget reports whether a cargo target name matches one of the target patterns.
// Without patterns every target matches.
func (c *Config) MatchTarget(name string) bool {
	if len(c.Filter.Targets) == 0 {
		return true
	}
	for _, pattern := range c.Filter.Targets {
		// patterns were validated when parsing
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (c *Config) compile() error {
	for _, pattern := range c.Filter.Targets {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid [filter] targets pattern %q", pattern)
		}
	}
	if strings.TrimSpace(c.Filter.Packages) == "" {
		c.packageProgram = nil
		return nil
	}
	program, err := expr.Compile(c.Filter.Packages, expr.Env(PackageEnv{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("failed to compile [filter] packages expression: %w", err)
	}
	c.packageProgram = program
	return nil
}

// mergeStructs merges the fields of the src struct into the dst struct
func mergeStructs(dst, src any) error {
	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Pointer || dstVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dst must be a pointer to a struct")
	}
	dstElem := dstVal.Elem()

	srcVal := reflect.ValueOf(src)
	if srcVal.Kind() == reflect.Pointer {
		srcVal = srcVal.Elem()
	}
	if srcVal.Kind() != reflect.Struct || dstElem.Type() != srcVal.Type() {
		return fmt.Errorf("src must be a %s", dstElem.Type())
	}

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstElem.Field(i)
		if !dstField.CanSet() {
			continue
		}
		switch dstField.Kind() {
		case reflect.Slice:
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
		default:
			if !srcField.IsZero() {
				dstField.Set(srcField)
			}
		}
	}
	return nil
}

func mustMarshal(v any) []byte {
	b, err := toml.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// unmarshalConditionalSection parses a section whose sub-tables may be keyed by a boolean expression,
// e.g. [project.'target_os == "darwin"']. Matching sub-tables are merged over the base fields.
func unmarshalConditionalSection[T any](rawCfg map[string]any, name string, dst *T, env ConfigEnv) error {
	sectionData, ok := rawCfg[name]
	if !ok {
		return nil
	}
	sectionMap, ok := sectionData.(map[string]any)
	if !ok {
		return fmt.Errorf("invalid [%s] section format: expected a table", name)
	}

	baseFields := make(map[string]any)
	conditionalFields := make(map[string]map[string]any)
	for key, val := range sectionMap {
		if subMap, ok := val.(map[string]any); ok {
			conditionalFields[key] = subMap
		} else {
			baseFields[key] = val
		}
	}

	if len(baseFields) > 0 {
		if err := toml.Unmarshal(mustMarshal(baseFields), dst); err != nil {
			return fmt.Errorf("failed to parse [%s] section: %w", name, err)
		}
	}

	// map order is random, keep merges reproducible
	expressions := make([]string, 0, len(conditionalFields))
	for expression := range conditionalFields {
		expressions = append(expressions, expression)
	}
	slices.Sort(expressions)

	for _, expression := range expressions {
		program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
		if err != nil {
			return fmt.Errorf("failed to compile expression for [%s.%q]: %w", name, expression, err)
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("failed to run expression for [%s.%q]: %w", name, expression, err)
		}
		if matched, ok := result.(bool); !ok || !matched {
			continue
		}

		var condSection T
		if err := toml.Unmarshal(mustMarshal(conditionalFields[expression]), &condSection); err != nil {
			return fmt.Errorf("failed to parse conditional section [%s.%q]: %w", name, expression, err)
		}
		if err := mergeStructs(dst, condSection); err != nil {
			return fmt.Errorf("failed to merge conditional section [%s.%q]: %w", name, expression, err)
		}
	}

	return nil
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString replaces every {{...}} expression in s with its result
func evaluateString(s string, env ConfigEnv) (string, error) {
	var evalErr error
	out := exprRegex.ReplaceAllStringFunc(s, func(match string) string {
		if evalErr != nil {
			return match
		}
		expression := strings.TrimSpace(match[2 : len(match)-2])
		result, err := expr.Eval(expression, env)
		if err != nil {
			evalErr = fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
			return match
		}
		return fmt.Sprint(result)
	})
	return out, evalErr
}

// processExpressions recursively walks the parsed TOML data and evaluates expressions in strings
func processExpressions(data any, env ConfigEnv) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			processed, err := processExpressions(val, env)
			if err != nil {
				return nil, err
			}
			v[key] = processed
		}
		return v, nil
	case []any:
		for i, item := range v {
			processed, err := processExpressions(item, env)
			if err != nil {
				return nil, err
			}
			v[i] = processed
		}
		return v, nil
	case string:
		return evaluateString(v, env)
	default:
		return data, nil
	}
}

// ParseConfig parses a cargo-xcode.toml. basedir anchors relative paths in it.
func ParseConfig(rdr io.Reader, basedir string, env ConfigEnv) (*Config, error) {
	var rawConfig map[string]any
	dec := toml.NewDecoder(rdr)
	if err := dec.Decode(&rawConfig); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		return nil, err
	}
	if rawConfig == nil {
		rawConfig = map[string]any{}
	}

	// the packages filter is an expression itself, keep its braces intact
	filter, hasFilter := rawConfig["filter"]
	delete(rawConfig, "filter")

	processed, err := processExpressions(rawConfig, env)
	if err != nil {
		return nil, fmt.Errorf("error processing expressions in config: %w", err)
	}
	rawConfig = processed.(map[string]any)

	cfg := &Config{basedir: basedir}
	if err := unmarshalConditionalSection(rawConfig, "project", &cfg.Project, env); err != nil {
		return nil, err
	}
	if hasFilter {
		if err := toml.Unmarshal(mustMarshal(map[string]any{"filter": filter}), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse [filter] section: %w", err)
		}
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfigFromFile parses a config file; relative paths inside it are relative to its directory
func ParseConfigFromFile(path string, env ConfigEnv) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(bufio.NewReader(f), filepath.Dir(absPath), env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfig reads the config at path, or ConfigFilename in dir when path is empty.
// A missing default config is not an error and yields an empty Config.
func LoadConfig(path, dir string, env ConfigEnv) (*Config, error) {
	if path != "" {
		return ParseConfigFromFile(path, env)
	}
	defaultPath := filepath.Join(dir, ConfigFilename)
	if _, err := os.Stat(defaultPath); errors.Is(err, os.ErrNotExist) {
		return &Config{basedir: dir}, nil
	}
	return ParseConfigFromFile(defaultPath, env)
}

// ConfigEnv is what {{...}} expressions and conditional section keys can see
type ConfigEnv struct {
	TargetOS   string            `expr:"target_os"`
	TargetArch string            `expr:"target_arch"`
	Environ    map[string]string `expr:"environ"`
}

func NewConfigEnv() ConfigEnv {
	environ := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			environ[k] = v
		}
	}
	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
		Environ:    environ,
	}
}
