package builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qobs-build/cargo-xcode/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var darwinEnv = ConfigEnv{
	TargetOS:   "darwin",
	TargetArch: "arm64",
	Environ:    map[string]string{"HOME": "/Users/dev", "CI": "true"},
}

func parse(t *testing.T, src string) *Config {
	t.Helper()
	cfg, err := ParseConfig(strings.NewReader(src), "/work/app", darwinEnv)
	require.NoError(t, err)
	return cfg
}

func TestParseConfigProject(t *testing.T) {
	cfg := parse(t, `
[project]
name = "MyApp"
output-dir = "xcode"
features = ["ffi", "simd"]
`)
	assert.Equal(t, "MyApp", cfg.Project.Name)
	assert.Equal(t, []string{"ffi", "simd"}, cfg.Project.Features)
	assert.Equal(t, filepath.Join("/work/app", "xcode"), cfg.OutputDir())
}

func TestParseConfigEmpty(t *testing.T) {
	cfg := parse(t, "")
	assert.Empty(t, cfg.Project.Name)
	assert.Empty(t, cfg.OutputDir())

	ok, err := cfg.MatchPackage(&metadata.Package{Name: "anything"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, cfg.MatchTarget("anything"))
}

func TestParseConfigAbsoluteOutputDir(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "out")
	cfg := parse(t, "[project]\noutput-dir = '"+abs+"'\n")
	assert.Equal(t, abs, cfg.OutputDir())
}

func TestConditionalSections(t *testing.T) {
	cfg := parse(t, `
[project]
name = "base"
features = ["always"]

[project.'target_os == "darwin"']
name = "mac"
features = ["metal"]

[project.'target_os == "windows"']
name = "win"

[project.'environ["CI"] == "true"']
output-dir = "ci-out"
`)
	assert.Equal(t, "mac", cfg.Project.Name)
	assert.Equal(t, []string{"always", "metal"}, cfg.Project.Features)
	assert.Equal(t, filepath.Join("/work/app", "ci-out"), cfg.OutputDir())
}

func TestTemplateStrings(t *testing.T) {
	cfg := parse(t, `
[project]
name = "app-{{ target_arch }}"
output-dir = '{{ environ["HOME"] }}/xcode'
`)
	assert.Equal(t, "app-arm64", cfg.Project.Name)
	assert.Equal(t, "/Users/dev/xcode", cfg.OutputDir())
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bad toml", "[project\nname = 1", ""},
		{"bad template", "[project]\nname = \"{{ nope( }}\"", "failed to evaluate expression"},
		{"bad condition", "[project.'1 +']\nname = \"x\"", "failed to compile expression"},
		{"non-bool filter", "[filter]\npackages = '\"name\"'", "[filter] packages"},
		{"bad glob", "[filter]\ntargets = [\"[abc\"]", "invalid [filter] targets pattern"},
		{"project not a table", "project = 1", "expected a table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(strings.NewReader(tt.src), "/work", darwinEnv)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPackageFilter(t *testing.T) {
	cfg := parse(t, `
[filter]
packages = 'name startsWith "app" && "cdylib" in kinds'
`)
	pkg := func(name string, kinds ...string) *metadata.Package {
		return &metadata.Package{
			Name:    name,
			Version: metadata.MustParseVersion("1.0.0"),
			Targets: []metadata.Target{{Name: name, Kinds: kinds}},
		}
	}

	tests := []struct {
		pkg  *metadata.Package
		want bool
	}{
		{pkg("app-core", "cdylib"), true},
		{pkg("app-cli", "bin"), false},
		{pkg("lib-core", "cdylib"), false},
	}
	for _, tt := range tests {
		ok, err := cfg.MatchPackage(tt.pkg)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, tt.pkg.Name)
	}
}

func TestPackageFilterKeepsBraces(t *testing.T) {
	// [filter] is not template-expanded, so the braces reach the expression as written
	cfg := parse(t, `
[filter]
packages = 'name == "{{core}}"'
`)
	ok, err := cfg.MatchPackage(&metadata.Package{Name: "{{core}}", Version: metadata.MustParseVersion("1.0.0")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cfg.MatchPackage(&metadata.Package{Name: "core", Version: metadata.MustParseVersion("1.0.0")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTargetFilter(t *testing.T) {
	cfg := parse(t, `
[filter]
targets = ["*-ffi", "cli"]
`)
	assert.True(t, cfg.MatchTarget("foo-ffi"))
	assert.True(t, cfg.MatchTarget("cli"))
	assert.False(t, cfg.MatchTarget("cli-extra"))
	assert.False(t, cfg.MatchTarget("foo"))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig("", dir, darwinEnv)
	require.NoError(t, err, "a missing default config is fine")
	assert.Empty(t, cfg.Project.Name)

	_, err = LoadConfig(filepath.Join(dir, "explicit.toml"), dir, darwinEnv)
	assert.ErrorIs(t, err, os.ErrNotExist, "a missing explicit config is not")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFilename), []byte("[project]\noutput-dir = \"gen\"\n"), 0o644))
	cfg, err = LoadConfig("", dir, darwinEnv)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gen"), cfg.OutputDir())
}

func TestMergeStructs(t *testing.T) {
	dst := ProjectSection{Name: "a", Features: []string{"x"}}
	require.NoError(t, mergeStructs(&dst, ProjectSection{OutputDir: "out", Features: []string{"y"}}))
	assert.Equal(t, ProjectSection{Name: "a", OutputDir: "out", Features: []string{"x", "y"}}, dst)

	assert.Error(t, mergeStructs(dst, ProjectSection{}))
	assert.Error(t, mergeStructs(&dst, FilterSection{}))
}
