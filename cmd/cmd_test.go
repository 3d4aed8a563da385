package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/qobs-build/cargo-xcode/internal/builder"
	"github.com/qobs-build/cargo-xcode/internal/msg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumValue(t *testing.T) {
	e := NewEnumValue("all", map[string]string{"all": "", "bin": "", "cdylib": ""})
	assert.Equal(t, "all", e.Value())
	assert.Equal(t, []string{"all", "bin", "cdylib"}, e.AllowedKeys())
	assert.Equal(t, "[all, bin, cdylib]", e.HelpString())

	require.NoError(t, e.Set("bin"))
	assert.Equal(t, "bin", e.String())
	assert.EqualError(t, e.Set("rlib"), "must be one of: all, bin, cdylib")
	assert.Equal(t, "bin", e.Value())

	assert.Panics(t, func() { NewEnumValue("nope", map[string]string{"all": ""}) })
}

func TestCliArgsDropsCargoSubcommand(t *testing.T) {
	saved := os.Args
	t.Cleanup(func() { os.Args = saved })

	os.Args = []string{"cargo-xcode", "xcode", "--kind", "bin"}
	assert.Equal(t, []string{"--kind", "bin"}, cliArgs())

	os.Args = []string{"cargo-xcode", "--kind", "bin"}
	assert.Equal(t, []string{"--kind", "bin"}, cliArgs())

	os.Args = []string{"cargo-xcode"}
	assert.Empty(t, cliArgs())
}

func TestInitWritesTemplate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "crate")
	initIn(dir)

	path := filepath.Join(dir, builder.ConfigFilename)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configTemplate, string(data))

	// the template parses to an empty config
	cfg, err := builder.ParseConfigFromFile(path, builder.NewConfigEnv())
	require.NoError(t, err)
	assert.Empty(t, cfg.Project.Name)

	// an existing file is left alone
	require.NoError(t, os.WriteFile(path, []byte("[project]\n"), 0o644))
	initIn(dir)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[project]\n", string(data))
}

func TestGenerateReportsWrittenProjects(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.ToSlash(filepath.Join(dir, "Cargo.toml"))
	doc := `{"version": 1, "packages": [{"name": "core", "id": "core 1.0.0", "version": "1.0.0",
		"manifest_path": "` + manifest + `", "targets": [{"name": "core", "kind": ["cdylib"]}]}]}`
	metaPath := filepath.Join(dir, "metadata.json")
	require.NoError(t, os.WriteFile(metaPath, []byte(doc), 0o644))

	var out bytes.Buffer
	savedOut, savedNoColor, savedMeta := msg.Out, color.NoColor, flagMetadataFile
	msg.Out, color.NoColor, flagMetadataFile = &out, true, metaPath
	t.Cleanup(func() { msg.Out, color.NoColor, flagMetadataFile = savedOut, savedNoColor, savedMeta })

	rootCmd.SetContext(context.Background())
	doGenerate(rootCmd, nil)

	want := "info: written " + filepath.ToSlash(filepath.Join(dir, "core.xcodeproj")) + "\n"
	assert.Equal(t, want, out.String())
	assert.FileExists(t, filepath.Join(dir, "core.xcodeproj", "project.pbxproj"))
}
