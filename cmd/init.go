// cargo-xcode init [dir]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/cargo-xcode/internal/builder"
	"github.com/qobs-build/cargo-xcode/internal/msg"
	"github.com/spf13/cobra"
)

const configTemplate = `# Settings for cargo-xcode. Command line flags take precedence.

[project]
# name = "MyApp"            # .xcodeproj name, defaults to the package name
# output-dir = "xcode"      # relative to this file, defaults to next to Cargo.toml
# features = ["ffi"]        # passed to cargo as --features

# Sub-tables keyed by an expression are merged in when it is true:
# [project.'environ["CI"] == "true"']
# output-dir = "{{environ["RUNNER_TEMP"]}}/xcode"

[filter]
# Only generate projects for packages matching this expression.
# Available: name, version, id, kinds, targets
# packages = '"cdylib" in kinds'

# Only include targets whose names match one of these globs.
# targets = ["*-ffi", "cli"]
`

func writefile(content string, elem ...string) bool {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		msg.Warn("%s already exists, leaving it alone", filepath.ToSlash(path))
		return false
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		msg.Fatal("create file %s: %v", path, err)
	}
	fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	return true
}

func mkdir(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func getProgramName() string {
	if len(os.Args) == 0 {
		return toolName
	}
	basename := filepath.Base(os.Args[0])
	return strings.TrimSuffix(basename, filepath.Ext(basename))
}

// initIn writes a commented config template into dir
func initIn(dir string) {
	mkdir(dir)
	if !writefile(configTemplate, dir, builder.ConfigFilename) {
		return
	}

	programName := getProgramName()
	fmt.Printf("Edit it, then run %s to generate the project.\n", color.HiCyanString(programName))
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a " + builder.ConfigFilename + " template",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		} else if flagManifestPath != "" {
			dir = filepath.Dir(flagManifestPath)
		}
		initIn(dir)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
