// cargo-xcode [flags]
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/qobs-build/cargo-xcode/internal/builder"
	"github.com/qobs-build/cargo-xcode/internal/builder/gen"
	"github.com/qobs-build/cargo-xcode/internal/msg"
	"github.com/spf13/cobra"
)

// Version is overridden at link time
var Version = "dev"

const toolName = "cargo-xcode"

var (
	flagManifestPath string
	flagOutputDir    string
	flagProjectName  string
	flagConfig       string
	flagMetadataFile string
	flagVerbose      bool
	flagKind         EnumValue = NewEnumValue(builder.KindAll, map[string]string{
		builder.KindAll:   "Every supported kind (default)",
		gen.KindBin:       "Executables only",
		gen.KindCdylib:    "Dynamic libraries only",
		gen.KindStaticlib: "Static libraries only",
	})
)

func doGenerate(cmd *cobra.Command, args []string) {
	b, err := builder.NewBuilder(builder.Options{
		ManifestPath: flagManifestPath,
		OutputDir:    flagOutputDir,
		ProjectName:  flagProjectName,
		ConfigPath:   flagConfig,
		MetadataFile: flagMetadataFile,
		Kind:         flagKind.Value(),
		Scripts:      gen.ScriptParams{Tool: toolName, Version: Version},
	})
	if err != nil {
		msg.Fatal("%v", err)
	}

	written, err := b.Generate(cmd.Context())
	for _, path := range written {
		msg.Info("written %s", filepath.ToSlash(path))
	}
	if err != nil {
		msg.Fatal("%v", err)
	}

	if len(written) == 0 {
		msg.Warn(`No libraries with crate-type "staticlib" or "cdylib", and no binaries`)
	}
}

var rootCmd = &cobra.Command{
	Use:   toolName,
	Short: "Generate Xcode projects for Cargo packages",
	Long: `Generates an Xcode project for every package of a Cargo workspace that has
bin, cdylib or staticlib targets. The project builds the crate with cargo and
merges per-architecture builds into universal binaries.

Can be run as "cargo xcode".`,
	Args:          cobra.NoArgs,
	Version:       Version,
	SilenceErrors: true,
	Run:           doGenerate,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		msg.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Show skipped packages and the commands being run")
	rootCmd.PersistentFlags().StringVar(&flagManifestPath, "manifest-path", "", "Path to Cargo.toml")

	rootCmd.Flags().StringVarP(&flagOutputDir, "output-dir", "o", "", "Directory to write the .xcodeproj into (default: next to Cargo.toml)")
	rootCmd.Flags().StringVar(&flagProjectName, "project-name", "", "Name of the .xcodeproj (default: package name)")
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: "+builder.ConfigFilename+" next to Cargo.toml)")
	rootCmd.Flags().StringVar(&flagMetadataFile, "metadata-file", "", `Read "cargo metadata --format-version 1" output from a file ("-" for stdin) instead of running cargo`)
	rootCmd.Flags().Var(&flagKind, "kind", "Target kinds to generate, one of "+flagKind.HelpString())
	rootCmd.RegisterFlagCompletionFunc("kind", flagKind.CompletionFunc())
}

// cliArgs drops the subcommand name cargo passes when invoked as `cargo xcode`
func cliArgs() []string {
	if len(os.Args) > 1 && os.Args[1] == "xcode" {
		return os.Args[2:]
	}
	return os.Args[1:]
}

func Execute(ctx context.Context) {
	rootCmd.Version = Version
	rootCmd.SetArgs(cliArgs())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		msg.Error("%v", err)
		os.Exit(1)
	}
}
