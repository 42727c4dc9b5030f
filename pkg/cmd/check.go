package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/synthizer/waveling/pkg/compiler"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Run the front end through validation and constant folding, reporting diagnostics.",
	Long: `check compiles a Waveling source file through the full front end
(lex, parse, build, infer, validate, fold) without emitting IR, and prints
every diagnostic raised. Exit code 0 on success, 1 on a compilation error,
2 on a usage error (§6).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProjectConfig()
		format := resolveFormat(cmd, cfg)

		file := readSourceFile(args[0])
		result := compiler.Compile(file, compiler.Options{
			SampleRateOverride: cfg.DefaultSampleRate,
			BlockSizeOverride:  cfg.DefaultBlockSize,
		})

		hasErrors := printDiagnostics(file, result.Diagnostics, format)
		if hasErrors {
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
}
