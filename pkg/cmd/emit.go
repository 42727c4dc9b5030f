package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synthizer/waveling/pkg/compiler"
)

var emitCmd = &cobra.Command{
	Use:   "emit <file>",
	Short: "Run the full pipeline and print the serialized IR as JSON.",
	Long: `emit runs the complete pipeline (§2) and, if compilation produced
no errors, writes the validated, typed, folded IR (§6) to stdout or to
--out. If any pass reported an error, diagnostics are printed instead and
emit exits 1; IR is never emitted for a program with errors.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadProjectConfig()
		format := resolveFormat(cmd, cfg)

		file := readSourceFile(args[0])
		result := compiler.Compile(file, compiler.Options{
			SampleRateOverride: cfg.DefaultSampleRate,
			BlockSizeOverride:  cfg.DefaultBlockSize,
		})

		if len(result.Diagnostics) > 0 {
			if hasErrors := printDiagnostics(file, result.Diagnostics, format); hasErrors {
				os.Exit(1)
			}
		}

		out := GetString(cmd, "out")
		if out == "" {
			fmt.Println(string(result.IR))
			return
		}

		if err := os.WriteFile(out, result.IR, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "waveling: writing %s: %s\n", out, err)
			os.Exit(2)
		}
	},
}

func init() {
	RootCmd.AddCommand(emitCmd)
	emitCmd.Flags().String("out", "", "write the IR to this file instead of stdout")
}
