package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootCmd is the top-level `waveling` command, composed in cmd/waveling's
// main.go. Subcommands are registered via init() in their own files,
// mirroring the teacher's pkg/cmd/root.go + one-file-per-subcommand layout.
var RootCmd = &cobra.Command{
	Use:   "waveling",
	Short: "A compiler front end for the Waveling audio graph language.",
	Long: `waveling compiles a Waveling source file through lexing, parsing,
graph construction, type/rate inference, validation and constant folding,
stopping at the validated, folded IR described by the language
specification. It has no backend: it never emits executable code.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the command tree; it is the sole entry point called from
// cmd/waveling/main.go.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	RootCmd.PersistentFlags().String("format", "", "diagnostic output format: text or json (default from waveling.yaml, else text)")
}
