// Package cmd implements the Waveling driver's Cobra command tree (§1's
// "command-line driver" external collaborator): `check`, `emit`, and `view`
// subcommands that call pkg/compiler.Compile and format its Result, with no
// semantic authority of their own.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/synthizer/waveling/pkg/config"
	"github.com/synthizer/waveling/pkg/source"
)

// GetFlag gets an expected boolean flag, or exits if the flag is missing
// (a programmer error, not a user-facing one).
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// readSourceFile loads filename into a *source.File, exiting with a usage
// error (exit code 2, §6) if it cannot be read.
func readSourceFile(filename string) *source.File {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "waveling: %s\n", err)
		os.Exit(2)
	}

	return source.NewFile(filename, data)
}

// loadProjectConfig loads waveling.yaml from the current directory, exiting
// with a usage error if it exists but is malformed. A missing file is not an
// error (pkg/config.Load returns defaults).
func loadProjectConfig() *config.Config {
	cfg, err := config.Load("waveling.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "waveling: reading waveling.yaml: %s\n", err)
		os.Exit(2)
	}

	return cfg
}

// resolveFormat merges the --format flag over the project config's default,
// rejecting anything other than "text"/"json".
func resolveFormat(cmd *cobra.Command, cfg *config.Config) config.Format {
	if cmd.Flags().Changed("format") {
		switch f := GetString(cmd, "format"); f {
		case "text":
			return config.FormatText
		case "json":
			return config.FormatJSON
		default:
			fmt.Fprintf(os.Stderr, "waveling: unknown --format %q (want text or json)\n", f)
			os.Exit(2)
		}
	}

	return cfg.Format
}
