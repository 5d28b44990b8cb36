// Package cmd implements the trackfinder command line.
package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/version"
)

var logFlags struct {
	quiet bool
	diag  bool
	trace bool
}

var rootCmd = newRootCommand()

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "trackfinder",
		Short:        "Form track candidates from beam telescope hits.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configureLogging(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().BoolVar(&logFlags.quiet, "quiet", false, "Disable the ops log stream")
	root.PersistentFlags().BoolVar(&logFlags.diag, "diag", false, "Enable the diagnostic log stream")
	root.PersistentFlags().BoolVar(&logFlags.trace, "trace", false, "Enable the per-plane trace log stream")

	root.AddCommand(newRunCommand())
	root.AddCommand(newRunsCommand())
	version.AttachCobraVersionCommand(root)
	return root
}

func configureLogging(w io.Writer) {
	var lw telescope.LogWriters
	if !logFlags.quiet {
		lw.Ops = w
	}
	if logFlags.diag {
		lw.Diag = w
	}
	if logFlags.trace {
		lw.Trace = w
	}
	telescope.SetLogWriters(lw)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
