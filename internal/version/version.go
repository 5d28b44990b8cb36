// Package version holds build metadata injected through -ldflags.
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Full returns the version line printed by the version subcommand.
func Full() string {
	return fmt.Sprintf("trackfinder %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}

// AttachCobraVersionCommand adds a `version` subcommand to root.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), Full())
		},
	})
}
