// Package cli provides the defectctl command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"defectinsight/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "defectctl",
		Short: "Aircraft defect analytics",
		Long: `defectctl computes defect analytics.

The report, mtbf and trends commands work on a JSON array of defect records.
The snapshot command aggregates every defect in the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewMTBFCommand())
	rootCmd.AddCommand(commands.NewTrendsCommand())
	rootCmd.AddCommand(commands.NewSnapshotCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
