package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"defectinsight/internal/analytics"
	"defectinsight/internal/config"
	"defectinsight/internal/database"
	"defectinsight/internal/logging"
)

// SnapshotOptions holds command-line options for the snapshot command.
type SnapshotOptions struct {
	Config string
	Format string
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand() *cobra.Command {
	opts := &SnapshotOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Aggregate every defect in the configured store",
		Long: `Snapshot opens the store named by the config file and computes the corpus
analytics once: severity distribution, top aircraft, totals, high severity
count, recent reports and distinct aircraft.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "config.json", "Path to config file (.json or .yaml)")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "json", "Output format (json|yaml)")

	return cmd
}

func runSnapshot(cmd *cobra.Command, opts *SnapshotOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfigWithDefaults(opts.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))

	store, err := database.Open(ctx, cfg.Database.Driver, cfg.DSN(),
		cfg.Database.MaxConnections, cfg.Database.ConnectTimeout.Std())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	snapshot, err := analytics.NewAggregator(store, analytics.AggregatorConfig{
		TopN:         cfg.Analytics.TopN,
		RecentWindow: cfg.Analytics.RecentWindow.Std(),
		Logger:       logger,
	}).Compute(ctx)
	if err != nil {
		return fmt.Errorf("computing snapshot: %w", err)
	}
	return write(cmd.OutOrStdout(), opts.Format, snapshot)
}
