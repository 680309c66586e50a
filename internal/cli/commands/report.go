package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"defectinsight/internal/analytics"
)

// ReportOptions holds command-line options for the report command.
type ReportOptions struct {
	File   string
	Limit  int
	Days   int
	Format string
}

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Analyze a file of defect records",
		Long: `Report computes the severity distribution, the most problematic aircraft,
the daily defect rate, per-day trends and MTBF for every ranked aircraft
over a JSON array of defect records.

Records missing id, aircraft_registration or reported_at are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "JSON file of defect records (- for stdin)")
	cmd.Flags().IntVar(&opts.Limit, "limit", analytics.DefaultTopLimit, "Number of aircraft to rank")
	cmd.Flags().IntVar(&opts.Days, "days", analytics.DefaultTrendDays, "Trend window in days")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "json", "Output format (json|yaml)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) error {
	if opts.Limit < 1 || opts.Days < 1 {
		return fmt.Errorf("--limit and --days must be positive")
	}

	records, skipped, err := readRecords(opts.File, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if skipped > 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipped %d invalid record(s)\n", skipped)
	}

	report := insightService(cmd.ErrOrStderr()).Report(records, opts.Limit, opts.Days)
	return write(cmd.OutOrStdout(), opts.Format, report)
}
