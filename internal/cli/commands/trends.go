package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"defectinsight/internal/analytics"
)

// TrendsOptions holds command-line options for the trends command.
type TrendsOptions struct {
	File   string
	Days   int
	Format string
}

// NewTrendsCommand creates the trends command.
func NewTrendsCommand() *cobra.Command {
	opts := &TrendsOptions{}

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Per-day defect counts over a recent window",
		Long: `Trends counts reports per UTC calendar day over the last --days days,
ascending by date. Days without reports are omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Days < 1 {
				return fmt.Errorf("--days must be positive")
			}
			records, _, err := readRecords(opts.File, cmd.InOrStdin())
			if err != nil {
				return err
			}
			trends := insightService(cmd.ErrOrStderr()).Trends(records, opts.Days)
			return write(cmd.OutOrStdout(), opts.Format, trends)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "JSON file of defect records (- for stdin)")
	cmd.Flags().IntVar(&opts.Days, "days", analytics.DefaultTrendDays, "Trend window in days")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "json", "Output format (json|yaml)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
