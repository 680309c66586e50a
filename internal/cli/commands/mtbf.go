package commands

import (
	"github.com/spf13/cobra"

	"defectinsight/internal/models"
)

// MTBFOptions holds command-line options for the mtbf command.
type MTBFOptions struct {
	File     string
	Aircraft string
	Format   string
}

// NewMTBFCommand creates the mtbf command.
func NewMTBFCommand() *cobra.Command {
	opts := &MTBFOptions{}

	cmd := &cobra.Command{
		Use:   "mtbf",
		Short: "Mean days between defect reports for one aircraft",
		Long: `MTBF averages the whole-day gaps between consecutive reports of one
aircraft. Fewer than two reports, or no positive gap, yields 0.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := readRecords(opts.File, cmd.InOrStdin())
			if err != nil {
				return err
			}
			result := models.AircraftMTBF{
				Aircraft: opts.Aircraft,
				MTBFDays: insightService(cmd.ErrOrStderr()).MTBF(records, opts.Aircraft),
			}
			return write(cmd.OutOrStdout(), opts.Format, result)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "JSON file of defect records (- for stdin)")
	cmd.Flags().StringVarP(&opts.Aircraft, "aircraft", "a", "", "Aircraft registration")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "json", "Output format (json|yaml)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("aircraft")

	return cmd
}
