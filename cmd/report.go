package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/aggregator"
	"github.com/pable/squadstats/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Per-player totals and K/D per player by map",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, _ []string) error {
	d, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	if len(d.Rows) == 0 {
		fmt.Fprintln(os.Stdout, "Dataset is empty. Run 'squadstats collect' first.")
		return nil
	}

	aggs := aggregator.Aggregate(d)
	fmt.Fprintf(os.Stdout, "\n%d rows, %d players\n\n", len(d.Rows), len(aggs))
	report.PrintPlayerOverview(os.Stdout, aggs)
	fmt.Fprintln(os.Stdout, "\nK/D per player by map")
	report.PrintMapKDTable(os.Stdout, report.MapKD(d))
	return nil
}
