package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/report"
)

var trendCmd = &cobra.Command{
	Use:   "trend <player>",
	Short: "Chronological per-match K/D trend for a player",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrend,
}

func runTrend(cmd *cobra.Command, args []string) error {
	d, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}

	points := report.PlayerTrend(d, args[0])
	if len(points) == 0 {
		fmt.Println("no matches found")
		return nil
	}
	report.PrintTrendTable(os.Stdout, points)
	return nil
}
