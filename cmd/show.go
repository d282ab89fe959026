package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Show every roster player's stats for one match",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	d, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}

	rows := matchRows(d, model.ParseMatchID(args[0]))
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "No match %q in the dataset\n", args[0])
		return nil
	}
	printMatchHeader(rows[0])
	report.PrintRows(os.Stdout, rows, d.Columns)
	return nil
}

func matchRows(d *model.Dataset, id model.MatchID) []model.Row {
	var out []model.Row
	for _, r := range d.Rows {
		if r.MatchID == id {
			out = append(out, r)
		}
	}
	return out
}

func printMatchHeader(r model.Row) {
	dur := time.Duration(r.EndTime-r.StartTime) * time.Second
	fmt.Fprintf(os.Stdout, "\nMatch: %s  |  Map: %s  |  Start: %s  |  Length: %s\n\n",
		r.MatchID, report.DisplayMap(r.Map),
		time.Unix(r.StartTime, 0).UTC().Format("2006-01-02 15:04"), dur)
}
