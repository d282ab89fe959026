package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/dataset"
	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/report"
)

var (
	listUser  string
	listLast  int
	listStats []string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List dataset rows",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listUser, "user", "", "only rows for this player")
	listCmd.Flags().IntVar(&listLast, "last", 20, "show the last N rows (0 = all)")
	listCmd.Flags().StringSliceVar(&listStats, "stats", []string{"kills", "deaths"}, "stat columns to show")
}

func runList(cmd *cobra.Command, _ []string) error {
	d, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}

	rows := filterRows(d.Rows, listUser, listLast)
	if len(rows) == 0 {
		if users := dataset.Users(d); listUser != "" && len(users) > 0 {
			fmt.Fprintf(os.Stdout, "No rows for %q. Players in the dataset: %s\n", listUser, strings.Join(users, ", "))
			return nil
		}
		fmt.Fprintln(os.Stdout, "No rows stored yet. Run 'squadstats collect' to add some.")
		return nil
	}
	report.PrintRows(os.Stdout, rows, listStats)
	fmt.Fprintf(os.Stdout, "\n(%d of %d rows)\n", len(rows), len(d.Rows))
	return nil
}

// filterRows keeps the user's rows (all when user is empty), then the last n.
func filterRows(rows []model.Row, user string, n int) []model.Row {
	var out []model.Row
	for _, r := range rows {
		if user == "" || r.User == user {
			out = append(out, r)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
