package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/dataset"
	"github.com/pable/squadstats/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the dataset",
	Long: `Run an arbitrary SQL query against the dataset and print results as a table.
CSV datasets are loaded into an in-memory SQLite database first.

Schema overview:
  matches(row_id, user, match_id TEXT, start_time, end_time, map)
  match_stats(row_id, stat, value)
  stat_columns(position, name)
  match_kd(row_id, user, match_id, start_time, map, kills, deaths)   -- view

Note: match_id is stored as TEXT. Use quotes: WHERE match_id = '8120344117469105812'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openQueryDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	printQueryResult(cols, rows)
	return nil
}

// openQueryDB returns a database holding the dataset: the file itself for
// sqlite datasets, an in-memory copy otherwise.
func openQueryDB(ctx context.Context) (*storage.DB, error) {
	if cfg.Dataset.Format == "sqlite" {
		db, err := storage.Open(cfg.Dataset.Path)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return db, nil
	}

	d, err := dataset.NewCSVStore(cfg.Dataset.Path).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	db, err := storage.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Save(ctx, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("load dataset into sqlite: %w", err)
	}
	return db, nil
}

func printQueryResult(cols []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
}
