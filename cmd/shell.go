package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/aggregator"
	"github.com/pable/squadstats/internal/dataset"
	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/report"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session over the dataset. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	d, err := loadDataset(ctx)
	if err != nil {
		return err
	}

	cGreeting.Println("squadstats shell")
	cMuted.Printf("%d rows loaded from %s; type 'help' or 'exit'\n", len(d.Rows), cfg.Dataset.Path)
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("squadstats")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "reload":
			fresh, err := loadDataset(ctx)
			if err != nil {
				cError.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			d = fresh
			cMuted.Printf("%d rows loaded\n", len(d.Rows))
		case "list":
			user := ""
			if len(args) > 0 {
				user = args[0]
			}
			shellList(d, user)
		case "show":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: show <match-id>")
				continue
			}
			shellShow(d, args[0])
		case "trend":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: trend <player>")
				continue
			}
			shellTrend(d, args[0])
		case "report":
			shellReport(d)
		case "sql":
			if len(args) == 0 {
				cError.Fprintln(os.Stderr, "usage: sql <query>")
				continue
			}
			shellSQL(ctx, strings.Join(args, " "))
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list [player]", "last 20 rows, optionally for one player"},
		{"show <match-id>", "every player's stats for one match"},
		{"trend <player>", "chronological K/D for one player"},
		{"report", "player totals and K/D by map"},
		{"sql <query>", "raw SQL against the dataset"},
		{"reload", "re-read the dataset from disk"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-20s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(d *model.Dataset, user string) {
	rows := filterRows(d.Rows, user, 20)
	if len(rows) == 0 {
		if users := dataset.Users(d); user != "" && len(users) > 0 {
			cMuted.Printf("No rows for %q. Players: %s\n", user, strings.Join(users, ", "))
			return
		}
		cMuted.Println("No rows.")
		return
	}
	report.PrintRows(os.Stdout, rows, []string{"kills", "deaths"})
}

func shellShow(d *model.Dataset, id string) {
	rows := matchRows(d, model.ParseMatchID(id))
	if len(rows) == 0 {
		fmt.Fprintf(os.Stderr, "no match %q in the dataset\n", id)
		return
	}
	printMatchHeader(rows[0])
	report.PrintRows(os.Stdout, rows, d.Columns)
}

func shellTrend(d *model.Dataset, player string) {
	points := report.PlayerTrend(d, player)
	if len(points) == 0 {
		fmt.Fprintf(os.Stderr, "no matches for %q\n", player)
		return
	}
	report.PrintTrendTable(os.Stdout, points)
}

func shellReport(d *model.Dataset) {
	if len(d.Rows) == 0 {
		cMuted.Println("Dataset is empty.")
		return
	}
	report.PrintPlayerOverview(os.Stdout, aggregator.Aggregate(d))
	report.PrintMapKDTable(os.Stdout, report.MapKD(d))
}

func shellSQL(ctx context.Context, query string) {
	db, err := openQueryDB(ctx)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		cError.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	printQueryResult(cols, rows)
}
