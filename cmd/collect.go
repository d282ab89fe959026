package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/squadstats/internal/codapi"
	"github.com/pable/squadstats/internal/config"
	"github.com/pable/squadstats/internal/logging"
	"github.com/pable/squadstats/internal/pipeline"
)

var (
	collectWorkers  int
	collectLimit    int
	collectFailFast bool
	collectMinTeam  int
)

var (
	cOK   = color.New(color.FgGreen, color.Bold)
	cSkip = color.New(color.FgYellow)
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch new squad matches and append them to the dataset",
	Long: `Log in to the Call of Duty API, read the recent match history of every roster
player, keep the matches played by at least min_team_size roster members that
are not in the dataset yet, fetch each player's stats for them and append the
new rows to the dataset.`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	f := collectCmd.Flags()
	f.IntVar(&collectWorkers, "workers", 0, "concurrent stats fetches (overrides pipeline.workers)")
	f.IntVar(&collectLimit, "limit", 0, "matches listed per player (overrides pipeline.match_limit)")
	f.IntVar(&collectMinTeam, "min-team-size", 0, "roster players required in a match (overrides pipeline.min_team_size)")
	f.BoolVar(&collectFailFast, "fail-fast", false, "abort on the first failed match instead of skipping it")
}

func runCollect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if collectWorkers > 0 {
		cfg.Pipeline.Workers = collectWorkers
	}
	if collectLimit > 0 {
		cfg.Pipeline.MatchLimit = collectLimit
	}
	if collectMinTeam > 0 {
		cfg.Pipeline.MinTeamSize = collectMinTeam
	}
	if collectFailFast {
		cfg.Pipeline.FailFast = true
	}

	roster, err := cfg.Players()
	if err != nil {
		return err
	}
	if len(roster) == 0 {
		return fmt.Errorf("roster is empty: add players under 'roster' in the config or set SQUADSTATS_ROSTER")
	}

	creds, err := config.LoadCredentials(cfg.Source.Credentials)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	client := codapi.NewClient(codapi.Options{
		BaseURL:           cfg.Source.BaseURL,
		ProfileURL:        cfg.Source.ProfileURL,
		Title:             cfg.Source.Title,
		Timeout:           cfg.Source.Timeout,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
	})
	if err := client.Login(ctx, creds.User, creds.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	logging.Info().Str("user", creds.User).Msg("logged in")

	p := pipeline.New(pipeline.Options{
		Roster:      roster,
		GameMode:    cfg.Pipeline.GameMode,
		Mode:        cfg.Source.Mode,
		MatchLimit:  cfg.Pipeline.MatchLimit,
		MinTeamSize: cfg.Pipeline.MinTeamSize,
		ModeBucket:  cfg.Pipeline.ModeBucket,
		Workers:     cfg.Pipeline.Workers,
		FailFast:    cfg.Pipeline.FailFast,
	}, client, store)

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	for _, s := range res.Skipped {
		cSkip.Fprintf(os.Stderr, "[skip] %s %s: %v\n", s.Player, s.MatchID, s.Err)
	}
	fmt.Fprintf(os.Stdout, "run %s\n", res.RunID)
	fmt.Fprintf(os.Stdout, "  listed %d, squad %d, new %d, enriched %d, skipped %d\n",
		res.Fetched, res.SquadMatches, res.Novel, res.Enriched, len(res.Skipped))
	if res.Saved {
		cOK.Fprintf(os.Stdout, "  saved %d rows to %s (%d new)\n", res.Rows, store.Path(), res.Enriched)
	} else {
		fmt.Fprintf(os.Stdout, "  no new matches; %s unchanged (%d rows)\n", store.Path(), res.Rows)
	}
	return nil
}
