// Package pipeline runs one collection pass: fetch each roster player's recent
// matches, keep squad matches not yet in the dataset, enrich them with stats
// and append them to the persisted dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pable/squadstats/internal/dataset"
	"github.com/pable/squadstats/internal/enrich"
	"github.com/pable/squadstats/internal/logging"
	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/reconcile"
	"github.com/pable/squadstats/internal/source"
)

var (
	// ErrPersistence wraps dataset load and save failures.
	ErrPersistence = errors.New("dataset persistence failed")
	// ErrMissingMatchID means the source reported a match without an id.
	// Such a match can never be recognized as known, so it is skipped.
	ErrMissingMatchID = errors.New("match has no id")
)

// Store loads and saves the whole dataset.
type Store interface {
	Load(ctx context.Context) (*model.Dataset, error)
	Save(ctx context.Context, d *model.Dataset) error
}

// Options configures a run.
type Options struct {
	Roster []model.Player
	// GameMode is the per-match mode kept from the history (e.g. "sd").
	GameMode string
	// Mode is the title category queried at the source (e.g. "mp").
	Mode        string
	MatchLimit  int
	MinTeamSize int
	ModeBucket  string
	Workers     int
	FailFast    bool
}

// Result summarizes a run.
type Result struct {
	RunID        string
	Existing     int
	Fetched      int
	SquadMatches int
	Novel        int
	Enriched     int
	Skipped      []enrich.Skip
	Saved        bool
	Rows         int
	Duration     time.Duration
}

// Pipeline wires a match source to a dataset store.
type Pipeline struct {
	opts  Options
	src   source.MatchSource
	store Store
}

// New returns a Pipeline.
func New(opts Options, src source.MatchSource, store Store) *Pipeline {
	return &Pipeline{opts: opts, src: src, store: store}
}

// Run performs one collection pass. The dataset is saved at most once, after
// every row has been assembled; a fatal error leaves the stored dataset as it
// was.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}

	prev := logging.Logger()
	logging.SetLogger(logging.With().Str("run_id", res.RunID).Logger())
	defer logging.SetLogger(prev)

	existing, err := p.store.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}
	res.Existing = len(existing.Rows)
	logging.Info().Int("rows", res.Existing).Int("players", len(p.opts.Roster)).Msg("dataset loaded")

	idx, skipped, err := p.collect(ctx)
	if err != nil {
		return res, err
	}
	res.Fetched = idx.Pairs()

	squad := reconcile.SquadMatches(idx, p.opts.MinTeamSize)
	res.SquadMatches = squad.Pairs()

	novel := reconcile.RemoveKnown(squad, dataset.KnownIDs(existing))
	res.Novel = novel.Pairs()
	logging.Info().
		Int("fetched", res.Fetched).
		Int("squad", res.SquadMatches).
		Int("novel", res.Novel).
		Int("novel_matches", len(novel.MatchIDs())).
		Msg("matches reconciled")

	e := enrich.New(p.src, enrich.Options{
		Mode:       p.opts.Mode,
		ModeBucket: p.opts.ModeBucket,
		Workers:    p.opts.Workers,
		FailFast:   p.opts.FailFast,
	})
	rows, sum, err := e.Enrich(ctx, novel)
	if err != nil {
		return res, fmt.Errorf("enrich: %w", err)
	}
	res.Enriched = sum.Enriched
	res.Skipped = append(skipped, sum.Skipped...)

	merged := dataset.Merge(existing, rows)
	res.Rows = len(merged.Rows)
	if len(rows) == 0 && len(existing.Rows) > 0 {
		logging.Info().Msg("no new rows; dataset unchanged")
		res.Duration = time.Since(start)
		return res, nil
	}
	if err := p.store.Save(ctx, merged); err != nil {
		logging.Error().Err(err).Int("rows", res.Rows).Msg("dataset save failed")
		return res, fmt.Errorf("%w: save: %w", ErrPersistence, err)
	}
	res.Saved = true
	res.Duration = time.Since(start)
	logging.Info().Int("added", len(rows)).Int("rows", res.Rows).Dur("took", res.Duration).Msg("dataset saved")
	return res, nil
}

// collect builds the index of each roster player's recent matches in the
// configured game mode. Every roster player gets an entry, even with no matches.
// Matches reported without an id are returned as skips.
func (p *Pipeline) collect(ctx context.Context) (model.PlayerMatchIndex, []enrich.Skip, error) {
	idx := make(model.PlayerMatchIndex, 0, len(p.opts.Roster))
	var skipped []enrich.Skip
	for _, player := range p.opts.Roster {
		idx = append(idx, model.PlayerMatches{Player: player})

		summaries, err := p.src.ListRecentMatches(ctx, player, p.opts.Mode, p.opts.MatchLimit)
		if err != nil {
			if p.fatal(err) {
				return nil, nil, fmt.Errorf("list matches for %s: %w", player, err)
			}
			logging.Warn().Err(err).Str("player", player.ID).Msg("skipping player: match history unavailable")
			continue
		}

		kept := 0
		for _, s := range summaries {
			md, err := p.src.MatchDetails(ctx, s)
			if err != nil {
				if p.fatal(err) {
					return nil, nil, fmt.Errorf("match details %s for %s: %w", s.MatchID, player, err)
				}
				logging.Warn().Err(err).Str("player", player.ID).Str("match", string(s.MatchID)).
					Msg("skipping match: no details")
				continue
			}
			if md.Mode != p.opts.GameMode {
				continue
			}
			md.MatchID = model.ParseMatchID(string(md.MatchID))
			if md.MatchID == "" {
				err := fmt.Errorf("%w: %s match at %d for %s", ErrMissingMatchID, md.Mode, md.Start, player)
				if p.opts.FailFast {
					return nil, nil, err
				}
				logging.Warn().Err(err).Str("player", player.ID).Msg("skipping match: no id")
				skipped = append(skipped, enrich.Skip{Player: player, Err: err})
				continue
			}
			idx = idx.Add(player, md)
			kept++
		}
		logging.Debug().Str("player", player.ID).Int("listed", len(summaries)).Int("kept", kept).Msg("history fetched")
	}
	return idx, skipped, nil
}

func (p *Pipeline) fatal(err error) bool {
	return p.opts.FailFast ||
		errors.Is(err, source.ErrAuthentication) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
