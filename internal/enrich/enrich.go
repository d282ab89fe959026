// Package enrich fetches per-match statistics for reconciled matches and
// flattens them into dataset rows.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pable/squadstats/internal/logging"
	"github.com/pable/squadstats/internal/model"
	"github.com/pable/squadstats/internal/source"
)

// ErrMissingModeBucket means the summary had no block for the requested mode.
var ErrMissingModeBucket = errors.New("mode bucket missing from summary")

// Options controls enrichment.
type Options struct {
	// Mode is the game category passed to the source (e.g. "mp").
	Mode string
	// ModeBucket is the summary sub-block flattened into each row (e.g. "sd").
	ModeBucket string
	// Workers bounds concurrent fetches; values below 1 mean sequential.
	Workers int
	// FailFast aborts on the first per-pair failure instead of skipping it.
	FailFast bool
}

// Skip records one (player, match) pair that produced no row.
type Skip struct {
	Player  model.Player
	MatchID model.MatchID
	Err     error
}

// Summary describes what an Enrich call did.
type Summary struct {
	Requested int
	Enriched  int
	Skipped   []Skip
}

// Enricher turns novel squad matches into rows.
type Enricher struct {
	src  source.MatchSource
	opts Options
}

// New returns an Enricher reading from src.
func New(src source.MatchSource, opts Options) *Enricher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Enricher{src: src, opts: opts}
}

// StatsWindow returns the [start, end) window queried for a match. The
// summary endpoint's end bound is exclusive, so the match end is widened by
// one to keep its final second.
func StatsWindow(m model.MatchMetadata) (start, end int64) {
	return m.Start, m.End + 1
}

var fixedColumn = func() map[string]bool {
	m := make(map[string]bool, len(model.FixedColumns))
	for _, c := range model.FixedColumns {
		m[c] = true
	}
	return m
}()

type pair struct {
	player model.Player
	match  model.MatchMetadata
}

type result struct {
	row model.Row
	err error
}

// Enrich fetches stats for every (player, match) in idx. Rows come back in
// index order (players in roster order, matches in feed order) whatever the
// worker count. Per-pair source or data errors are skipped and reported in
// the Summary unless FailFast is set; authentication and context errors
// always abort.
func (e *Enricher) Enrich(ctx context.Context, idx model.PlayerMatchIndex) ([]model.Row, Summary, error) {
	var pairs []pair
	for _, pm := range idx {
		for _, m := range pm.Matches {
			pairs = append(pairs, pair{player: pm.Player, match: m})
		}
	}
	sum := Summary{Requested: len(pairs)}

	// Each worker writes only its own slot; the join below reads them in order.
	results := make([]result, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range pairs {
		i := i
		g.Go(func() error {
			row, err := e.enrichOne(gctx, pairs[i])
			results[i] = result{row: row, err: err}
			if err != nil && e.fatal(err) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, sum, err
	}

	rows := make([]model.Row, 0, len(pairs))
	for i, r := range results {
		if r.err != nil {
			p := pairs[i]
			sum.Skipped = append(sum.Skipped, Skip{Player: p.player, MatchID: p.match.MatchID, Err: r.err})
			logging.Warn().Err(r.err).Str("player", p.player.ID).Str("match", string(p.match.MatchID)).
				Msg("skipping match: no stats")
			continue
		}
		rows = append(rows, r.row)
	}
	sum.Enriched = len(rows)
	return rows, sum, nil
}

func (e *Enricher) fatal(err error) bool {
	if errors.Is(err, source.ErrAuthentication) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return e.opts.FailFast
}

func (e *Enricher) enrichOne(ctx context.Context, p pair) (model.Row, error) {
	start, end := StatsWindow(p.match)
	summary, err := e.src.StatsSummary(ctx, p.player, e.opts.Mode, start, end)
	if err != nil {
		return model.Row{}, fmt.Errorf("stats summary for %s in %s: %w", p.player.ID, p.match.MatchID, err)
	}
	bucket, ok := summary[e.opts.ModeBucket]
	if !ok {
		return model.Row{}, fmt.Errorf("%w: %q for %s in %s", ErrMissingModeBucket, e.opts.ModeBucket, p.player.ID, p.match.MatchID)
	}

	stats := make(map[string]float64, len(bucket))
	for k, v := range bucket {
		if !fixedColumn[k] {
			stats[k] = v
		}
	}
	return model.Row{
		User:      p.player.ID,
		MatchID:   p.match.MatchID,
		StartTime: p.match.Start,
		EndTime:   p.match.End,
		Map:       p.match.Map,
		Stats:     stats,
	}, nil
}
