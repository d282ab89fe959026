// Package source defines the contract of the remote match-history provider.
package source

import (
	"context"
	"errors"

	"github.com/pable/squadstats/internal/model"
)

var (
	// ErrAuthentication means the credentials or session were rejected. Fatal.
	ErrAuthentication = errors.New("authentication failed")
	// ErrUnavailable means a single remote fetch failed or timed out.
	ErrUnavailable = errors.New("source unavailable")
)

// MatchSummary is one entry of a player's recent-match list.
type MatchSummary struct {
	Player  model.Player
	MatchID model.MatchID
	// Detail carries provider-specific data already present in the list
	// response, so MatchDetails can avoid a second request.
	Detail any
}

// ModeStats is one mode bucket of a statistics summary.
type ModeStats map[string]float64

// MatchSource is the remote provider the pipeline pulls from.
type MatchSource interface {
	// ListRecentMatches returns up to limit most recent matches for the
	// player in the given game category (e.g. "mp").
	ListRecentMatches(ctx context.Context, p model.Player, mode string, limit int) ([]MatchSummary, error)
	// MatchDetails resolves the metadata of one listed match.
	MatchDetails(ctx context.Context, m MatchSummary) (model.MatchMetadata, error)
	// StatsSummary aggregates the player's statistics over [start, end) keyed
	// by mode bucket (e.g. "sd").
	StatsSummary(ctx context.Context, p model.Player, mode string, start, end int64) (map[string]ModeStats, error)
}
