package model

import (
	"fmt"
	"strings"
)

// Platform identifies the account network a tracked player is registered on.
type Platform string

const (
	PlatformPlayStation Platform = "psn"
	PlatformXbox        Platform = "xbl"
	PlatformBattleNet   Platform = "battle"
	PlatformActivision  Platform = "uno"
)

func (p Platform) String() string {
	switch p {
	case PlatformPlayStation:
		return "PlayStation"
	case PlatformXbox:
		return "Xbox"
	case PlatformBattleNet:
		return "Battle.net"
	case PlatformActivision:
		return "Activision"
	default:
		return "?"
	}
}

// ParsePlatform accepts the API tag ("psn", "uno") as well as the short
// aliases hand-written rosters tend to use ("ps", "acti").
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "psn", "ps", "playstation":
		return PlatformPlayStation, nil
	case "xbl", "xbox":
		return PlatformXbox, nil
	case "battle", "bnet", "battlenet":
		return PlatformBattleNet, nil
	case "uno", "acti", "act", "activision":
		return PlatformActivision, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Player is one tracked roster member.
type Player struct {
	ID       string
	Platform Platform
}

func (p Player) String() string {
	return p.ID + "@" + string(p.Platform)
}

// MatchMetadata is what one player's feed reports about one match.
type MatchMetadata struct {
	MatchID MatchID
	Start   int64 // unix seconds
	End     int64 // unix seconds
	Map     string
	Mode    string
}

// PlayerMatches is one player's matches in feed order, unique by MatchID.
type PlayerMatches struct {
	Player  Player
	Matches []MatchMetadata
}

// Has reports whether the player's feed contains id.
func (pm *PlayerMatches) Has(id MatchID) bool {
	for _, m := range pm.Matches {
		if m.MatchID == id {
			return true
		}
	}
	return false
}

// PlayerMatchIndex maps each roster player (in roster order) to their matches.
// Players with no matches keep an entry with an empty slice.
type PlayerMatchIndex []PlayerMatches

// Add appends m to the player's entry, creating the entry if needed. A MatchID
// already present for that player is ignored.
func (idx PlayerMatchIndex) Add(p Player, m MatchMetadata) PlayerMatchIndex {
	m.MatchID = ParseMatchID(string(m.MatchID))
	for i := range idx {
		if idx[i].Player != p {
			continue
		}
		if !idx[i].Has(m.MatchID) {
			idx[i].Matches = append(idx[i].Matches, m)
		}
		return idx
	}
	return append(idx, PlayerMatches{Player: p, Matches: []MatchMetadata{m}})
}

// Filter returns a new index holding only the matches keep accepts. Every
// player entry survives, possibly with no matches.
func (idx PlayerMatchIndex) Filter(keep func(MatchMetadata) bool) PlayerMatchIndex {
	out := make(PlayerMatchIndex, 0, len(idx))
	for _, pm := range idx {
		matches := make([]MatchMetadata, 0, len(pm.Matches))
		for _, m := range pm.Matches {
			if keep(m) {
				matches = append(matches, m)
			}
		}
		out = append(out, PlayerMatches{Player: pm.Player, Matches: matches})
	}
	return out
}

// Pairs returns the total number of (player, match) entries.
func (idx PlayerMatchIndex) Pairs() int {
	n := 0
	for _, pm := range idx {
		n += len(pm.Matches)
	}
	return n
}

// MatchIDs returns the distinct match ids in first-seen order.
func (idx PlayerMatchIndex) MatchIDs() []MatchID {
	seen := make(MatchIDSet)
	var out []MatchID
	for _, pm := range idx {
		for _, m := range pm.Matches {
			if !seen.Has(m.MatchID) {
				seen.Add(m.MatchID)
				out = append(out, m.MatchID)
			}
		}
	}
	return out
}

// ---- Persisted dataset ----

// Row is one (player, match) record of the dataset.
type Row struct {
	User      string
	MatchID   MatchID
	StartTime int64
	EndTime   int64
	Map       string
	Stats     map[string]float64 // flattened mode-bucket statistics
}

// Stat returns the named statistic, or 0 if the row has none.
func (r *Row) Stat(name string) float64 {
	return r.Stats[name]
}

// KDRatio returns kills/deaths, or kills when the player never died.
func (r *Row) KDRatio() float64 {
	deaths := r.Stat("deaths")
	if deaths == 0 {
		return r.Stat("kills")
	}
	return r.Stat("kills") / deaths
}

// Dataset is the accumulated table. Columns holds the stat column order;
// the fixed columns (user, matchId, startTime, endTime, map) are implicit.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// FixedColumns are the leading columns every dataset row carries.
var FixedColumns = []string{"user", "matchId", "startTime", "endTime", "map"}
