// Package reconcile decides which fetched matches are squad games and which of
// those are not yet in the dataset.
package reconcile

import "github.com/pable/squadstats/internal/model"

// CountPlayers returns, for each match id, the number of distinct players
// whose feed reports it.
func CountPlayers(idx model.PlayerMatchIndex) map[model.MatchID]int {
	counts := make(map[model.MatchID]int)
	for _, pm := range idx {
		seen := make(model.MatchIDSet, len(pm.Matches))
		for _, m := range pm.Matches {
			if seen.Has(m.MatchID) {
				continue
			}
			seen.Add(m.MatchID)
			counts[model.ParseMatchID(string(m.MatchID))]++
		}
	}
	return counts
}

// SquadMatches keeps, per player, only the matches reported by at least
// minTeamSize players. Players left with no matches stay in the result.
func SquadMatches(idx model.PlayerMatchIndex, minTeamSize int) model.PlayerMatchIndex {
	counts := CountPlayers(idx)
	return idx.Filter(func(m model.MatchMetadata) bool {
		return counts[model.ParseMatchID(string(m.MatchID))] >= minTeamSize
	})
}

// RemoveKnown drops every match whose id is already in known. Ids are
// compared in canonical form on both sides.
func RemoveKnown(idx model.PlayerMatchIndex, known model.MatchIDSet) model.PlayerMatchIndex {
	return idx.Filter(func(m model.MatchMetadata) bool {
		return !known.Has(m.MatchID)
	})
}
