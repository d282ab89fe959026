// Package dataset holds the append-only match table: merging new rows and
// persisting it as CSV.
package dataset

import (
	"sort"

	"github.com/pable/squadstats/internal/model"
)

// Merge returns a new dataset with existing's rows first, in order, followed
// by incoming in input order. Stat columns first seen in incoming are appended
// to the column order, sorted among themselves. No deduplication is done here.
func Merge(existing *model.Dataset, incoming []model.Row) *model.Dataset {
	out := &model.Dataset{}
	if existing != nil {
		out.Columns = append(out.Columns, existing.Columns...)
		out.Rows = append(out.Rows, existing.Rows...)
	}

	known := make(map[string]bool, len(out.Columns))
	for _, c := range out.Columns {
		known[c] = true
	}
	var added []string
	for _, r := range incoming {
		for k := range r.Stats {
			if !known[k] {
				known[k] = true
				added = append(added, k)
			}
		}
	}
	sort.Strings(added)
	out.Columns = append(out.Columns, added...)
	out.Rows = append(out.Rows, incoming...)
	return out
}

// KnownIDs returns the set of match ids present in d.
func KnownIDs(d *model.Dataset) model.MatchIDSet {
	set := make(model.MatchIDSet)
	if d == nil {
		return set
	}
	for _, r := range d.Rows {
		set.Add(r.MatchID)
	}
	return set
}

// Users returns the distinct users of d in first-seen order.
func Users(d *model.Dataset) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.Rows {
		if !seen[r.User] {
			seen[r.User] = true
			out = append(out, r.User)
		}
	}
	return out
}
