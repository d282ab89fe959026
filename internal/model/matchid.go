package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MatchID identifies one played match. The canonical form is a decimal string
// for numeric ids; ParseMatchID produces it from any boundary representation
// (API numbers, API strings, CSV cells, SQLite text) so ids compare equal no
// matter where they were read.
type MatchID string

// ParseMatchID normalizes s into the canonical MatchID form.
//
// "101", " 101 ", "+101", "00101" and "101.0" all map to "101". Non-numeric ids
// are only trimmed.
func ParseMatchID(s string) MatchID {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if u, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, 64); err == nil {
		return MatchID(strconv.FormatUint(u, 10))
	}
	// pandas writes integer columns holding NaN as floats ("101.0").
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f == math.Trunc(f) && f < 1<<53 {
		return MatchID(strconv.FormatUint(uint64(f), 10))
	}
	return MatchID(s)
}

// MatchIDFromInt returns the canonical MatchID for a numeric id.
func MatchIDFromInt(n uint64) MatchID {
	return MatchID(strconv.FormatUint(n, 10))
}

func (id MatchID) String() string { return string(id) }

// UnmarshalJSON accepts both JSON numbers and JSON strings.
func (id *MatchID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ParseMatchID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("match id: %w", err)
	}
	*id = ParseMatchID(n.String())
	return nil
}

// MatchIDSet is a set of canonical match ids.
type MatchIDSet map[MatchID]struct{}

// NewMatchIDSet builds a set from raw ids, normalizing each one.
func NewMatchIDSet(ids ...string) MatchIDSet {
	s := make(MatchIDSet, len(ids))
	for _, id := range ids {
		s.Add(MatchID(id))
	}
	return s
}

// Add inserts id after normalizing it.
func (s MatchIDSet) Add(id MatchID) {
	if n := ParseMatchID(string(id)); n != "" {
		s[n] = struct{}{}
	}
}

// Has reports whether the normalized id is in the set.
func (s MatchIDSet) Has(id MatchID) bool {
	_, ok := s[ParseMatchID(string(id))]
	return ok
}
