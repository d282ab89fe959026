package codapi

import (
	"encoding/json"

	"github.com/pable/squadstats/internal/model"
)

// envelope is the wrapper every papi-client response uses.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// errorData is the data payload when Status is "error".
type errorData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Match is one entry of the match history. Only the fields the pipeline
// needs are decoded.
type Match struct {
	MatchID         model.MatchID `json:"matchID"`
	UTCStartSeconds int64         `json:"utcStartSeconds"`
	UTCEndSeconds   int64         `json:"utcEndSeconds"`
	Map             string        `json:"map"`
	Mode            string        `json:"mode"`
}

// matchesData is the data payload of the match history endpoint. Summary is
// keyed by mode bucket ("all", "sd", "war", ...); non-numeric values inside a
// bucket are dropped by numericBuckets.
type matchesData struct {
	Matches []Match                   `json:"matches"`
	Summary map[string]map[string]any `json:"summary"`
}

func numericBuckets(summary map[string]map[string]any) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(summary))
	for bucket, stats := range summary {
		m := make(map[string]float64, len(stats))
		for k, v := range stats {
			if f, ok := v.(float64); ok {
				m[k] = f
			}
		}
		out[bucket] = m
	}
	return out
}
