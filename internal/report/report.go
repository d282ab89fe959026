package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/squadstats/internal/aggregator"
	"github.com/pable/squadstats/internal/model"
)

// DisplayMap strips the title prefix from a map id: "mp_hackney_yard" -> "hackney_yard".
func DisplayMap(id string) string {
	if _, rest, ok := strings.Cut(id, "_"); ok && rest != "" {
		return rest
	}
	return id
}

// KDTable holds per-player per-map K/D. Players and Maps are in first-seen order.
type KDTable struct {
	Players []string
	Maps    []string
	kd      map[string]map[string]float64
}

// Get returns the K/D for player on map and whether the player has played it.
func (t *KDTable) Get(player, mapID string) (float64, bool) {
	v, ok := t.kd[player][mapID]
	return v, ok
}

// MapKD computes sum(kills)/sum(deaths) for each (player, map). A player with
// kills but no deaths on a map gets their kill total.
func MapKD(d *model.Dataset) *KDTable {
	t := &KDTable{kd: make(map[string]map[string]float64)}
	type totals struct{ kills, deaths float64 }
	sums := make(map[string]map[string]*totals)
	seenMap := make(map[string]bool)

	for i := range d.Rows {
		r := &d.Rows[i]
		if _, ok := sums[r.User]; !ok {
			sums[r.User] = make(map[string]*totals)
			t.Players = append(t.Players, r.User)
		}
		if !seenMap[r.Map] {
			seenMap[r.Map] = true
			t.Maps = append(t.Maps, r.Map)
		}
		s, ok := sums[r.User][r.Map]
		if !ok {
			s = &totals{}
			sums[r.User][r.Map] = s
		}
		s.kills += r.Stat("kills")
		s.deaths += r.Stat("deaths")
	}

	for player, byMap := range sums {
		t.kd[player] = make(map[string]float64, len(byMap))
		for m, s := range byMap {
			if s.deaths == 0 {
				t.kd[player][m] = s.kills
				continue
			}
			t.kd[player][m] = s.kills / s.deaths
		}
	}
	return t
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// PrintMapKDTable prints one row per map and one K/D column per player.
func PrintMapKDTable(w io.Writer, t *KDTable) {
	table := newTable(w)

	header := []any{"MAP"}
	for _, p := range t.Players {
		header = append(header, strings.ToUpper(p))
	}
	table.Header(header...)

	for _, m := range t.Maps {
		row := []any{DisplayMap(m)}
		for _, p := range t.Players {
			if kd, ok := t.Get(p, m); ok {
				row = append(row, fmt.Sprintf("%.2f", kd))
			} else {
				row = append(row, "—")
			}
		}
		table.Append(row...)
	}
	table.Render()
}

// PrintPlayerOverview prints overall per-player totals across the dataset.
func PrintPlayerOverview(w io.Writer, aggs []aggregator.PlayerAggregate) {
	table := newTable(w)
	table.Header("PLAYER", "MATCHES", "K", "D", "A", "K/D", "MEDIAN_KD", "BEST_KD", "WIN%")

	for _, a := range aggs {
		winPct := "—"
		if a.Wins+a.Losses > 0 {
			winPct = fmt.Sprintf("%.0f%%", a.WinPct())
		}
		table.Append(
			a.User,
			strconv.Itoa(a.Matches),
			formatStat(a.Kills),
			formatStat(a.Deaths),
			formatStat(a.Assists),
			fmt.Sprintf("%.2f", a.KDRatio()),
			fmt.Sprintf("%.2f", a.MedianKD),
			fmt.Sprintf("%.2f", a.BestKD),
			winPct,
		)
	}
	table.Render()
}

// TrendPoint is one match in a player's chronological history.
type TrendPoint struct {
	MatchID   model.MatchID
	StartTime int64
	Map       string
	Kills     float64
	Deaths    float64
	KD        float64
	// RollingKD is kills/deaths over this match and the ones before it.
	RollingKD float64
}

// PlayerTrend returns the user's matches ordered by start time.
func PlayerTrend(d *model.Dataset, user string) []TrendPoint {
	var rows []model.Row
	for _, r := range d.Rows {
		if r.User == user {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StartTime < rows[j].StartTime })

	out := make([]TrendPoint, 0, len(rows))
	var kills, deaths float64
	for i := range rows {
		r := &rows[i]
		kills += r.Stat("kills")
		deaths += r.Stat("deaths")
		rolling := kills
		if deaths > 0 {
			rolling = kills / deaths
		}
		out = append(out, TrendPoint{
			MatchID:   r.MatchID,
			StartTime: r.StartTime,
			Map:       r.Map,
			Kills:     r.Stat("kills"),
			Deaths:    r.Stat("deaths"),
			KD:        r.KDRatio(),
			RollingKD: rolling,
		})
	}
	return out
}

// PrintTrendTable prints a chronological per-match table for one player.
func PrintTrendTable(w io.Writer, points []TrendPoint) {
	table := newTable(w)
	table.Header("DATE", "MATCH", "MAP", "K", "D", "K/D", "ROLLING_KD")

	for _, p := range points {
		table.Append(
			time.Unix(p.StartTime, 0).UTC().Format("2006-01-02 15:04"),
			string(p.MatchID),
			DisplayMap(p.Map),
			formatStat(p.Kills),
			formatStat(p.Deaths),
			fmt.Sprintf("%.2f", p.KD),
			fmt.Sprintf("%.2f", p.RollingKD),
		)
	}
	table.Render()
}

// PrintRows prints the dataset rows with the given extra stat columns.
func PrintRows(w io.Writer, rows []model.Row, stats []string) {
	table := newTable(w)

	header := []any{"#", "USER", "MATCH", "START", "MAP"}
	for _, s := range stats {
		header = append(header, strings.ToUpper(s))
	}
	table.Header(header...)

	for i, r := range rows {
		line := []any{
			strconv.Itoa(i),
			r.User,
			string(r.MatchID),
			time.Unix(r.StartTime, 0).UTC().Format("2006-01-02 15:04"),
			DisplayMap(r.Map),
		}
		for _, s := range stats {
			v, ok := r.Stats[s]
			if !ok {
				line = append(line, "—")
				continue
			}
			line = append(line, formatStat(v))
		}
		table.Append(line...)
	}
	table.Render()
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
