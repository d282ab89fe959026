package aggregator

import (
	"sort"

	"github.com/pable/squadstats/internal/model"
)

// PlayerAggregate sums one player's rows across the whole dataset.
type PlayerAggregate struct {
	User     string
	Matches  int
	Kills    float64
	Deaths   float64
	Assists  float64
	Wins     float64
	Losses   float64
	MedianKD float64
	BestKD   float64
	// Maps counts matches per raw map id.
	Maps map[string]int
}

// KDRatio returns kills/deaths over all matches; with no deaths it is the kill count.
func (a PlayerAggregate) KDRatio() float64 {
	if a.Deaths == 0 {
		return a.Kills
	}
	return a.Kills / a.Deaths
}

// WinPct returns the share of decided matches won, in percent.
func (a PlayerAggregate) WinPct() float64 {
	if a.Wins+a.Losses == 0 {
		return 0
	}
	return 100 * a.Wins / (a.Wins + a.Losses)
}

// Aggregate groups rows by user. The result follows first-seen user order.
func Aggregate(d *model.Dataset) []PlayerAggregate {
	if d == nil {
		return nil
	}

	order := []string{}
	byUser := make(map[string]*PlayerAggregate)
	kds := make(map[string][]float64)

	for i := range d.Rows {
		r := &d.Rows[i]
		a, ok := byUser[r.User]
		if !ok {
			a = &PlayerAggregate{User: r.User, Maps: make(map[string]int)}
			byUser[r.User] = a
			order = append(order, r.User)
		}
		a.Matches++
		a.Kills += r.Stat("kills")
		a.Deaths += r.Stat("deaths")
		a.Assists += r.Stat("assists")
		a.Wins += r.Stat("wins")
		a.Losses += r.Stat("losses")
		a.Maps[r.Map]++

		kd := r.KDRatio()
		kds[r.User] = append(kds[r.User], kd)
		if kd > a.BestKD {
			a.BestKD = kd
		}
	}

	out := make([]PlayerAggregate, 0, len(order))
	for _, u := range order {
		a := byUser[u]
		sorted := kds[u]
		sort.Float64s(sorted)
		a.MedianKD = median(sorted)
		out = append(out, *a)
	}
	return out
}

// median returns the median of a pre-sorted (ascending) slice of float64.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
