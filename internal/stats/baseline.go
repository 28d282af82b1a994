package stats

import (
	"github.com/banshee-data/roadrisk/internal/accident"
)

// Group is the aggregate of every record sharing one key.
type Group[K comparable] struct {
	Key          K
	Count        int
	Deaths       int
	Injured      int
	DistinctKM   int
	FatalityRate float64 // deaths / count * 100
}

// AccidentsPerKM divides the group's volume by its distinct kilometre
// markers. A group with no markers counts as one marker.
func (g Group[K]) AccidentsPerKM() float64 {
	if g.DistinctKM == 0 {
		return float64(g.Count)
	}
	return float64(g.Count) / float64(g.DistinctKM)
}

// Table holds the groups of one baseline in first-encountered key order.
type Table[K comparable] struct {
	groups []Group[K]
	index  map[K]int
}

// KeyFunc extracts the grouping key of a record. ok is false when the key
// is unknown, in which case the record is left out of the baseline.
type KeyFunc[K comparable] func(accident.Record) (key K, ok bool)

// Build groups records by key.
func Build[K comparable](records []accident.Record, key KeyFunc[K]) *Table[K] {
	t := &Table[K]{index: make(map[K]int)}
	kms := make(map[K]map[float64]struct{})

	for _, r := range records {
		k, ok := key(r)
		if !ok {
			continue
		}
		i, seen := t.index[k]
		if !seen {
			i = len(t.groups)
			t.index[k] = i
			t.groups = append(t.groups, Group[K]{Key: k})
			kms[k] = make(map[float64]struct{})
		}
		g := &t.groups[i]
		g.Count++
		g.Deaths += r.Deaths
		g.Injured += r.Injured
		if r.HasKM {
			kms[k][r.KM] = struct{}{}
		}
	}

	for i := range t.groups {
		g := &t.groups[i]
		g.DistinctKM = len(kms[g.Key])
		g.FatalityRate = float64(g.Deaths) / float64(g.Count) * 100
	}
	return t
}

// Len returns the number of groups.
func (t *Table[K]) Len() int { return len(t.groups) }

// Groups returns the groups in first-encountered order.
func (t *Table[K]) Groups() []Group[K] { return t.groups }

// Lookup returns the group for key.
func (t *Table[K]) Lookup(key K) (Group[K], bool) {
	i, ok := t.index[key]
	if !ok {
		return Group[K]{}, false
	}
	return t.groups[i], true
}

// MeanOf is the unweighted mean of metric across groups. Every group
// weighs the same regardless of its volume.
func (t *Table[K]) MeanOf(metric func(Group[K]) float64) float64 {
	if len(t.groups) == 0 {
		return 0
	}
	xs := make([]float64, len(t.groups))
	for i, g := range t.groups {
		xs[i] = metric(g)
	}
	return Mean(xs)
}

// MeanCount is the mean group volume.
func (t *Table[K]) MeanCount() float64 {
	return t.MeanOf(func(g Group[K]) float64 { return float64(g.Count) })
}

// MeanFatalityRate is the mean of per-group fatality rates, not the pooled
// rate.
func (t *Table[K]) MeanFatalityRate() float64 {
	return t.MeanOf(func(g Group[K]) float64 { return g.FatalityRate })
}

// DenseRanks ranks groups by descending count. Equal counts share a rank.
func (t *Table[K]) DenseRanks() map[K]int {
	counts := make([]float64, len(t.groups))
	for i, g := range t.groups {
		counts[i] = float64(g.Count)
	}
	ranks := DenseRank(counts)
	out := make(map[K]int, len(t.groups))
	for i, g := range t.groups {
		out[g.Key] = ranks[i]
	}
	return out
}

// Common key functions.

// ByHour groups by hour of day.
func ByHour(r accident.Record) (int, bool) { return r.Hour, r.HourKnown() }

// ByDay groups by day of week.
func ByDay(r accident.Record) (int, bool) { return r.DayOfWeek, r.DayKnown() }

// ByHighway groups by highway number.
func ByHighway(r accident.Record) (string, bool) { return r.Highway, r.Highway != "" }

// ByState groups by state code.
func ByState(r accident.Record) (string, bool) { return r.State, r.State != "" }

// ByWeather groups by weather condition.
func ByWeather(r accident.Record) (string, bool) { return r.Weather, r.Weather != "" }

// ByRoadType groups by road type.
func ByRoadType(r accident.Record) (string, bool) { return r.RoadType, r.RoadType != "" }
