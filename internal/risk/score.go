// Package risk scores every accident against statistical baselines of the
// whole dataset. Each record gets time, location and condition scores
// normalised so that an average group scores 50, a weighted composite
// clamped to 0-100, a high-risk flag from a percentile threshold and the
// danger ranks of its hour, day, state and highway.
package risk

import (
	"math"

	"github.com/banshee-data/roadrisk/internal/stats"
)

// Composite weights.
const (
	LocationWeight  = 0.4
	TimeWeight      = 0.3
	ConditionWeight = 0.3

	// DeathAmplifier multiplies the composite of accidents with deaths.
	DeathAmplifier = 1.2

	// Neutral is the score of an average group, and the score of a record
	// whose group is unknown.
	Neutral = 50.0
)

// DefaultHighRiskPercentile flags the top fifth of composites.
const DefaultHighRiskPercentile = 80.0

// Params configures scoring.
type Params struct {
	HighRiskPercentile float64 // 0-100
}

// DefaultParams returns the scoring defaults.
func DefaultParams() Params {
	return Params{HighRiskPercentile: DefaultHighRiskPercentile}
}

// subScorer scores a group key against one baseline table. Each metric
// contributes ratio*50/n over the n metrics whose mean is non-zero, so the
// scores of all groups average 50.
type subScorer[K comparable] struct {
	table   *stats.Table[K]
	metrics []func(stats.Group[K]) float64
	means   []float64
}

func newSubScorer[K comparable](table *stats.Table[K], metrics ...func(stats.Group[K]) float64) *subScorer[K] {
	s := &subScorer[K]{table: table}
	for _, m := range metrics {
		mean := table.MeanOf(m)
		if _, ok := stats.Ratio(1, mean); !ok {
			continue
		}
		s.metrics = append(s.metrics, m)
		s.means = append(s.means, mean)
	}
	return s
}

func (s *subScorer[K]) score(key K, known bool) float64 {
	if !known || len(s.metrics) == 0 {
		return Neutral
	}
	g, ok := s.table.Lookup(key)
	if !ok {
		return Neutral
	}
	n := float64(len(s.metrics))
	var total float64
	for i, m := range s.metrics {
		v, ok := stats.NormalizeToFifty(m(g), s.means[i])
		if !ok {
			continue
		}
		total += v / n
	}
	return total
}

func volume[K comparable](g stats.Group[K]) float64       { return float64(g.Count) }
func fatalityRate[K comparable](g stats.Group[K]) float64 { return g.FatalityRate }
func perKM[K comparable](g stats.Group[K]) float64        { return g.AccidentsPerKM() }

// dimension averages the available sub-dimension scores, Neutral when none
// is available.
func dimension(scores ...float64) float64 {
	var avail []float64
	for _, s := range scores {
		if !math.IsNaN(s) {
			avail = append(avail, s)
		}
	}
	if len(avail) == 0 {
		return Neutral
	}
	return stats.Mean(avail)
}

// unavailable marks a sub-dimension whose field is absent.
var unavailable = math.NaN()

// Composite weights the dimension scores, amplifies accidents with deaths
// and clamps the result to 0-100. base is the weighted sum before
// amplification and clamping.
func Composite(location, time, condition float64, deaths int) (base, composite float64) {
	base = location*LocationWeight + time*TimeWeight + condition*ConditionWeight
	composite = base
	if deaths >= 1 {
		composite *= DeathAmplifier
	}
	return base, stats.Clamp(composite, 0, 100)
}
