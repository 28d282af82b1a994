// Package stats computes grouped baselines over accident records and holds
// the small numeric helpers shared by every scoring dimension: ratio with a
// zero guard, normalisation to a mean of 50, clamping, dense ranking,
// quantiles, modes and percentile ranks.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Ratio divides value by mean. ok is false when mean is zero or the result
// would not be finite; callers drop the sub-score instead of letting NaN
// reach a composite.
func Ratio(value, mean float64) (float64, bool) {
	if mean == 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, false
	}
	r := value / mean
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// NormalizeToFifty scales value so that a value equal to mean scores 50.
func NormalizeToFifty(value, mean float64) (float64, bool) {
	r, ok := Ratio(value, mean)
	if !ok {
		return 0, false
	}
	return r * 50, true
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Mean is the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// DenseRank ranks values in descending order: the largest value gets rank
// 1, ties share a rank and the next distinct value gets the next integer.
func DenseRank(values []float64) []int {
	ranks := make([]int, len(values))
	if len(values) == 0 {
		return ranks
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })

	rank := 0
	for i, j := range idx {
		if i == 0 || values[j] != values[idx[i-1]] {
			rank++
		}
		ranks[j] = rank
	}
	return ranks
}

// Quantile returns the q-quantile (0 <= q <= 1) of xs using linear
// interpolation between the two closest ranks, h = (n-1)q. This is the
// default of most dataframe libraries; gonum's LinInterp interpolates the
// empirical CDF instead and gives different results on small samples.
// xs is not modified. Returns NaN for an empty slice.
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	q = Clamp(q, 0, 1)
	h := float64(len(sorted)-1) * q
	lo := math.Floor(h)
	hi := math.Ceil(h)
	if lo == hi {
		return sorted[int(lo)]
	}
	return sorted[int(lo)] + (h-lo)*(sorted[int(hi)]-sorted[int(lo)])
}

// PercentileRank returns, for every value, its rank as a percentage of n
// (1..n scaled to 100/n..100). Tied values receive the average of the
// ranks they span.
func PercentileRank(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	for start := 0; start < n; {
		end := start + 1
		for end < n && values[idx[end]] == values[idx[start]] {
			end++
		}
		// ranks start+1..end share their mean
		avg := float64(start+1+end) / 2
		for k := start; k < end; k++ {
			out[idx[k]] = avg / float64(n) * 100
		}
		start = end
	}
	return out
}

// Mode returns the most frequent value. Ties go to the value encountered
// first in input order. ok is false for an empty slice.
func Mode[T comparable](values []T) (mode T, ok bool) {
	if len(values) == 0 {
		return mode, false
	}
	counts := make(map[T]int, len(values))
	best := 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if c := counts[v]; c > best {
			best = c
			mode = v
		}
	}
	return mode, true
}
