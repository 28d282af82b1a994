package stats

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roadrisk/internal/accident"
)

func TestRatio(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		value  float64
		mean   float64
		want   float64
		wantOK bool
	}{
		{"plain", 10, 5, 2, true},
		{"zero mean", 10, 0, 0, false},
		{"nan mean", 10, math.NaN(), 0, false},
		{"inf mean", 10, math.Inf(1), 0, false},
		{"nan value", math.NaN(), 5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Ratio(tt.value, tt.mean)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeToFifty(t *testing.T) {
	t.Parallel()
	v, ok := NormalizeToFifty(4, 4)
	require.True(t, ok)
	assert.Equal(t, 50.0, v)

	v, ok = NormalizeToFifty(8, 4)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)

	_, ok = NormalizeToFifty(8, 0)
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, Clamp(-3, 0, 100))
	assert.Equal(t, 100.0, Clamp(120, 0, 100))
	assert.Equal(t, 42.0, Clamp(42, 0, 100))
}

func TestDenseRank(t *testing.T) {
	t.Parallel()
	got := DenseRank([]float64{10, 7, 10, 3})
	if diff := cmp.Diff([]int{1, 2, 1, 3}, got); diff != "" {
		t.Errorf("DenseRank mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, DenseRank(nil))
}

func TestQuantile(t *testing.T) {
	t.Parallel()
	xs := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Quantile(xs, 0))
	assert.Equal(t, 5.0, Quantile(xs, 1))
	assert.Equal(t, 3.0, Quantile(xs, 0.5))
	assert.InDelta(t, 4.2, Quantile(xs, 0.8), 1e-9)
	assert.InDelta(t, 2.5, Quantile([]float64{4, 1}, 0.5), 1e-9)
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))

	// input order is preserved
	in := []float64{3, 1, 2}
	Quantile(in, 0.5)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestPercentileRank(t *testing.T) {
	t.Parallel()
	got := PercentileRank([]float64{10, 20, 20, 40})
	want := []float64{25, 62.5, 62.5, 100}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PercentileRank mismatch (-want +got):\n%s", diff)
	}
}

func TestMode(t *testing.T) {
	t.Parallel()
	m, ok := Mode([]string{"b", "a", "a", "b", "c"})
	require.True(t, ok)
	assert.Equal(t, "b", m, "ties resolve to the first encountered value")

	n, ok := Mode([]int{3, 1, 1})
	require.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = Mode[string](nil)
	assert.False(t, ok)
}

func TestBuild(t *testing.T) {
	t.Parallel()
	records := []accident.Record{
		{Highway: "116", KM: 10, HasKM: true, Deaths: 1, Injured: 2},
		{Highway: "101", KM: 3, HasKM: true},
		{Highway: "116", KM: 10, HasKM: true},
		{Highway: "116", KM: 12.5, HasKM: true, Injured: 1},
		{Highway: ""},
	}
	tbl := Build(records, ByHighway)
	require.Equal(t, 2, tbl.Len())

	groups := tbl.Groups()
	assert.Equal(t, "116", groups[0].Key, "first encountered key comes first")
	assert.Equal(t, "101", groups[1].Key)

	g, ok := tbl.Lookup("116")
	require.True(t, ok)
	assert.Equal(t, 3, g.Count)
	assert.Equal(t, 1, g.Deaths)
	assert.Equal(t, 3, g.Injured)
	assert.Equal(t, 2, g.DistinctKM)
	assert.InDelta(t, 100.0/3, g.FatalityRate, 1e-9)
	assert.InDelta(t, 1.5, g.AccidentsPerKM(), 1e-9)

	_, ok = tbl.Lookup("999")
	assert.False(t, ok)

	assert.InDelta(t, 2.0, tbl.MeanCount(), 1e-9)
	// mean of per-group rates, not the pooled 25%
	assert.InDelta(t, 100.0/6, tbl.MeanFatalityRate(), 1e-9)
}

func TestBuild_UnknownKeysDropped(t *testing.T) {
	t.Parallel()
	records := []accident.Record{
		{Hour: accident.UnknownHour},
		{Hour: 7},
		{Hour: 7},
		{Hour: 23},
	}
	tbl := Build(records, ByHour)
	assert.Equal(t, 2, tbl.Len())

	ranks := tbl.DenseRanks()
	assert.Equal(t, map[int]int{7: 1, 23: 2}, ranks)
}

func TestGroup_AccidentsPerKMWithoutMarkers(t *testing.T) {
	t.Parallel()
	g := Group[string]{Count: 4}
	assert.Equal(t, 4.0, g.AccidentsPerKM())
}

func TestMean(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}
