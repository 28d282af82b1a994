package geo

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineKm(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		p1    Point
		p2    Point
		want  float64
		delta float64
	}{
		{"same point", Point{-23.55, -46.63}, Point{-23.55, -46.63}, 0, 0},
		{"one degree of latitude", Point{0, -45}, Point{1, -45}, KmPerDegreeLat, 1e-6},
		{"sao paulo to rio", Point{-23.5505, -46.6333}, Point{-22.9068, -43.1729}, 360.75, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.p1, tt.p2)
			assert.InDelta(t, tt.want, got, tt.delta)
			assert.InDelta(t, got, HaversineKm(tt.p2, tt.p1), 1e-9, "symmetric")
		})
	}
}

func TestKmToRadians(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 5/6371.0, KmToRadians(5), 1e-15)
}

func TestCentroid(t *testing.T) {
	t.Parallel()
	c, ok := Centroid([]Point{{-10, -40}, {-12, -42}})
	require.True(t, ok)
	assert.Equal(t, Point{-11, -41}, c)

	_, ok = Centroid(nil)
	assert.False(t, ok)
}

func TestMaxDistanceKm(t *testing.T) {
	t.Parallel()
	center := Point{0, -45}
	pts := []Point{{0, -45}, {0.5, -45}, {1, -45}}
	assert.InDelta(t, KmPerDegreeLat, MaxDistanceKm(center, pts), 1e-6)
	assert.Equal(t, 0.0, MaxDistanceKm(center, nil))
}

func bruteForce(points []Point, idx int, radiusKm float64) []int {
	var out []int
	for j, p := range points {
		if HaversineKm(points[idx], p) <= radiusKm {
			out = append(out, j)
		}
	}
	return out
}

func TestSpatialIndex_MatchesBruteForce(t *testing.T) {
	t.Parallel()
	// Deterministic spread of points across southern Brazil, dense enough
	// that many neighbourhoods cross cell borders.
	var points []Point
	for i := 0; i < 400; i++ {
		lat := -33 + math.Mod(float64(i)*0.0731, 1.5)
		lon := -53 + math.Mod(float64(i)*0.0517, 1.5)
		points = append(points, Point{lat, lon})
	}
	si := NewSpatialIndex(points, 5)
	require.Equal(t, len(points), si.Len())

	for i := range points {
		got := si.RegionQuery(i)
		sort.Ints(got)
		assert.Equal(t, bruteForce(points, i, 5), got, "point %d", i)
	}
}

func TestSpatialIndex_IncludesSelf(t *testing.T) {
	t.Parallel()
	si := NewSpatialIndex([]Point{{-20, -45}, {-25, -50}}, 1)
	assert.Equal(t, []int{0}, si.RegionQuery(0))
	assert.Equal(t, []int{1}, si.RegionQuery(1))
}

func TestSpatialIndex_ZeroRadius(t *testing.T) {
	t.Parallel()
	si := NewSpatialIndex([]Point{{-20, -45}, {-20, -45}, {-21, -45}}, 0)
	got := si.RegionQuery(0)
	sort.Ints(got)
	assert.Equal(t, []int{0, 1}, got)
}
