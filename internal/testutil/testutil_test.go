package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/geo"
)

func TestAssertNoError_NilErr(t *testing.T) {
	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	assert.False(t, fakeT.Failed())
}

func TestAssertError_FailurePath(t *testing.T) {
	t.Parallel()
	ok := t.Run("nil error", func(t *testing.T) {
		AssertError(t, nil)
	})
	assert.False(t, ok, "expected subtest to fail on nil error")
	AssertError(t, errors.New("boom"))
}

func TestNewRecord(t *testing.T) {
	t.Parallel()
	r := NewRecord(7, At(-23.5, -46.6), OnHighway("116", 23.7), WithCasualties(4, 1, 1, 2))
	assert.Equal(t, int64(7), r.ID)
	assert.True(t, r.HasCoordinates)
	assert.True(t, r.HasKM)
	assert.Equal(t, 3, r.Injured)
	assert.Equal(t, 0, r.Uninjured)
	assert.Equal(t, accident.SeverityFatal, r.SeverityClass)
	assert.InDelta(t, 37.5, r.SeverityScore, 1e-9)
}

func TestTightCluster(t *testing.T) {
	t.Parallel()
	center := geo.Point{Latitude: -23.5, Longitude: -46.6}
	for _, p := range TightCluster(center, 15, 2) {
		assert.LessOrEqual(t, geo.HaversineKm(center, p), 2.01)
	}
}

func TestScattered(t *testing.T) {
	t.Parallel()
	pts := Scattered(geo.Point{Latitude: -10, Longitude: -50}, 3, 20)
	assert.InDelta(t, 20, geo.HaversineKm(pts[0], pts[1]), 0.1)
	assert.InDelta(t, 20, geo.HaversineKm(pts[1], pts[2]), 0.1)
}

func TestSampleDataset(t *testing.T) {
	t.Parallel()
	ds := SampleDataset()
	assert.Equal(t, 25, ds.Len())
	assert.Equal(t, 25, accident.DefaultGeoBounds().CountValid(ds.Records))

	deaths := 0
	for _, r := range ds.Records {
		deaths += r.Deaths
	}
	assert.Equal(t, 1, deaths)
}
