package segment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestBin(t *testing.T) {
	t.Parallel()
	tests := []struct {
		km, length, start, end float64
	}{
		{23.7, 10, 20, 30},
		{20, 10, 20, 30},
		{0, 10, 0, 10},
		{9.99, 10, 0, 10},
		{7.5, 5, 5, 10},
		{0.2, 0.5, 0, 0.5},
		{0.7, 0.5, 0.5, 1},
	}
	for _, tt := range tests {
		start, end := Bin(tt.km, tt.length)
		assert.Equal(t, tt.start, start, "km %v", tt.km)
		assert.Equal(t, tt.end, end, "km %v", tt.km)
	}
}

func TestBuild_Assignment(t *testing.T) {
	t.Parallel()
	records := []accident.Record{
		testutil.NewRecord(1, testutil.OnHighway("116", 23.7)),
		testutil.NewRecord(2, testutil.OnHighway("116", 29.9)),
		testutil.NewRecord(3, testutil.OnHighway("101", 5)),
		testutil.NewRecord(4), // no km marker
	}
	res := Build(testutil.NewDataset(records...), DefaultParams())
	require.Nil(t, res.Skip)
	require.Len(t, res.Assignments, 4)

	assert.Equal(t, Assignment{Assigned: true, ID: "BR116_km20", StartKm: 20, EndKm: 30}, res.Assignments[0])
	assert.Equal(t, "BR116_km20", res.Assignments[1].ID)
	assert.Equal(t, "BR101_km0", res.Assignments[2].ID)
	assert.False(t, res.Assignments[3].Assigned)

	require.Len(t, res.Segments, 2)
	ids := []string{res.Segments[0].ID, res.Segments[1].ID}
	if diff := cmp.Diff([]string{"BR101_km0", "BR116_km20"}, ids); diff != "" {
		t.Errorf("segment order mismatch (-want +got):\n%s", diff)
	}
	seg, ok := res.Lookup("BR116_km20")
	require.True(t, ok)
	assert.Equal(t, 2, seg.Count)
	assert.Equal(t, "BR-116 km 20-30 (SP)", seg.Label)
}

func TestBuild_FractionalLength(t *testing.T) {
	t.Parallel()
	records := []accident.Record{
		testutil.NewRecord(1, testutil.OnHighway("101", 0.2)),
		testutil.NewRecord(2, testutil.OnHighway("101", 0.7)),
		testutil.NewRecord(3, testutil.OnHighway("101", 20.1)),
	}
	res := Build(testutil.NewDataset(records...), Params{LengthKm: 0.5, Bounds: accident.DefaultGeoBounds()})
	require.Len(t, res.Segments, 3)

	ids := make([]string, len(res.Segments))
	for i, s := range res.Segments {
		ids[i] = s.ID
	}
	if diff := cmp.Diff([]string{"BR101_km0", "BR101_km0.5", "BR101_km20"}, ids); diff != "" {
		t.Errorf("segment ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "BR101_km0.5", res.Assignments[1].ID)

	seg, ok := res.Lookup("BR101_km0.5")
	require.True(t, ok)
	assert.Equal(t, 0.5, seg.StartKm)
	assert.Equal(t, "BR-101 km 0.5-1 (SP)", seg.Label)
	_, ok = res.Lookup("BR101_km1")
	assert.False(t, ok)
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()
	var records []accident.Record
	for i := 0; i < 40; i++ {
		records = append(records, testutil.NewRecord(int64(i),
			testutil.OnHighway([]string{"116", "381", "040"}[i%3], float64(i*7%90)+0.5),
			testutil.WithCasualties(3, i%5/4, i%2, 1)))
	}
	ds := testutil.NewDataset(records...)
	first := Build(ds, DefaultParams())
	second := Build(ds, DefaultParams())
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(Result{})); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestBuild_MissingField(t *testing.T) {
	t.Parallel()
	ds := testutil.NewDataset(testutil.NewRecord(1, testutil.OnHighway("116", 3)))
	ds.Fields = ds.Fields.Without(accident.FieldKM)

	res := Build(ds, DefaultParams())
	require.NotNil(t, res.Skip)
	assert.Equal(t, accident.SkipMissingField, res.Skip.Reason)
	assert.Equal(t, "segments skipped: missing km", res.Skip.String())
	assert.Empty(t, res.Segments)
	assert.False(t, res.Assignments[0].Assigned)
}

func TestBuild_Summary(t *testing.T) {
	t.Parallel()
	records := []accident.Record{
		testutil.NewRecord(1, testutil.OnHighway("116", 21), testutil.InState("PR", "Curitiba"),
			testutil.At(-25.4, -49.2), testutil.AtHour(6), testutil.WithCause("Chuva", "Colisão traseira"),
			testutil.WithCasualties(2, 1, 0, 0)),
		testutil.NewRecord(2, testutil.OnHighway("116", 22), testutil.InState("PR", "Curitiba"),
			testutil.At(-25.6, -49.4), testutil.AtHour(10), testutil.WithCasualties(4, 0, 1, 1)),
		// invalid coordinates stay out of the centroid
		testutil.NewRecord(3, testutil.OnHighway("116", 23), testutil.InState("SC", "Joinville"),
			testutil.At(0, 0), testutil.AtHour(accident.UnknownHour)),
		// a second segment so scores have something to compare against
		testutil.NewRecord(4, testutil.OnHighway("116", 55)),
	}
	res := Build(testutil.NewDataset(records...), DefaultParams())
	require.Len(t, res.Segments, 2)

	s := res.Segments[0]
	assert.Equal(t, "BR116_km20", s.ID)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1, s.Deaths)
	assert.Equal(t, 2, s.Injured)
	assert.Equal(t, "PR", s.State)
	assert.Equal(t, "Curitiba", s.City)
	assert.Equal(t, "Chuva", s.TopCause)
	assert.Equal(t, "Colisão traseira", s.TopType)
	assert.True(t, s.HasCentroid)
	assert.InDelta(t, -25.5, s.Centroid.Latitude, 1e-9)
	assert.InDelta(t, -49.3, s.Centroid.Longitude, 1e-9)
	assert.InDelta(t, 8.0, s.AvgHour, 1e-9)
	assert.InDelta(t, 0.3, s.AccidentsPerKm, 1e-9)
	assert.InDelta(t, 0.1, s.DeathsPerKm, 1e-9)

	other := res.Segments[1]
	assert.False(t, other.HasCentroid)
	assert.Equal(t, Various, other.TopCause)
	assert.Equal(t, 12.0, other.AvgHour)

	// apk 0.3 vs 0.1 (mean 0.2), severity 20 vs 0 (mean 10)
	assert.InDelta(t, 75+100, s.RiskScore, 1e-9)
	assert.InDelta(t, 25, other.RiskScore, 1e-9)
	assert.Equal(t, 1, s.DangerRank)
	assert.Equal(t, 2, other.DangerRank)
	assert.Equal(t, RiskExtreme, s.RiskCategory)
	assert.Equal(t, RiskLow, other.RiskCategory)
}

func TestBuild_DenseRankTies(t *testing.T) {
	t.Parallel()
	records := []accident.Record{
		testutil.NewRecord(1, testutil.OnHighway("10", 1)),
		testutil.NewRecord(2, testutil.OnHighway("10", 11)),
		testutil.NewRecord(3, testutil.OnHighway("10", 21)),
		testutil.NewRecord(4, testutil.OnHighway("10", 22)),
	}
	res := Build(testutil.NewDataset(records...), DefaultParams())
	require.Len(t, res.Segments, 3)
	ranks := []int{res.Segments[0].DangerRank, res.Segments[1].DangerRank, res.Segments[2].DangerRank}
	assert.Equal(t, []int{2, 2, 1}, ranks)
}

func TestCategory(t *testing.T) {
	t.Parallel()
	assert.Equal(t, RiskLow, Category(0))
	assert.Equal(t, RiskLow, Category(40))
	assert.Equal(t, RiskMedium, Category(60))
	assert.Equal(t, RiskHigh, Category(80))
	assert.Equal(t, RiskExtreme, Category(80.5))
	assert.Equal(t, RiskExtreme, Category(150))
}

func TestHighwayOrder(t *testing.T) {
	t.Parallel()
	assert.True(t, highwayLess("40", "116"))
	assert.False(t, highwayLess("116", "40"))
	assert.True(t, highwayLess("116", "BR-X"))
}

func TestTop(t *testing.T) {
	t.Parallel()
	segs := []Segment{{ID: "a", RiskScore: 10}, {ID: "b", RiskScore: 30}, {ID: "c", RiskScore: 20}}
	top := Top(segs, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].ID)
	assert.Equal(t, "c", top[1].ID)
	assert.Equal(t, "a", segs[0].ID, "input untouched")
}
