package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/cluster"
	"github.com/banshee-data/roadrisk/internal/geo"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/risk"
	"github.com/banshee-data/roadrisk/internal/segment"
	"github.com/banshee-data/roadrisk/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "roadrisk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(id string) Run {
	records := []accident.Record{
		testutil.NewRecord(1, testutil.OnHighway("116", 23.7), testutil.At(-23.5, -46.6), testutil.WithCasualties(2, 1, 0, 0)),
		testutil.NewRecord(2, testutil.OnHighway("116", 25.1), testutil.At(-23.51, -46.61)),
		testutil.NewRecord(3, testutil.AtHour(accident.UnknownHour)),
	}
	return Run{
		ID:        id,
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Version:   "test",
		InputPath: "datatran2024.csv",
		Settings:  `{"cluster_eps_km":5}`,
		Threshold: 72.5,
		Records:   records,
		Assessments: []risk.Assessment{
			{Composite: 90, HighRisk: true},
			{Composite: 50},
			{Composite: 20},
		},
		ClusterLabels: []int{0, 0, cluster.Noise},
		Clusters: []cluster.Cluster{{
			ID:              0,
			Centroid:        geo.Point{Latitude: -23.505, Longitude: -46.605},
			Count:           2,
			Deaths:          1,
			AvgSeverity:     25,
			PredominantHour: 12,
			PredominantDay:  accident.UnknownDay,
			RadiusKm:        0.8,
			DensityScore:    1.2,
			HeatIntensity:   1,
			RiskCategory:    cluster.RiskMedium,
		}},
		Assignments: []segment.Assignment{
			{Assigned: true, ID: "BR116_km20", StartKm: 20, EndKm: 30},
			{Assigned: true, ID: "BR116_km20", StartKm: 20, EndKm: 30},
			{},
		},
		Segments: []segment.Segment{{
			ID: "BR116_km20", Highway: "116", StartKm: 20, EndKm: 30, Count: 2, Deaths: 1,
			AccidentsPerKm: 0.2, DeathsPerKm: 0.1, RiskScore: 100, DangerRank: 1,
			RiskCategory: segment.RiskExtreme, Label: "BR-116 km 20-30 (SP)",
		}},
	}
}

func countRows(t *testing.T, db *DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestNewDB_MigratesToLatest(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), latest)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, latest, version)

	// migrating again is a no-op
	assert.NoError(t, db.MigrateUp())
}

func TestOpenDB_NoSchema(t *testing.T) {
	t.Parallel()
	db, err := OpenDB(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}

func TestSaveRun(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, sampleRun("run-1")))

	assert.Equal(t, 3, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE run_id = ?`, "run-1"))
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM clusters WHERE run_id = ?`, "run-1"))
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM segments WHERE run_id = ?`, "run-1"))
	assert.Equal(t, 2, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE segment_id = 'BR116_km20'`))
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE cluster_id IS NULL`))
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE hour IS NULL`))
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE high_risk = 1`))
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM clusters WHERE predominant_day IS NULL`))

	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 3, runs[0].RecordCount)
	assert.Equal(t, 1, runs[0].ClusterCount)
	assert.Equal(t, 1, runs[0].SegmentCount)
	assert.True(t, runs[0].Threshold.Valid)
	assert.Equal(t, 72.5, runs[0].Threshold.Float64)
	assert.True(t, runs[0].CreatedAt.Equal(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
}

func TestSaveRun_WithoutOptionalStages(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	run := sampleRun("bare")
	run.ClusterLabels, run.Clusters = nil, nil
	run.Assignments, run.Segments = nil, nil
	require.NoError(t, db.SaveRun(context.Background(), run))

	assert.Equal(t, 3, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE cluster_id IS NULL AND segment_id IS NULL`))
	assert.Equal(t, 0, countRows(t, db, `SELECT COUNT(*) FROM clusters`))
}

func TestSaveRun_RepeatedAccidentIDs(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	run := sampleRun("repeat")
	for i := range run.Records {
		run.Records[i].ID = 7
	}
	require.NoError(t, db.SaveRun(context.Background(), run))

	assert.Equal(t, 3, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE run_id = ? AND accident_id = 7`, "repeat"))
	assert.Equal(t, 1, countRows(t, db, `SELECT COUNT(*) FROM accidents WHERE run_id = ? AND row_index = 2 AND hour IS NULL`, "repeat"))
}

func TestSaveRun_DuplicateRollsBack(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, sampleRun("dup")))
	assert.Error(t, db.SaveRun(ctx, sampleRun("dup")))
	assert.Equal(t, 3, countRows(t, db, `SELECT COUNT(*) FROM accidents`))
}

func TestSaveRun_Invalid(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	run := sampleRun("")
	assert.Error(t, db.SaveRun(context.Background(), run))

	run = sampleRun("misaligned")
	run.Assessments = run.Assessments[:2]
	assert.Error(t, db.SaveRun(context.Background(), run))
	assert.Equal(t, 0, countRows(t, db, `SELECT COUNT(*) FROM runs`))
}

func TestDeleteRun_Cascades(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SaveRun(ctx, sampleRun("a")))
	require.NoError(t, db.SaveRun(ctx, sampleRun("b")))
	require.NoError(t, db.DeleteRun(ctx, "a"))

	assert.Equal(t, 3, countRows(t, db, `SELECT COUNT(*) FROM accidents`))
	assert.Equal(t, 0, countRows(t, db, `SELECT COUNT(*) FROM segments WHERE run_id = 'a'`))

	err := db.DeleteRun(ctx, "a")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestMigrateDown(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	require.NoError(t, db.MigrateDown())

	assert.Equal(t, 0, countRows(t, db, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='runs'`))
}
