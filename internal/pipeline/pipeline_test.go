package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/cluster"
	"github.com/banshee-data/roadrisk/internal/config"
	"github.com/banshee-data/roadrisk/internal/db"
	"github.com/banshee-data/roadrisk/internal/ingest"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/testutil"
	"github.com/banshee-data/roadrisk/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

var epoch = time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu   sync.Mutex
	name string
	err  error
	got  []*Output
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, out *Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, out)
	return s.err
}

func newTestRunner(opts ...Option) *Runner {
	base := []Option{
		WithClock(timeutil.NewMockClock(epoch)),
		WithRunID(func() string { return "run-test" }),
	}
	return New(config.DefaultSettings(), append(base, opts...)...)
}

func TestProcess_SampleDataset(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{name: "memory"}
	ds := testutil.SampleDataset()

	out, err := newTestRunner(WithSinks(sink)).Process(context.Background(), ds, ingest.Quality{Rows: ds.Len()})
	require.NoError(t, err)

	assert.Equal(t, "run-test", out.RunID)
	assert.Equal(t, epoch, out.StartedAt)
	assert.Len(t, out.Attributes, ds.Len())
	assert.Len(t, out.Risk.Assessments, ds.Len())
	assert.Len(t, out.Clusters.Labels, ds.Len())
	assert.Len(t, out.Segments.Assignments, ds.Len())
	assert.Empty(t, out.Skips())

	require.Len(t, out.Clusters.Clusters, 1, "the BR-116 group is the only hotspot")
	assert.Equal(t, 15, out.Clusters.Clusters[0].Count)
	assert.Equal(t, 1.0, out.Clusters.Clusters[0].HeatIntensity)

	assert.NotEmpty(t, out.Segments.Segments)
	assert.NotEmpty(t, out.Tables.Time)
	assert.NotEmpty(t, out.Tables.Location)
	assert.Len(t, out.Tables.MapPoints, ds.Len())

	require.Len(t, sink.got, 1)
	assert.Same(t, out, sink.got[0])
}

func TestOutput_Rows(t *testing.T) {
	t.Parallel()
	ds := testutil.SampleDataset()
	out, err := newTestRunner().Process(context.Background(), ds, ingest.Quality{})
	require.NoError(t, err)

	rows := out.Rows()
	require.Len(t, rows, ds.Len())
	for i, row := range rows {
		assert.Equal(t, ds.Records[i].ID, row.Record.ID)
		if i < 15 {
			assert.True(t, row.Hotspot, "record %d", i)
			assert.Equal(t, 0, row.ClusterID)
		} else {
			assert.False(t, row.Hotspot, "record %d", i)
			assert.Equal(t, cluster.Noise, row.ClusterID)
		}
		assert.True(t, row.Segment.Assigned)
		assert.Equal(t, out.Risk.Assessments[i], row.Risk)
	}
}

func TestProcess_MissingColumnsDegrade(t *testing.T) {
	t.Parallel()
	ds := testutil.SampleDataset()
	ds.Fields = ds.Fields.Without(accident.FieldLatitude, accident.FieldLongitude, accident.FieldKM)

	out, err := newTestRunner().Process(context.Background(), ds, ingest.Quality{})
	require.NoError(t, err)

	assert.Empty(t, out.Clusters.Clusters)
	assert.Empty(t, out.Segments.Segments)
	skips := out.Skips()
	require.Len(t, skips, 2)
	assert.Equal(t, cluster.Stage, skips[0].Stage)
	assert.Equal(t, accident.SkipMissingField, skips[1].Reason)

	for _, row := range out.Rows() {
		assert.Equal(t, cluster.Noise, row.ClusterID)
		assert.False(t, row.Segment.Assigned)
	}
}

func TestProcess_Empty(t *testing.T) {
	t.Parallel()
	out, err := newTestRunner().Process(context.Background(), testutil.NewDataset(), ingest.Quality{})
	require.NoError(t, err)
	assert.Empty(t, out.Rows())
	assert.Empty(t, out.Tables.MapPoints)
}

func TestProcess_SinkError(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	first := &recordingSink{name: "csv", err: boom}
	second := &recordingSink{name: "sqlite"}

	_, err := newTestRunner(WithSinks(first, second)).Process(context.Background(), testutil.SampleDataset(), ingest.Quality{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "csv")
	assert.Empty(t, second.got, "later sinks are not written after a failure")
}

func TestProcess_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{name: "memory"}
	_, err := newTestRunner(WithSinks(sink)).Process(ctx, testutil.SampleDataset(), ingest.Quality{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.got)
}

const sampleCSV = `id;data_inversa;horario;uf;br;km;municipio;mortos;feridos_leves;feridos_graves;feridos;ilesos;pessoas;latitude;longitude
1;2024-03-01;18:30:00;SP;116;23,7;SAO PAULO;0;1;0;1;1;2;-23,5500;-46,6300
2;2024-03-02;19:00:00;SP;116;24,1;SAO PAULO;1;0;0;0;1;2;-23,5510;-46,6310
3;2024-03-03;07:15:00;SC;101;150;FLORIANOPOLIS;0;0;0;0;3;3;-27,6000;-48,6000
`

func TestRun_FromCSV(t *testing.T) {
	t.Parallel()
	out, err := newTestRunner().Run(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	require.Equal(t, 3, out.Dataset.Len())
	assert.Equal(t, 3, out.Quality.Rows)
	assert.Equal(t, 23.7, out.Dataset.Records[0].KM)

	// three valid points are below the default minimum of ten
	require.NotNil(t, out.Clusters.Skip)
	assert.Equal(t, accident.SkipInsufficientSamples, out.Clusters.Skip.Reason)

	seg, ok := out.Segments.Lookup("BR116_km20")
	require.True(t, ok)
	assert.Equal(t, 2, seg.Count)
	assert.Equal(t, 1, seg.Deaths)
}

func TestRun_BadInput(t *testing.T) {
	t.Parallel()
	_, err := newTestRunner().Run(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, ingest.ErrNoHeader)
}

func TestSQLiteSink(t *testing.T) {
	t.Parallel()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer database.Close()

	sink := &SQLiteSink{DB: database, InputPath: "sample.csv"}
	_, err = newTestRunner(WithSinks(sink)).Process(context.Background(), testutil.SampleDataset(), ingest.Quality{})
	require.NoError(t, err)

	runs, err := database.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-test", runs[0].ID)
	assert.Equal(t, 25, runs[0].RecordCount)
	assert.Equal(t, 1, runs[0].ClusterCount)
	assert.Equal(t, "sample.csv", runs[0].InputPath)

	var clustered int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM accidents WHERE cluster_id = 0`).Scan(&clustered))
	assert.Equal(t, 15, clustered)
}

func TestSQLiteSink_DuplicateAccidentIDs(t *testing.T) {
	t.Parallel()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer database.Close()

	ds := testutil.SampleDataset()
	ds.Records[1].ID = ds.Records[0].ID
	sink := &SQLiteSink{DB: database, InputPath: "dups.csv"}
	_, err = newTestRunner(WithSinks(sink)).Process(context.Background(), ds, ingest.Quality{DuplicateIDs: 1})
	require.NoError(t, err)

	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM accidents WHERE accident_id = ?`, ds.Records[0].ID).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM accidents`).Scan(&n))
	assert.Equal(t, 25, n)
}
