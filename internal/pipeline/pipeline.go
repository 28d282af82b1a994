// Package pipeline runs one analysis end to end: ingest, enrichment, risk
// scoring, hotspot clustering, highway segmentation, aggregation and
// export. Clustering and segmentation are independent and run concurrently.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/cluster"
	"github.com/banshee-data/roadrisk/internal/config"
	"github.com/banshee-data/roadrisk/internal/ingest"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/report"
	"github.com/banshee-data/roadrisk/internal/risk"
	"github.com/banshee-data/roadrisk/internal/segment"
	"github.com/banshee-data/roadrisk/internal/timeutil"
)

// TotalStages is the number of logged stages of a run.
const TotalStages = 7

// Sink receives the finished output of a run.
type Sink interface {
	Name() string
	Write(ctx context.Context, out *Output) error
}

// Runner executes runs with fixed settings.
type Runner struct {
	settings  config.Settings
	clock     timeutil.Clock
	clusterer cluster.Clusterer
	scorer    *risk.Engine
	sinks     []Sink
	newRunID  func() string
}

// Option customises a Runner.
type Option func(*Runner)

// WithClock sets the clock used for run timestamps.
func WithClock(c timeutil.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithClusterer replaces the DBSCAN clusterer.
func WithClusterer(c cluster.Clusterer) Option {
	return func(r *Runner) { r.clusterer = c }
}

// WithSinks appends output sinks. They are written in order.
func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithRunID sets the run identifier generator.
func WithRunID(f func() string) Option {
	return func(r *Runner) { r.newRunID = f }
}

// New creates a Runner. Settings are expected to be validated.
func New(settings config.Settings, opts ...Option) *Runner {
	r := &Runner{
		settings:  settings,
		clock:     timeutil.RealClock{},
		clusterer: cluster.NewDBSCANClusterer(settings.ClusterParams(), settings.Bounds()),
		scorer:    risk.NewEngine(settings.RiskParams()),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the runner's settings.
func (r *Runner) Settings() config.Settings { return r.settings }

func stage(n int, name string) {
	monitoring.Logf("stage %d/%d: %s", n, TotalStages, name)
}

// Run reads the raw export from in and executes every stage.
func (r *Runner) Run(ctx context.Context, in io.Reader) (*Output, error) {
	started := r.clock.Now()

	stage(1, "ingest and clean")
	ds, q, err := ingest.Read(ctx, in, r.settings.IngestOptions())
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return r.process(ctx, ds, q, started)
}

// Process executes the stages after ingest on an already loaded dataset.
func (r *Runner) Process(ctx context.Context, ds accident.Dataset, q ingest.Quality) (*Output, error) {
	return r.process(ctx, ds, q, r.clock.Now())
}

func (r *Runner) process(ctx context.Context, ds accident.Dataset, q ingest.Quality, started time.Time) (*Output, error) {
	out := &Output{
		RunID:     r.newRunID(),
		StartedAt: started,
		Settings:  r.settings,
		Dataset:   ds,
		Quality:   q,
	}
	if ds.Len() == 0 {
		monitoring.Warnf("input has no records; every table will be empty")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage(2, "enrichment")
	out.Attributes = make([]accident.Attributes, ds.Len())
	for i, rec := range ds.Records {
		out.Attributes[i] = accident.Enrich(rec)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stage(3, "risk scoring")
	out.Risk = r.scorer.Score(ds)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stage(4, "hotspot clustering")
		out.Clusters = r.clusterer.Cluster(ds)
		return gctx.Err()
	})
	g.Go(func() error {
		stage(5, "highway segmentation")
		out.Segments = segment.Build(ds, r.settings.SegmentParams())
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stage(6, "aggregate tables")
	out.Tables = report.Build(report.Input{
		Records:     ds.Records,
		Fields:      ds.Fields,
		Attributes:  out.Attributes,
		Assessments: out.Risk.Assessments,
		Bounds:      r.settings.Bounds(),
		TopCities:   r.settings.TopCities,
	})

	for _, skip := range out.Skips() {
		monitoring.Warnf("%s", skip)
	}

	stage(7, "export")
	out.Elapsed = r.clock.Since(started)
	if len(r.sinks) == 0 {
		monitoring.Logf("export: no sinks configured")
	}
	for _, sink := range r.sinks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sink.Write(ctx, out); err != nil {
			return nil, fmt.Errorf("%s: %w", sink.Name(), err)
		}
		monitoring.Logf("export: %s written", sink.Name())
	}

	monitoring.Logf("run %s finished: %d records, %d high risk, %d hotspots, %d segments in %s",
		out.RunID, ds.Len(), out.Risk.HighRiskCount(), len(out.Clusters.Clusters),
		len(out.Segments.Segments), out.Elapsed.Round(time.Millisecond))
	return out, nil
}
