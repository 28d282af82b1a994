package pipeline

import (
	"time"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/cluster"
	"github.com/banshee-data/roadrisk/internal/config"
	"github.com/banshee-data/roadrisk/internal/ingest"
	"github.com/banshee-data/roadrisk/internal/report"
	"github.com/banshee-data/roadrisk/internal/risk"
	"github.com/banshee-data/roadrisk/internal/segment"
)

// Output is everything one run produced. Attributes, Risk.Assessments,
// Clusters.Labels and Segments.Assignments are index-aligned with
// Dataset.Records.
type Output struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Settings  config.Settings

	Dataset    accident.Dataset
	Quality    ingest.Quality
	Attributes []accident.Attributes
	Risk       risk.Result
	Clusters   cluster.Result
	Segments   segment.Result
	Tables     report.Tables
}

// Row joins everything known about one record.
type Row struct {
	Record     accident.Record
	Attributes accident.Attributes
	Risk       risk.Assessment
	ClusterID  int // cluster.Noise outside hotspots
	Hotspot    bool
	Segment    segment.Assignment
}

// Rows returns the detailed per-record table in input order.
func (o *Output) Rows() []Row {
	rows := make([]Row, o.Dataset.Len())
	for i, rec := range o.Dataset.Records {
		row := Row{Record: rec, ClusterID: cluster.Noise}
		if i < len(o.Attributes) {
			row.Attributes = o.Attributes[i]
		}
		if i < len(o.Risk.Assessments) {
			row.Risk = o.Risk.Assessments[i]
		}
		if i < len(o.Clusters.Labels) {
			row.ClusterID = o.Clusters.Labels[i]
			row.Hotspot = o.Clusters.Hotspot(i)
		}
		if i < len(o.Segments.Assignments) {
			row.Segment = o.Segments.Assignments[i]
		}
		rows[i] = row
	}
	return rows
}

// Skips lists every stage or sub-dimension that degraded to empty output.
func (o *Output) Skips() []*accident.Skip {
	var skips []*accident.Skip
	skips = append(skips, o.Risk.Skips...)
	if o.Clusters.Skip != nil {
		skips = append(skips, o.Clusters.Skip)
	}
	if o.Segments.Skip != nil {
		skips = append(skips, o.Segments.Skip)
	}
	return skips
}
