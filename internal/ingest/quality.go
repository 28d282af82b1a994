package ingest

import (
	"time"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/monitoring"
)

// Quality summarises what Read found in the input.
type Quality struct {
	Rows           int
	MissingColumns []string
	EmptyRows      int
	DuplicateIDs   int
	SeverityFilled int

	MinDate time.Time
	MaxDate time.Time

	TotalDeaths    int
	TotalInjured   int
	TotalUninjured int

	ValidCoordinates int
	// Completeness is the share of non-empty raw cells, 0-100.
	Completeness float64
}

// ValidCoordinatePct is the share of records with usable coordinates.
func (q Quality) ValidCoordinatePct() float64 {
	if q.Rows == 0 {
		return 0
	}
	return float64(q.ValidCoordinates) / float64(q.Rows) * 100
}

func (q *Quality) measure(ds accident.Dataset, bounds accident.GeoBounds) {
	q.Rows = ds.Len()
	seen := make(map[int64]struct{}, ds.Len())
	for _, r := range ds.Records {
		if ds.Fields.Has(accident.FieldID) {
			if _, dup := seen[r.ID]; dup {
				q.DuplicateIDs++
			}
			seen[r.ID] = struct{}{}
		}
		if !r.Date.IsZero() {
			if q.MinDate.IsZero() || r.Date.Before(q.MinDate) {
				q.MinDate = r.Date
			}
			if r.Date.After(q.MaxDate) {
				q.MaxDate = r.Date
			}
		}
		q.TotalDeaths += r.Deaths
		q.TotalInjured += r.Injured
		q.TotalUninjured += r.Uninjured
	}
	q.ValidCoordinates = bounds.CountValid(ds.Records)
}

func (q Quality) log() {
	monitoring.Logf("ingest: %d records (%.2f%% of cells filled)", q.Rows, q.Completeness)
	if q.EmptyRows > 0 {
		monitoring.Warnf("skipped %d completely empty rows", q.EmptyRows)
	}
	if q.DuplicateIDs > 0 {
		monitoring.Warnf("found %d duplicate ids", q.DuplicateIDs)
	}
	if !q.MinDate.IsZero() {
		monitoring.Logf("ingest: date range %s to %s", q.MinDate.Format(time.DateOnly), q.MaxDate.Format(time.DateOnly))
	}
	monitoring.Logf("ingest: %d deaths, %d injured, %d uninjured", q.TotalDeaths, q.TotalInjured, q.TotalUninjured)
	monitoring.Logf("ingest: valid coordinates %d (%.1f%%)", q.ValidCoordinates, q.ValidCoordinatePct())
}
