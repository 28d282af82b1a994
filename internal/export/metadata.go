package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/roadrisk/internal/config"
	"github.com/banshee-data/roadrisk/internal/pipeline"
	"github.com/banshee-data/roadrisk/internal/version"
)

// Metadata is the content of metadata.json.
type Metadata struct {
	PipelineVersion string                 `json:"pipeline_version"`
	RunID           string                 `json:"run_id"`
	CreatedAt       time.Time              `json:"created_at"`
	Settings        *config.PipelineConfig `json:"settings"`
	DataSummary     DataSummary            `json:"data_summary"`
	OutputFiles     map[string]FileInfo    `json:"output_files"`
	DataQuality     DataQuality            `json:"data_quality"`
	Skipped         []string               `json:"skipped,omitempty"`
}

// DataSummary holds run totals.
type DataSummary struct {
	TotalAccidents     int       `json:"total_accidents"`
	TotalDeaths        int       `json:"total_deaths"`
	TotalInjuries      int       `json:"total_injuries"`
	HighRiskAccidents  int       `json:"high_risk_accidents"`
	HighRiskThreshold  float64   `json:"high_risk_threshold"`
	Hotspots           int       `json:"hotspots"`
	Segments           int       `json:"segments"`
	DateRange          DateRange `json:"date_range"`
	GeographicCoverage Coverage  `json:"geographic_coverage"`
}

// DateRange is null on both ends when no record had a date.
type DateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// Coverage counts distinct locations.
type Coverage struct {
	States   int `json:"states"`
	Highways int `json:"highways"`
	Cities   int `json:"cities"`
}

// FileInfo describes one written table.
type FileInfo struct {
	File    string `json:"file"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// DataQuality reports what ingest found.
type DataQuality struct {
	CompletenessPct       float64  `json:"completeness_pct"`
	ValidCoordinatesCount int      `json:"valid_coordinates_count"`
	DuplicateIDs          int      `json:"duplicate_ids"`
	EmptyRows             int      `json:"empty_rows"`
	SeverityFilled        int      `json:"severity_filled"`
	MissingColumns        []string `json:"missing_columns,omitempty"`
}

// BuildMetadata summarises a run and the files written for it.
func BuildMetadata(out *pipeline.Output, files map[string]FileInfo, now time.Time) Metadata {
	m := Metadata{
		PipelineVersion: version.Version,
		RunID:           out.RunID,
		CreatedAt:       now.UTC(),
		Settings:        out.Settings.Config(),
		OutputFiles:     files,
		DataQuality: DataQuality{
			CompletenessPct:       out.Quality.Completeness,
			ValidCoordinatesCount: out.Settings.Bounds().CountValid(out.Dataset.Records),
			DuplicateIDs:          out.Quality.DuplicateIDs,
			EmptyRows:             out.Quality.EmptyRows,
			SeverityFilled:        out.Quality.SeverityFilled,
			MissingColumns:        out.Quality.MissingColumns,
		},
	}
	if m.OutputFiles == nil {
		m.OutputFiles = map[string]FileInfo{}
	}

	s := &m.DataSummary
	s.TotalAccidents = out.Dataset.Len()
	s.HighRiskAccidents = out.Risk.HighRiskCount()
	s.HighRiskThreshold = out.Risk.Threshold
	s.Hotspots = len(out.Clusters.Clusters)
	s.Segments = len(out.Segments.Segments)

	states := make(map[string]struct{})
	highways := make(map[string]struct{})
	cities := make(map[string]struct{})
	var first, last time.Time
	for _, r := range out.Dataset.Records {
		s.TotalDeaths += r.Deaths
		s.TotalInjuries += r.Injured
		if r.State != "" {
			states[r.State] = struct{}{}
		}
		if r.Highway != "" {
			highways[r.Highway] = struct{}{}
		}
		if r.City != "" {
			cities[r.City] = struct{}{}
		}
		if r.Date.IsZero() {
			continue
		}
		if first.IsZero() || r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	s.GeographicCoverage = Coverage{States: len(states), Highways: len(highways), Cities: len(cities)}
	if !first.IsZero() {
		start, end := date(first), date(last)
		s.DateRange = DateRange{Start: &start, End: &end}
	}

	for _, skip := range out.Skips() {
		m.Skipped = append(m.Skipped, skip.String())
	}
	return m
}

func (w *Writer) writeMetadata(m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	f, err := w.fs.Create(filepath.Join(w.dir, MetadataFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", MetadataFile, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", MetadataFile, err)
	}
	return f.Close()
}
