package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/cluster"
	"github.com/banshee-data/roadrisk/internal/risk"
	"github.com/banshee-data/roadrisk/internal/segment"
)

// Run is everything persisted for one pipeline execution. Assessments,
// ClusterLabels and Assignments are index-aligned with Records; any of them
// may be empty when its stage did not run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Version   string
	InputPath string
	Settings  string // JSON

	Threshold     float64
	Records       []accident.Record
	Assessments   []risk.Assessment
	ClusterLabels []int
	Clusters      []cluster.Cluster
	Assignments   []segment.Assignment
	Segments      []segment.Segment
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID           string
	CreatedAt    time.Time
	Version      string
	InputPath    string
	RecordCount  int
	Threshold    sql.NullFloat64
	ClusterCount int
	SegmentCount int
}

func (r Run) validate() error {
	n := len(r.Records)
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	for name, l := range map[string]int{
		"assessments":    len(r.Assessments),
		"cluster labels": len(r.ClusterLabels),
		"assignments":    len(r.Assignments),
	} {
		if l != 0 && l != n {
			return fmt.Errorf("%s has %d entries for %d records", name, l, n)
		}
	}
	return nil
}

// SaveRun writes a run and all of its rows in a single transaction.
func (db *DB) SaveRun(ctx context.Context, run Run) error {
	if err := run.validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	settings := run.Settings
	if settings == "" {
		settings = "{}"
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
			run_id, created_at, version, input_path, settings,
			record_count, high_risk_threshold, cluster_count, segment_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Version, run.InputPath, settings,
		len(run.Records), nullFloat(run.Threshold), len(run.Clusters), len(run.Segments),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if err := insertAccidents(ctx, tx, run); err != nil {
		return err
	}
	if err := insertClusters(ctx, tx, run); err != nil {
		return err
	}
	if err := insertSegments(ctx, tx, run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", run.ID, err)
	}
	return nil
}

func insertAccidents(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accidents (
			run_id, row_index, accident_id, date, hour, day_of_week, state, city, highway,
			km, latitude, longitude, deaths, injured, persons, severity_class,
			severity_score, composite_risk, high_risk, cluster_id, segment_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare accident insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range run.Records {
		var (
			date      sql.NullString
			hour, day sql.NullInt64
			km        sql.NullFloat64
			lat, lon  sql.NullFloat64
			composite sql.NullFloat64
			highRisk  bool
			clusterID sql.NullInt64
			segmentID sql.NullString
		)
		if !r.Date.IsZero() {
			date = sql.NullString{String: r.Date.Format("2006-01-02"), Valid: true}
		}
		if r.HourKnown() {
			hour = sql.NullInt64{Int64: int64(r.Hour), Valid: true}
		}
		if r.DayKnown() {
			day = sql.NullInt64{Int64: int64(r.DayOfWeek), Valid: true}
		}
		if r.HasKM {
			km = sql.NullFloat64{Float64: r.KM, Valid: true}
		}
		if r.HasCoordinates {
			lat = sql.NullFloat64{Float64: r.Latitude, Valid: true}
			lon = sql.NullFloat64{Float64: r.Longitude, Valid: true}
		}
		if len(run.Assessments) > 0 {
			composite = sql.NullFloat64{Float64: run.Assessments[i].Composite, Valid: true}
			highRisk = run.Assessments[i].HighRisk
		}
		if len(run.ClusterLabels) > 0 && run.ClusterLabels[i] != cluster.Noise {
			clusterID = sql.NullInt64{Int64: int64(run.ClusterLabels[i]), Valid: true}
		}
		if len(run.Assignments) > 0 && run.Assignments[i].Assigned {
			segmentID = sql.NullString{String: run.Assignments[i].ID, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			run.ID, i, r.ID, date, hour, day, r.State, r.City, r.Highway,
			km, lat, lon, r.Deaths, r.Injured, r.Persons, r.SeverityClass,
			r.SeverityScore, composite, highRisk, clusterID, segmentID,
		); err != nil {
			return fmt.Errorf("failed to insert accident %d (row %d): %w", r.ID, i, err)
		}
	}
	return nil
}

func insertClusters(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO clusters (
			run_id, cluster_id, latitude, longitude, accident_count, deaths,
			injured, avg_severity, predominant_hour, predominant_day,
			predominant_cause, radius_km, density_score, heat_intensity,
			risk_category
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cluster insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range run.Clusters {
		var hour, day sql.NullInt64
		if c.PredominantHour != accident.UnknownHour {
			hour = sql.NullInt64{Int64: int64(c.PredominantHour), Valid: true}
		}
		if c.PredominantDay != accident.UnknownDay {
			day = sql.NullInt64{Int64: int64(c.PredominantDay), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, c.ID, c.Centroid.Latitude, c.Centroid.Longitude, c.Count,
			c.Deaths, c.Injured, c.AvgSeverity, hour, day, c.PredominantCause,
			c.RadiusKm, c.DensityScore, c.HeatIntensity, c.RiskCategory,
		); err != nil {
			return fmt.Errorf("failed to insert cluster %d: %w", c.ID, err)
		}
	}
	return nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, run Run) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO segments (
			run_id, segment_id, highway, start_km, end_km, accident_count,
			deaths, injured, state, city, latitude, longitude, avg_severity,
			accidents_per_km, deaths_per_km, risk_score, danger_rank,
			risk_category, label
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range run.Segments {
		var lat, lon sql.NullFloat64
		if s.HasCentroid {
			lat = sql.NullFloat64{Float64: s.Centroid.Latitude, Valid: true}
			lon = sql.NullFloat64{Float64: s.Centroid.Longitude, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID, s.ID, s.Highway, s.StartKm, s.EndKm, s.Count, s.Deaths,
			s.Injured, s.State, s.City, lat, lon, s.AvgSeverity,
			s.AccidentsPerKm, s.DeathsPerKm, s.RiskScore, s.DangerRank,
			s.RiskCategory, s.Label,
		); err != nil {
			return fmt.Errorf("failed to insert segment %s: %w", s.ID, err)
		}
	}
	return nil
}

// ListRuns returns every stored run, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := db.QueryContext(ctx, `SELECT
			run_id, created_at, version, input_path, record_count,
			high_risk_threshold, cluster_count, segment_count
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s       RunSummary
			created string
		)
		if err := rows.Scan(
			&s.ID, &created, &s.Version, &s.InputPath, &s.RecordCount,
			&s.Threshold, &s.ClusterCount, &s.SegmentCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if s.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", s.ID, created, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and, through the foreign keys, all of its rows.
func (db *DB) DeleteRun(ctx context.Context, runID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
