package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/roadrisk/internal/db"
	"github.com/banshee-data/roadrisk/internal/version"
)

// SQLiteSink stores each run in a SQLite database.
type SQLiteSink struct {
	DB        *db.DB
	InputPath string
}

// Name implements Sink.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, out *Output) error {
	settings, err := json.Marshal(out.Settings.Config())
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return s.DB.SaveRun(ctx, db.Run{
		ID:            out.RunID,
		CreatedAt:     out.StartedAt,
		Version:       version.Version,
		InputPath:     s.InputPath,
		Settings:      string(settings),
		Threshold:     out.Risk.Threshold,
		Records:       out.Dataset.Records,
		Assessments:   out.Risk.Assessments,
		ClusterLabels: out.Clusters.Labels,
		Clusters:      out.Clusters.Clusters,
		Assignments:   out.Segments.Assignments,
		Segments:      out.Segments.Segments,
	})
}

var _ Sink = (*SQLiteSink)(nil)
