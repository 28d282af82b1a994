// Package export writes the tables of a finished run as CSV files plus a
// metadata.json summary into an output directory.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/roadrisk/internal/fsutil"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/pipeline"
	"github.com/banshee-data/roadrisk/internal/timeutil"
)

// MetadataFile is the name of the run summary.
const MetadataFile = "metadata.json"

// Writer writes CSV tables into a directory. It implements pipeline.Sink.
type Writer struct {
	fs    fsutil.FileSystem
	dir   string
	clock timeutil.Clock
}

// NewWriter creates a Writer for dir. A nil clock uses the wall clock.
func NewWriter(fs fsutil.FileSystem, dir string, clock timeutil.Clock) *Writer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Writer{fs: fs, dir: dir, clock: clock}
}

// Name implements pipeline.Sink.
func (w *Writer) Name() string { return "csv" }

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Write implements pipeline.Sink. Aggregate tables without rows are not
// written; the detailed table always is.
func (w *Writer) Write(ctx context.Context, out *pipeline.Output) error {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	files := make(map[string]FileInfo)
	for _, t := range Tables(out) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(t.Rows) == 0 && !t.Always {
			monitoring.Logf("export: %s has no rows, not written", t.File)
			continue
		}
		if err := w.writeTable(t); err != nil {
			return err
		}
		files[t.Key] = FileInfo{File: t.File, Rows: len(t.Rows), Columns: len(t.Header)}
		monitoring.Logf("export: saved %s (%d rows)", t.File, len(t.Rows))
	}

	meta := BuildMetadata(out, files, w.clock.Now())
	if err := w.writeMetadata(meta); err != nil {
		return err
	}
	monitoring.Logf("export: %d files written to %s", len(files)+1, w.dir)
	return nil
}

func (w *Writer) writeTable(t Table) error {
	path := filepath.Join(w.dir, t.File)
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", t.File, err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", t.File, err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", t.File, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", t.File, err)
	}
	return nil
}

var _ pipeline.Sink = (*Writer)(nil)
