// Package ingest reads the raw accident export into cleaned records: it
// decodes the file's legacy encoding, maps the source columns onto record
// fields, converts decimal commas, parses dates and times, normalises text
// and fills missing severity classifications.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// Defaults match the public export.
const (
	DefaultEncoding  = "latin-1"
	DefaultSeparator = ';'

	// UnknownSeverity fills the classification when no record has one.
	UnknownSeverity = "Unknown"
)

// ErrNoHeader is returned for an empty input.
var ErrNoHeader = errors.New("ingest: input has no header row")

// Options configures Read.
type Options struct {
	Encoding  string // latin-1, windows-1252 or utf-8
	Separator rune
	Bounds    accident.GeoBounds // for the coordinate quality count
}

// DefaultOptions returns the options of the public export.
func DefaultOptions() Options {
	return Options{
		Encoding:  DefaultEncoding,
		Separator: DefaultSeparator,
		Bounds:    accident.DefaultGeoBounds(),
	}
}

// Decoder returns the text decoder for an encoding name.
func Decoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "utf-8", "utf8", "":
		return unicode.UTF8BOM.NewDecoder(), nil
	}
	return nil, fmt.Errorf("ingest: unsupported encoding %q", name)
}

// Read parses the raw export. Missing columns are not an error: they are
// logged and left out of the dataset's field set so engines can skip.
func Read(ctx context.Context, r io.Reader, opts Options) (accident.Dataset, Quality, error) {
	var q Quality
	dec, err := Decoder(opts.Encoding)
	if err != nil {
		return accident.Dataset{}, q, err
	}
	if opts.Separator == 0 {
		opts.Separator = DefaultSeparator
	}

	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.Comma = opts.Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return accident.Dataset{}, q, ErrNoHeader
	}
	if err != nil {
		return accident.Dataset{}, q, fmt.Errorf("ingest: read header: %w", err)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		positions[h] = i
	}

	type bound struct {
		col column
		pos int
	}
	var bindings []bound
	var fields accident.FieldSet
	for _, c := range columns {
		pos, ok := positions[c.name]
		if !ok {
			q.MissingColumns = append(q.MissingColumns, c.name)
			continue
		}
		bindings = append(bindings, bound{c, pos})
		fields = fields.With(c.field)
	}
	weekdayPos, hasWeekday := positions[weekdayColumn]
	if len(q.MissingColumns) > 0 {
		monitoring.Warnf("missing expected columns: %s", strings.Join(q.MissingColumns, ", "))
	}

	var records []accident.Record
	var cells, filled int
	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return accident.Dataset{}, q, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return accident.Dataset{}, q, fmt.Errorf("ingest: line %d: %w", line, err)
		}

		empty := true
		for _, v := range row {
			cells++
			if strings.TrimSpace(v) != "" {
				filled++
				empty = false
			}
		}
		if empty {
			q.EmptyRows++
			continue
		}

		rec := accident.Record{Hour: accident.UnknownHour, DayOfWeek: accident.UnknownDay}
		for _, b := range bindings {
			if b.pos < len(row) {
				b.col.set(&rec, cleanCell(row[b.pos]))
			}
		}
		rec.DayOfWeek = accident.DayOfWeekFromDate(rec.Date)
		if rec.DayOfWeek == accident.UnknownDay && hasWeekday && weekdayPos < len(row) {
			rec.DayOfWeek = parseWeekday(cleanCell(row[weekdayPos]))
		}
		records = append(records, rec)
	}

	if !fields.Has(accident.FieldLatitude, accident.FieldLongitude) {
		for i := range records {
			records[i].HasCoordinates = false
		}
	}
	q.SeverityFilled = fillSeverity(records, fields)
	for i := range records {
		r := &records[i]
		r.SeverityScore = accident.SeverityScore(r.Deaths, r.SeriousInjuries, r.LightInjuries, r.Persons)
	}

	if cells > 0 {
		q.Completeness = float64(filled) / float64(cells) * 100
	}
	ds := accident.Dataset{Records: records, Fields: fields}
	q.measure(ds, opts.Bounds)
	q.log()
	return ds, q, nil
}

// cleanCell drops bytes that did not decode and surrounding space.
func cleanCell(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}

// fillSeverity replaces empty severity classifications with the most common
// one and returns how many were filled.
func fillSeverity(records []accident.Record, fields accident.FieldSet) int {
	var present []string
	for _, r := range records {
		if r.SeverityClass != "" {
			present = append(present, r.SeverityClass)
		}
	}
	fill, ok := stats.Mode(present)
	if !ok {
		fill = UnknownSeverity
	}
	n := 0
	for i := range records {
		if records[i].SeverityClass == "" {
			records[i].SeverityClass = fill
			n++
		}
	}
	if n > 0 && fields.Has(accident.FieldSeverityClass) {
		monitoring.Warnf("filled %d missing severity classifications with %q", n, fill)
	}
	return n
}
