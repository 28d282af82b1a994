// Package segment cuts highways into fixed-length kilometre bins and scores
// each bin by accident density and severity.
package segment

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/geo"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// Stage names this engine in skip reasons and logs.
const Stage = "segments"

// DefaultLengthKm is the default bin length.
const DefaultLengthKm = 10.0

// Various stands in for a mode over an empty set of values.
const Various = "Various"

// Risk categories by segment risk score.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskExtreme = "extreme"
)

// Params configures segmentation.
type Params struct {
	LengthKm float64
	Bounds   accident.GeoBounds // for segment centroids
}

// DefaultParams returns the segmentation defaults.
func DefaultParams() Params {
	return Params{LengthKm: DefaultLengthKm, Bounds: accident.DefaultGeoBounds()}
}

// Assignment places one record on a segment.
type Assignment struct {
	Assigned bool
	ID       string
	StartKm  float64
	EndKm    float64
}

// Segment aggregates every accident of one highway bin.
type Segment struct {
	ID       string
	Highway  string
	StartKm  float64
	EndKm    float64
	Count    int
	Deaths   int
	Injured  int
	State    string
	City     string
	Centroid geo.Point
	// HasCentroid is false when no member had valid coordinates.
	HasCentroid bool

	AvgSeverity float64
	AvgHour     float64 // -1 when no member had an hour
	TopCause    string
	TopType     string
	TopWeather  string

	AccidentsPerKm float64
	DeathsPerKm    float64
	RiskScore      float64
	DangerRank     int
	RiskCategory   string
	Label          string
}

// Result is index-aligned with the dataset's records.
type Result struct {
	Assignments []Assignment
	Segments    []Segment
	Skip        *accident.Skip

	byID map[string]int
}

// Lookup returns the segment with the given id.
func (r Result) Lookup(id string) (Segment, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Segment{}, false
	}
	return r.Segments[i], true
}

// Bin returns the segment boundaries holding km.
func Bin(km, length float64) (start, end float64) {
	start = math.Floor(km/length) * length
	return start, start + length
}

// ID formats a segment identifier, e.g. BR116_km20 or BR116_km0.5.
func ID(highway string, start float64) string {
	return "BR" + highway + "_km" + formatKm(start)
}

// formatKm prints a kilometre boundary with as few digits as it needs.
func formatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', -1, 64)
}

// Category buckets a segment risk score.
func Category(score float64) string {
	switch {
	case score <= 40:
		return RiskLow
	case score <= 60:
		return RiskMedium
	case score <= 80:
		return RiskHigh
	}
	return RiskExtreme
}

type binKey struct {
	highway string
	start   float64
}

// Build assigns records to bins and builds the segment table. Records
// without a kilometre marker stay unassigned.
func Build(ds accident.Dataset, params Params) Result {
	res := Result{Assignments: make([]Assignment, len(ds.Records))}

	if skip := accident.MissingFields(Stage, ds.Fields, accident.FieldHighway, accident.FieldKM); skip != nil {
		res.Skip = skip
		monitoring.Logf("%s", skip)
		return res
	}

	members := make(map[binKey][]int)
	var order []binKey
	for i, r := range ds.Records {
		if !r.HasKM || r.Highway == "" {
			continue
		}
		start, end := Bin(r.KM, params.LengthKm)
		k := binKey{r.Highway, start}
		res.Assignments[i] = Assignment{Assigned: true, ID: ID(r.Highway, start), StartKm: start, EndKm: end}
		if _, ok := members[k]; !ok {
			order = append(order, k)
		}
		members[k] = append(members[k], i)
	}

	for _, k := range order {
		res.Segments = append(res.Segments, summarize(ds.Records, k, members[k], params))
	}
	score(res.Segments)
	sortSegments(res.Segments)
	res.byID = make(map[string]int, len(res.Segments))
	for i, seg := range res.Segments {
		res.byID[seg.ID] = i
	}

	monitoring.Logf("segments: %d highway segments of %.0f km", len(res.Segments), params.LengthKm)
	for _, s := range Top(res.Segments, 10) {
		monitoring.Logf("  %s: %d accidents, risk=%.1f", s.Label, s.Count, s.RiskScore)
	}
	return res
}

func summarize(records []accident.Record, k binKey, idx []int, params Params) Segment {
	s := Segment{
		ID:      ID(k.highway, k.start),
		Highway: k.highway,
		StartKm: k.start,
		EndKm:   k.start + params.LengthKm,
		Count:   len(idx),
		AvgHour: -1,
	}

	var (
		states, cities, causes, types, weathers []string
		severity, hours                         []float64
		points                                  []geo.Point
	)
	for _, i := range idx {
		r := records[i]
		s.Deaths += r.Deaths
		s.Injured += r.Injured
		severity = append(severity, r.SeverityScore)
		if r.HourKnown() {
			hours = append(hours, float64(r.Hour))
		}
		if params.Bounds.Contains(r) {
			points = append(points, geo.Point{Latitude: r.Latitude, Longitude: r.Longitude})
		}
		states = appendNonEmpty(states, r.State)
		cities = appendNonEmpty(cities, r.City)
		causes = appendNonEmpty(causes, r.Cause)
		types = appendNonEmpty(types, r.AccidentType)
		weathers = appendNonEmpty(weathers, r.Weather)
	}

	s.State, _ = stats.Mode(states)
	s.City = modeOr(cities, Various)
	s.TopCause = modeOr(causes, Various)
	s.TopType = modeOr(types, Various)
	s.TopWeather = modeOr(weathers, Various)
	s.AvgSeverity = stats.Mean(severity)
	if len(hours) > 0 {
		s.AvgHour = stats.Mean(hours)
	}
	s.Centroid, s.HasCentroid = geo.Centroid(points)

	s.AccidentsPerKm = float64(s.Count) / params.LengthKm
	s.DeathsPerKm = float64(s.Deaths) / params.LengthKm
	s.Label = fmt.Sprintf("BR-%s km %s-%s (%s)", s.Highway, formatKm(s.StartKm), formatKm(s.EndKm), s.State)
	return s
}

// score fills risk, rank and category. A mean of zero drops its term.
func score(segments []Segment) {
	if len(segments) == 0 {
		return
	}
	apk := make([]float64, len(segments))
	sev := make([]float64, len(segments))
	for i, s := range segments {
		apk[i] = s.AccidentsPerKm
		sev[i] = s.AvgSeverity
	}
	meanAPK := stats.Mean(apk)
	meanSev := stats.Mean(sev)

	risks := make([]float64, len(segments))
	for i := range segments {
		var risk float64
		if v, ok := stats.NormalizeToFifty(apk[i], meanAPK); ok {
			risk += v
		}
		if v, ok := stats.NormalizeToFifty(sev[i], meanSev); ok {
			risk += v
		}
		segments[i].RiskScore = risk
		segments[i].RiskCategory = Category(risk)
		risks[i] = risk
	}
	for i, rank := range stats.DenseRank(risks) {
		segments[i].DangerRank = rank
	}
}

// sortSegments orders by highway, numerically when both parse as integers,
// then by start kilometre.
func sortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if a.Highway != b.Highway {
			return highwayLess(a.Highway, b.Highway)
		}
		return a.StartKm < b.StartKm
	})
}

func highwayLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// Top returns up to n segments by descending risk score.
func Top(segments []Segment, n int) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func appendNonEmpty(xs []string, s string) []string {
	if s == "" {
		return xs
	}
	return append(xs, s)
}

func modeOr(xs []string, fallback string) string {
	if m, ok := stats.Mode(xs); ok {
		return m
	}
	return fallback
}
