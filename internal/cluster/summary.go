package cluster

import (
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/geo"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// Risk categories by mean member severity.
const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskExtreme = "extreme"
)

// Cluster summarises the members of one hotspot.
type Cluster struct {
	ID       int
	Centroid geo.Point
	Count    int
	Deaths   int
	Injured  int

	AvgSeverity      float64
	PredominantHour  int // accident.UnknownHour when no member has one
	PredominantDay   int // accident.UnknownDay when no member has one
	PredominantCause string

	RadiusKm      float64
	DensityScore  float64 // count / (radius^2 + 1)
	HeatIntensity float64 // density relative to the densest cluster
	RiskCategory  string
}

// Category buckets a mean severity score.
func Category(avgSeverity float64) string {
	switch {
	case avgSeverity <= 20:
		return RiskLow
	case avgSeverity <= 40:
		return RiskMedium
	case avgSeverity <= 60:
		return RiskHigh
	}
	return RiskExtreme
}

// Summarize builds the k clusters described by labels, which must be
// aligned with records.
func Summarize(records []accident.Record, labels []int, k int) []Cluster {
	if k == 0 {
		return nil
	}
	members := make([][]int, k)
	for i, l := range labels {
		if l >= 0 && l < k {
			members[l] = append(members[l], i)
		}
	}

	clusters := make([]Cluster, 0, k)
	for id, idx := range members {
		if len(idx) == 0 {
			continue
		}
		clusters = append(clusters, summarize(records, id, idx))
	}

	densities := make([]float64, len(clusters))
	for i, c := range clusters {
		densities[i] = c.DensityScore
	}
	if len(densities) > 0 {
		if maxDensity := floats.Max(densities); maxDensity > 0 {
			for i := range clusters {
				clusters[i].HeatIntensity = clusters[i].DensityScore / maxDensity
			}
		}
	}
	return clusters
}

func summarize(records []accident.Record, id int, idx []int) Cluster {
	c := Cluster{
		ID:              id,
		Count:           len(idx),
		PredominantHour: accident.UnknownHour,
		PredominantDay:  accident.UnknownDay,
	}

	points := make([]geo.Point, 0, len(idx))
	severity := make([]float64, 0, len(idx))
	var hours, days []int
	var causes []string
	for _, i := range idx {
		r := records[i]
		points = append(points, geo.Point{Latitude: r.Latitude, Longitude: r.Longitude})
		severity = append(severity, r.SeverityScore)
		c.Deaths += r.Deaths
		c.Injured += r.Injured
		if r.HourKnown() {
			hours = append(hours, r.Hour)
		}
		if r.DayKnown() {
			days = append(days, r.DayOfWeek)
		}
		if r.Cause != "" {
			causes = append(causes, r.Cause)
		}
	}

	c.Centroid, _ = geo.Centroid(points)
	c.AvgSeverity = stats.Mean(severity)
	if h, ok := stats.Mode(hours); ok {
		c.PredominantHour = h
	}
	if d, ok := stats.Mode(days); ok {
		c.PredominantDay = d
	}
	c.PredominantCause, _ = stats.Mode(causes)

	c.RadiusKm = geo.MaxDistanceKm(c.Centroid, points)
	c.DensityScore = float64(c.Count) / (c.RadiusKm*c.RadiusKm + 1)
	c.RiskCategory = Category(c.AvgSeverity)
	return c
}
