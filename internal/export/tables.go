package export

import (
	"fmt"
	"time"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/cluster"
	"github.com/banshee-data/roadrisk/internal/pipeline"
	"github.com/banshee-data/roadrisk/internal/report"
	"github.com/banshee-data/roadrisk/internal/segment"
)

// Output file names.
const (
	FileDetailed     = "accidents_detailed.csv"
	FileRiskTime     = "risk_by_time.csv"
	FileRiskLocation = "risk_by_location.csv"
	FileSegments     = "highway_segments_risk.csv"
	FileScenarios    = "worst_scenarios.csv"
	FileRankings     = "danger_rankings.csv"
	FileMapPoints    = "accidents_map_points.csv"
	FileClusters     = "accident_heatmap_clusters.csv"
	FileDaily        = "daily_risk_calendar.csv"
	FileAnswers      = "worst_answers.csv"
)

// Table is one CSV file: a metadata key, a header and formatted rows.
type Table struct {
	Key    string
	File   string
	Header []string
	Rows   [][]string
	// Always is set for tables written even when empty.
	Always bool
}

// Tables formats every table of out in export order.
func Tables(out *pipeline.Output) []Table {
	return []Table{
		detailedTable(out),
		timeTable(out.Tables.Time),
		locationTable(out.Tables.Location),
		segmentTable(out.Segments.Segments),
		scenarioTable(out.Tables.Scenarios),
		rankingTable(out.Tables.Rankings),
		mapPointTable(out.Tables.MapPoints),
		clusterTable(out.Clusters.Clusters),
		dailyTable(out.Tables.Daily),
		answerTable(out.Tables.Answers),
	}
}

func itoa(v int) string   { return fmt.Sprintf("%d", v) }
func f2(v float64) string { return fmt.Sprintf("%.2f", v) }
func f4(v float64) string { return fmt.Sprintf("%.4f", v) }
func f6(v float64) string { return fmt.Sprintf("%.6f", v) }
func km(v float64) string { return fmt.Sprintf("%g", v) }
func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func hour(h int) string {
	if h < 0 || h > 23 {
		return ""
	}
	return itoa(h)
}

func day(d int) string {
	if d < 0 || d > 6 {
		return ""
	}
	return itoa(d)
}

// rank renders a dense rank, empty for an unknown group.
func rank(r int) string {
	if r == 0 {
		return ""
	}
	return itoa(r)
}

func detailedTable(out *pipeline.Output) Table {
	t := Table{
		Key:  "accidents_detailed",
		File: FileDetailed,
		Header: []string{
			"id", "date", "hour", "day_of_week", "day_name", "quarter",
			"state", "region", "city", "highway", "km", "latitude", "longitude", "valid_coords",
			"cause", "cause_category", "accident_type", "severity_class", "severity_code",
			"weather", "road_type", "road_layout", "day_phase", "land_use",
			"persons", "deaths", "serious_injuries", "light_injuries", "injured", "uninjured", "vehicles",
			"severity_score", "fatality_rate", "injury_rate",
			"time_period", "is_weekend", "is_rush_hour", "is_night", "poor_visibility",
			"alcohol_involved", "driver_asleep", "speed_related", "mechanical_failure", "weather_related",
			"hour_risk_score", "day_risk_score", "time_risk_score",
			"highway_risk_score", "state_risk_score", "location_risk_score",
			"weather_risk_score", "road_risk_score", "condition_risk_score",
			"base_composite_risk", "composite_risk_score", "is_high_risk",
			"hour_danger_rank", "day_danger_rank", "state_danger_rank", "highway_danger_rank",
			"fatality_probability", "injury_probability", "danger_percentile",
			"cluster_id", "is_hotspot", "segment_id", "km_segment_start", "km_segment_end",
		},
		Always: true,
	}
	bounds := out.Settings.Bounds()
	for _, row := range out.Rows() {
		r, a, s := row.Record, row.Attributes, row.Risk
		var kmText, lat, lon string
		if r.HasKM {
			kmText = km(r.KM)
		}
		if r.HasCoordinates {
			lat, lon = f6(r.Latitude), f6(r.Longitude)
		}
		var segID, segStart, segEnd string
		if row.Segment.Assigned {
			segID, segStart, segEnd = row.Segment.ID, km(row.Segment.StartKm), km(row.Segment.EndKm)
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%d", r.ID), date(r.Date), hour(r.Hour), day(r.DayOfWeek), a.DayName, itoa(a.Quarter),
			r.State, a.Region, r.City, r.Highway, kmText, lat, lon, flag(bounds.Contains(r)),
			r.Cause, a.CauseCategory, r.AccidentType, r.SeverityClass, itoa(a.SeverityCode),
			r.Weather, r.RoadType, r.RoadLayout, r.DayPhase, r.LandUse,
			itoa(r.Persons), itoa(r.Deaths), itoa(r.SeriousInjuries), itoa(r.LightInjuries),
			itoa(r.Injured), itoa(r.Uninjured), itoa(r.Vehicles),
			f2(r.SeverityScore), f2(a.FatalityRate), f2(a.InjuryRate),
			a.TimePeriod, flag(a.IsWeekend), flag(a.IsRushHour), flag(a.IsNight), flag(a.PoorVisibility),
			flag(a.AlcoholInvolved), flag(a.DriverAsleep), flag(a.SpeedRelated), flag(a.MechanicalFailure), flag(a.WeatherRelated),
			f2(s.HourScore), f2(s.DayScore), f2(s.TimeScore),
			f2(s.HighwayScore), f2(s.StateScore), f2(s.LocationScore),
			f2(s.WeatherScore), f2(s.RoadScore), f2(s.ConditionScore),
			f2(s.BaseComposite), f2(s.Composite), flag(s.HighRisk),
			rank(s.HourRank), rank(s.DayRank), rank(s.StateRank), rank(s.HighwayRank),
			f2(s.FatalityProbability), f2(s.InjuryProbability), f2(s.DangerPercentile),
			itoa(row.ClusterID), flag(row.Hotspot), segID, segStart, segEnd,
		})
	}
	return t
}

func timeTable(rows []report.TimeRow) Table {
	t := Table{
		Key:  "risk_time",
		File: FileRiskTime,
		Header: []string{
			"dimension", "value", "accident_count", "deaths", "injuries",
			"avg_severity", "avg_risk", "fatality_rate", "injury_rate",
			"risk_rank", "is_worst", "is_best",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Dimension, r.Value, itoa(r.Count), itoa(r.Deaths), itoa(r.Injured),
			f2(r.AvgSeverity), f2(r.AvgRisk), f2(r.FatalityRate), f2(r.InjuryRate),
			itoa(r.RiskRank), flag(r.IsWorst), flag(r.IsBest),
		})
	}
	return t
}

func locationTable(rows []report.LocationRow) Table {
	t := Table{
		Key:  "risk_location",
		File: FileRiskLocation,
		Header: []string{
			"location_type", "location_name", "accident_count", "deaths", "injuries",
			"avg_severity", "avg_risk", "top_cause", "top_accident_type",
			"fatality_rate", "risk_rank", "accidents_per_100km",
		},
	}
	for _, r := range rows {
		per100 := ""
		if r.HasAccidentsPer100Km {
			per100 = f2(r.AccidentsPer100Km)
		}
		t.Rows = append(t.Rows, []string{
			r.Type, r.Name, itoa(r.Count), itoa(r.Deaths), itoa(r.Injured),
			f2(r.AvgSeverity), f2(r.AvgRisk), r.TopCause, r.TopType,
			f2(r.FatalityRate), itoa(r.RiskRank), per100,
		})
	}
	return t
}

func segmentTable(segments []segment.Segment) Table {
	t := Table{
		Key:  "segments",
		File: FileSegments,
		Header: []string{
			"segment_id", "highway", "km_start", "km_end", "accident_count",
			"state", "primary_city", "deaths", "injuries",
			"center_latitude", "center_longitude", "avg_severity",
			"top_cause", "top_accident_type", "top_weather", "avg_hour",
			"accidents_per_km", "deaths_per_km", "risk_score", "danger_rank",
			"risk_category", "segment_label",
		},
	}
	for _, s := range segments {
		var lat, lon, avgHour string
		if s.HasCentroid {
			lat, lon = f6(s.Centroid.Latitude), f6(s.Centroid.Longitude)
		}
		if s.AvgHour >= 0 {
			avgHour = f2(s.AvgHour)
		}
		t.Rows = append(t.Rows, []string{
			s.ID, s.Highway, km(s.StartKm), km(s.EndKm), itoa(s.Count),
			s.State, s.City, itoa(s.Deaths), itoa(s.Injured),
			lat, lon, f2(s.AvgSeverity),
			s.TopCause, s.TopType, s.TopWeather, avgHour,
			f4(s.AccidentsPerKm), f4(s.DeathsPerKm), f2(s.RiskScore), itoa(s.DangerRank),
			s.RiskCategory, s.Label,
		})
	}
	return t
}

func scenarioTable(rows []report.ScenarioRow) Table {
	t := Table{
		Key:    "scenarios",
		File:   FileScenarios,
		Header: []string{"scenario", "accident_count", "deaths", "risk_score", "risk_multiplier"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Description, itoa(r.Count), itoa(r.Deaths), f2(r.RiskScore), f2(r.RiskMultiplier),
		})
	}
	return t
}

func rankingTable(rows []report.RankingRow) Table {
	t := Table{
		Key:  "rankings",
		File: FileRankings,
		Header: []string{
			"category", "item", "accident_count", "deaths", "risk_score", "rank", "vs_average_pct",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Category, r.Item, itoa(r.Count), itoa(r.Deaths), f2(r.RiskScore), itoa(r.Rank), f2(r.VsAveragePct),
		})
	}
	return t
}

func mapPointTable(points []report.MapPoint) Table {
	t := Table{
		Key:  "map_points",
		File: FileMapPoints,
		Header: []string{
			"id", "date", "hour", "latitude", "longitude", "state", "city", "highway", "km",
			"deaths", "injuries", "severity_class", "accident_type", "cause",
			"marker_color", "marker_size", "marker_opacity", "tooltip",
		},
	}
	for _, p := range points {
		kmText := ""
		if p.HasKM {
			kmText = km(p.KM)
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%d", p.ID), date(p.Date), hour(p.Hour), f6(p.Latitude), f6(p.Longitude),
			p.State, p.City, p.Highway, kmText,
			itoa(p.Deaths), itoa(p.Injured), p.SeverityClass, p.AccidentType, p.Cause,
			p.MarkerColor, p.MarkerSize, fmt.Sprintf("%g", report.MarkerOpacity), p.Tooltip,
		})
	}
	return t
}

func clusterTable(clusters []cluster.Cluster) Table {
	t := Table{
		Key:  "heatmap",
		File: FileClusters,
		Header: []string{
			"cluster_id", "accident_count", "center_latitude", "center_longitude",
			"deaths", "injuries", "avg_severity", "predominant_hour", "predominant_day",
			"predominant_cause", "radius_km", "density_score", "risk_category", "heat_intensity",
		},
	}
	for _, c := range clusters {
		t.Rows = append(t.Rows, []string{
			itoa(c.ID), itoa(c.Count), f6(c.Centroid.Latitude), f6(c.Centroid.Longitude),
			itoa(c.Deaths), itoa(c.Injured), f2(c.AvgSeverity),
			hour(c.PredominantHour), accident.DayName(c.PredominantDay),
			c.PredominantCause, f4(c.RadiusKm), f4(c.DensityScore), c.RiskCategory, f4(c.HeatIntensity),
		})
	}
	return t
}

func dailyTable(rows []report.DailyRow) Table {
	t := Table{
		Key:  "daily",
		File: FileDaily,
		Header: []string{
			"date", "accident_count", "deaths", "injuries", "risk_score",
			"day_of_week", "day_of_month", "month", "year", "risk_category",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			date(r.Date), itoa(r.Count), itoa(r.Deaths), itoa(r.Injured), f2(r.RiskScore),
			r.DayOfWeek, itoa(r.DayOfMonth), itoa(r.Month), itoa(r.Year), r.RiskCategory,
		})
	}
	return t
}

func answerTable(rows []report.Answer) Table {
	t := Table{
		Key:    "answers",
		File:   FileAnswers,
		Header: []string{"question_id", "question", "answer", "metric", "explanation"},
	}
	for _, a := range rows {
		t.Rows = append(t.Rows, []string{itoa(a.ID), a.Question, a.Answer, a.Metric, a.Explanation})
	}
	return t
}
