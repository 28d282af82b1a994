package report

import (
	"fmt"
	"time"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/segment"
)

// DailyRow aggregates one calendar day.
type DailyRow struct {
	Date         time.Time
	Count        int
	Deaths       int
	Injured      int
	RiskScore    float64 // mean composite
	DayOfWeek    string
	DayOfMonth   int
	Month        int
	Year         int
	RiskCategory string
}

// DailyCalendar aggregates accidents per date in date order.
func DailyCalendar(in Input) []DailyRow {
	if !in.Fields.Has(accident.FieldDate) {
		return nil
	}
	groups := groupBy(in, func(i int) (int64, bool) {
		d := in.Records[i].Date
		return d.Unix(), !d.IsZero()
	})
	rows := make([]DailyRow, len(groups))
	for i, g := range groups {
		t := aggregate(in, g.members)
		d := in.Records[g.members[0]].Date
		rows[i] = DailyRow{
			Date:         d,
			Count:        t.count,
			Deaths:       t.deaths,
			Injured:      t.injured,
			RiskScore:    t.avgRisk,
			DayOfWeek:    accident.DayName(accident.DayOfWeekFromDate(d)),
			DayOfMonth:   d.Day(),
			Month:        int(d.Month()),
			Year:         d.Year(),
			RiskCategory: segment.Category(t.avgRisk),
		}
	}
	return rows
}

// Marker colours by severity classification.
var severityColors = map[string]string{
	accident.SeverityFatal:    "#FF0000",
	accident.SeverityInjured:  "#FFD700",
	accident.SeverityNoVictim: "#D3D3D3",
}

// MarkerColor returns the map colour of a severity classification.
func MarkerColor(severityClass string) string {
	if c, ok := severityColors[severityClass]; ok {
		return c
	}
	return "#CCCCCC"
}

// MarkerSize buckets the number of persons involved.
func MarkerSize(persons int) string {
	switch {
	case persons <= 2:
		return "small"
	case persons <= 5:
		return "medium"
	case persons <= 10:
		return "large"
	}
	return "xlarge"
}

// MarkerOpacity is the fixed opacity of every map marker.
const MarkerOpacity = 0.7

// MapPoint is one accident with usable coordinates.
type MapPoint struct {
	ID            int64
	Date          time.Time
	Hour          int
	Latitude      float64
	Longitude     float64
	State         string
	City          string
	Highway       string
	KM            float64
	HasKM         bool
	Deaths        int
	Injured       int
	SeverityClass string
	AccidentType  string
	Cause         string
	MarkerColor   string
	MarkerSize    string
	Tooltip       string
}

// Tooltip is the one-line summary shown for a map point.
func Tooltip(r accident.Record) string {
	var victims string
	switch {
	case r.Deaths > 0:
		victims = fmt.Sprintf("%d death(s)", r.Deaths)
	case r.Injured > 0:
		victims = fmt.Sprintf("%d injured", r.Injured)
	default:
		victims = "no victims"
	}
	return fmt.Sprintf("BR-%s km %g | %s", r.Highway, r.KM, victims)
}

// MapPoints keeps the records that pass the bounds check.
func MapPoints(in Input) []MapPoint {
	var out []MapPoint
	for _, r := range in.Records {
		if !in.Bounds.Contains(r) {
			continue
		}
		out = append(out, MapPoint{
			ID:            r.ID,
			Date:          r.Date,
			Hour:          r.Hour,
			Latitude:      r.Latitude,
			Longitude:     r.Longitude,
			State:         r.State,
			City:          r.City,
			Highway:       r.Highway,
			KM:            r.KM,
			HasKM:         r.HasKM,
			Deaths:        r.Deaths,
			Injured:       r.Injured,
			SeverityClass: r.SeverityClass,
			AccidentType:  r.AccidentType,
			Cause:         r.Cause,
			MarkerColor:   MarkerColor(r.SeverityClass),
			MarkerSize:    MarkerSize(r.Persons),
			Tooltip:       Tooltip(r),
		})
	}
	return out
}
