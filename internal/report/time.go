package report

import (
	"fmt"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// Time dimensions.
const (
	DimHour       = "hour"
	DimDayOfWeek  = "day_of_week"
	DimDayOfMonth = "day_of_month"
	DimMonth      = "month"
)

// TimeRow aggregates accidents over one value of a time dimension.
type TimeRow struct {
	Dimension    string
	Value        string
	Count        int
	Deaths       int
	Injured      int
	AvgSeverity  float64
	AvgRisk      float64
	FatalityRate float64 // deaths per 100 accidents
	InjuryRate   float64 // injured per 100 accidents
	RiskRank     int     // dense, within the dimension
	IsWorst      bool    // top decile of AvgRisk within the dimension
	IsBest       bool    // bottom decile
}

// RiskByTime aggregates by hour, day of week, day of month and month.
func RiskByTime(in Input) []TimeRow {
	var out []TimeRow
	if in.Fields.Has(accident.FieldHour) {
		out = append(out, timeRows(in, DimHour, func(i int) (int, bool) {
			r := in.Records[i]
			return r.Hour, r.HourKnown()
		}, func(h int) string { return fmt.Sprintf("%dh", h) })...)
	}
	if in.Fields.Has(accident.FieldDate) {
		out = append(out, timeRows(in, DimDayOfWeek, func(i int) (int, bool) {
			r := in.Records[i]
			return r.DayOfWeek, r.DayKnown()
		}, accident.DayName)...)
		out = append(out, timeRows(in, DimDayOfMonth, func(i int) (int, bool) {
			d := in.Records[i].Date
			return d.Day(), !d.IsZero()
		}, func(d int) string { return fmt.Sprintf("Day %d", d) })...)
		out = append(out, timeRows(in, DimMonth, func(i int) (int, bool) {
			d := in.Records[i].Date
			return int(d.Month()), !d.IsZero()
		}, accident.MonthName)...)
	}
	return out
}

func timeRows(in Input, dim string, key func(int) (int, bool), label func(int) string) []TimeRow {
	groups := groupBy(in, key)
	rows := make([]TimeRow, len(groups))
	risks := make([]float64, len(groups))
	for i, g := range groups {
		t := aggregate(in, g.members)
		rows[i] = TimeRow{
			Dimension:    dim,
			Value:        label(g.key),
			Count:        t.count,
			Deaths:       t.deaths,
			Injured:      t.injured,
			AvgSeverity:  t.avgSeverity,
			AvgRisk:      t.avgRisk,
			FatalityRate: t.fatalityRate(),
			InjuryRate:   t.injuryRate(),
		}
		risks[i] = t.avgRisk
	}
	if len(rows) == 0 {
		return nil
	}

	worst := stats.Quantile(risks, 0.9)
	best := stats.Quantile(risks, 0.1)
	for i, rank := range stats.DenseRank(risks) {
		rows[i].RiskRank = rank
		rows[i].IsWorst = risks[i] >= worst
		rows[i].IsBest = risks[i] <= best
	}
	return rows
}
