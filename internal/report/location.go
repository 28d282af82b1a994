package report

import (
	"slices"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// Location types.
const (
	LocState   = "state"
	LocHighway = "highway"
	LocCity    = "city"
)

// LocationRow aggregates accidents at one state, highway or city.
type LocationRow struct {
	Type         string
	Name         string
	Count        int
	Deaths       int
	Injured      int
	AvgSeverity  float64
	AvgRisk      float64
	TopCause     string
	TopType      string
	FatalityRate float64
	RiskRank     int // dense, within the location type

	// AccidentsPer100Km is set for highways only: accidents per distinct
	// kilometre marker, times 100.
	AccidentsPer100Km    float64
	HasAccidentsPer100Km bool
}

// RiskByLocation aggregates by state, highway and the busiest cities.
func RiskByLocation(in Input) []LocationRow {
	var out []LocationRow
	if in.Fields.Has(accident.FieldState) {
		groups := groupBy(in, func(i int) (string, bool) { return stats.ByState(in.Records[i]) })
		out = append(out, rank(locationRows(in, LocState, groups, func(s string) string { return s }))...)
	}
	if in.Fields.Has(accident.FieldHighway) {
		groups := groupBy(in, func(i int) (string, bool) { return stats.ByHighway(in.Records[i]) })
		rows := locationRows(in, LocHighway, groups, highwayName)
		for i, g := range groups {
			kms := make(map[float64]struct{})
			for _, m := range g.members {
				if r := in.Records[m]; r.HasKM {
					kms[r.KM] = struct{}{}
				}
			}
			if len(kms) > 0 {
				rows[i].AccidentsPer100Km = float64(rows[i].Count) / float64(len(kms)) * 100
				rows[i].HasAccidentsPer100Km = true
			}
		}
		out = append(out, rank(rows)...)
	}
	if in.Fields.Has(accident.FieldCity) {
		groups := groupBy(in, func(i int) (string, bool) {
			c := in.Records[i].City
			return c, c != ""
		})
		rows := locationRows(in, LocCity, groups, func(s string) string { return s })
		slices.SortStableFunc(rows, func(a, b LocationRow) int { return b.Count - a.Count })
		top := in.TopCities
		if top <= 0 {
			top = DefaultTopCities
		}
		if len(rows) > top {
			rows = rows[:top]
		}
		out = append(out, rank(rows)...)
	}
	return out
}

func locationRows(in Input, kind string, groups []group[string], name func(string) string) []LocationRow {
	rows := make([]LocationRow, len(groups))
	for i, g := range groups {
		t := aggregate(in, g.members)
		rows[i] = LocationRow{
			Type:         kind,
			Name:         name(g.key),
			Count:        t.count,
			Deaths:       t.deaths,
			Injured:      t.injured,
			AvgSeverity:  t.avgSeverity,
			AvgRisk:      t.avgRisk,
			TopCause:     modeOf(in, g.members, func(r accident.Record) string { return r.Cause }),
			TopType:      modeOf(in, g.members, func(r accident.Record) string { return r.AccidentType }),
			FatalityRate: t.fatalityRate(),
		}
	}
	return rows
}

func rank(rows []LocationRow) []LocationRow {
	risks := make([]float64, len(rows))
	for i, r := range rows {
		risks[i] = r.AvgRisk
	}
	for i, rk := range stats.DenseRank(risks) {
		rows[i].RiskRank = rk
	}
	return rows
}
