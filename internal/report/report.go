// Package report builds the summary tables published next to the detailed
// accident table: risk by time and by location, danger rankings, worst
// scenarios, a daily calendar, direct answers and map points.
package report

import (
	"cmp"
	"slices"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/risk"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// DefaultTopCities caps the city rows of the location table.
const DefaultTopCities = 50

// Input is everything the tables are derived from. Attributes and
// Assessments are index-aligned with Records.
type Input struct {
	Records     []accident.Record
	Fields      accident.FieldSet
	Attributes  []accident.Attributes
	Assessments []risk.Assessment
	Bounds      accident.GeoBounds
	TopCities   int
}

// Tables holds every summary table.
type Tables struct {
	Time      []TimeRow
	Location  []LocationRow
	Rankings  []RankingRow
	Scenarios []ScenarioRow
	Daily     []DailyRow
	Answers   []Answer
	MapPoints []MapPoint
}

// Build derives every table from in.
func Build(in Input) Tables {
	return Tables{
		Time:      RiskByTime(in),
		Location:  RiskByLocation(in),
		Rankings:  DangerRankings(in),
		Scenarios: WorstScenarios(in),
		Daily:     DailyCalendar(in),
		Answers:   WorstAnswers(in),
		MapPoints: MapPoints(in),
	}
}

var printer = message.NewPrinter(language.English)

// group is the set of record indices sharing a key.
type group[K cmp.Ordered] struct {
	key     K
	members []int
}

// groupBy partitions the selected records by key, sorted by key.
func groupBy[K cmp.Ordered](in Input, key func(i int) (K, bool)) []group[K] {
	index := make(map[K]int)
	var groups []group[K]
	for i := range in.Records {
		k, ok := key(i)
		if !ok {
			continue
		}
		j, seen := index[k]
		if !seen {
			j = len(groups)
			index[k] = j
			groups = append(groups, group[K]{key: k})
		}
		groups[j].members = append(groups[j].members, i)
	}
	slices.SortStableFunc(groups, func(a, b group[K]) int { return cmp.Compare(a.key, b.key) })
	return groups
}

// totals are the common aggregates of a group of records.
type totals struct {
	count       int
	deaths      int
	injured     int
	avgSeverity float64
	avgRisk     float64
}

func aggregate(in Input, members []int) totals {
	t := totals{count: len(members)}
	sev := make([]float64, 0, len(members))
	composite := make([]float64, 0, len(members))
	for _, i := range members {
		r := in.Records[i]
		t.deaths += r.Deaths
		t.injured += r.Injured
		sev = append(sev, r.SeverityScore)
		composite = append(composite, in.Assessments[i].Composite)
	}
	t.avgSeverity = stats.Mean(sev)
	t.avgRisk = stats.Mean(composite)
	return t
}

func (t totals) fatalityRate() float64 {
	if t.count == 0 {
		return 0
	}
	return float64(t.deaths) / float64(t.count) * 100
}

func (t totals) injuryRate() float64 {
	if t.count == 0 {
		return 0
	}
	return float64(t.injured) / float64(t.count) * 100
}

func modeOf(in Input, members []int, field func(accident.Record) string) string {
	values := make([]string, 0, len(members))
	for _, i := range members {
		if v := field(in.Records[i]); v != "" {
			values = append(values, v)
		}
	}
	if m, ok := stats.Mode(values); ok {
		return m
	}
	return "Various"
}

// highwayName formats a highway number for display.
func highwayName(hw string) string { return "BR-" + hw }
