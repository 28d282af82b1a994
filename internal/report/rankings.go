package report

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// Ranking categories.
const (
	WorstHours    = "worst_hours"
	WorstDays     = "worst_days"
	WorstStates   = "worst_states"
	WorstHighways = "worst_highways"
)

// RankingRow is one entry of a top-N list of the busiest groups.
type RankingRow struct {
	Category  string
	Item      string
	Count     int
	Deaths    int
	RiskScore float64 // mean composite
	Rank      int     // dense by count within the category
	// VsAveragePct compares Count with the records per category.
	VsAveragePct float64
}

type ranked struct {
	label   string
	members []int
}

// DangerRankings lists the top hours, days, states and highways by volume.
func DangerRankings(in Input) []RankingRow {
	var out []RankingRow
	categories := 0

	add := func(category string, limit int, groups []ranked) {
		categories++
		slices.SortStableFunc(groups, func(a, b ranked) int { return len(b.members) - len(a.members) })
		if len(groups) > limit {
			groups = groups[:limit]
		}
		counts := make([]float64, len(groups))
		for i, g := range groups {
			counts[i] = float64(len(g.members))
		}
		ranks := stats.DenseRank(counts)
		for i, g := range groups {
			t := aggregate(in, g.members)
			out = append(out, RankingRow{
				Category:  category,
				Item:      g.label,
				Count:     t.count,
				Deaths:    t.deaths,
				RiskScore: t.avgRisk,
				Rank:      ranks[i],
			})
		}
	}

	if in.Fields.Has(accident.FieldHour) {
		add(WorstHours, 10, relabel(groupBy(in, func(i int) (int, bool) { return stats.ByHour(in.Records[i]) }),
			func(h int) string { return fmt.Sprintf("%dh", h) }))
	}
	if in.Fields.Has(accident.FieldDate) {
		add(WorstDays, 7, relabel(groupBy(in, func(i int) (int, bool) { return stats.ByDay(in.Records[i]) }),
			accident.DayName))
	}
	if in.Fields.Has(accident.FieldState) {
		add(WorstStates, 10, relabel(groupBy(in, func(i int) (string, bool) { return stats.ByState(in.Records[i]) }),
			func(s string) string { return s }))
	}
	if in.Fields.Has(accident.FieldHighway) {
		add(WorstHighways, 10, relabel(groupBy(in, func(i int) (string, bool) { return stats.ByHighway(in.Records[i]) }),
			highwayName))
	}

	if categories > 0 {
		avg := float64(len(in.Records)) / float64(categories)
		for i := range out {
			if v, ok := stats.Ratio(float64(out[i].Count)-avg, avg); ok {
				out[i].VsAveragePct = v * 100
			}
		}
	}
	return out
}

func relabel[K cmp.Ordered](groups []group[K], label func(K) string) []ranked {
	out := make([]ranked, len(groups))
	for i, g := range groups {
		out[i] = ranked{label: label(g.key), members: g.members}
	}
	return out
}

// ScenarioRow describes a combination of circumstances and how its mean
// risk compares with the dataset mean.
type ScenarioRow struct {
	Description    string
	Count          int
	Deaths         int
	RiskScore      float64
	RiskMultiplier float64
}

// WorstScenarios covers weekend nights on the five busiest highways and
// alcohol at night.
func WorstScenarios(in Input) []ScenarioRow {
	var out []ScenarioRow
	night := func(i int) bool { return in.Attributes[i].IsNight }

	if in.Fields.Has(accident.FieldHighway, accident.FieldDayPhase) {
		groups := groupBy(in, func(i int) (string, bool) {
			r := in.Records[i]
			return r.Highway, r.Highway != "" && in.Attributes[i].IsWeekend && night(i)
		})
		slices.SortStableFunc(groups, func(a, b group[string]) int { return len(b.members) - len(a.members) })
		if len(groups) > 5 {
			groups = groups[:5]
		}
		for _, g := range groups {
			out = append(out, scenario(in, "Weekend night on "+highwayName(g.key), g.members))
		}
	}

	if in.Fields.Has(accident.FieldCause, accident.FieldDayPhase) {
		var members []int
		for i := range in.Records {
			if in.Attributes[i].AlcoholInvolved && night(i) {
				members = append(members, i)
			}
		}
		if len(members) > 0 {
			out = append(out, scenario(in, "Alcohol involved at night", members))
		}
	}

	all := make([]float64, len(in.Assessments))
	for i, a := range in.Assessments {
		all[i] = a.Composite
	}
	mean := stats.Mean(all)
	for i := range out {
		if v, ok := stats.Ratio(out[i].RiskScore, mean); ok {
			out[i].RiskMultiplier = v
		}
	}
	return out
}

func scenario(in Input, desc string, members []int) ScenarioRow {
	t := aggregate(in, members)
	return ScenarioRow{Description: desc, Count: t.count, Deaths: t.deaths, RiskScore: t.avgRisk}
}

// Answer is a direct answer to a common question about the data.
type Answer struct {
	ID          int
	Question    string
	Answer      string
	Metric      string
	Explanation string
}

// WorstAnswers names the worst hour, day, state and highway by volume.
func WorstAnswers(in Input) []Answer {
	var out []Answer
	add := func(q, expl, label string, count int) {
		out = append(out, Answer{
			ID:          len(out) + 1,
			Question:    q,
			Answer:      label,
			Metric:      printer.Sprintf("%d accidents", count),
			Explanation: expl,
		})
	}

	if in.Fields.Has(accident.FieldHour) {
		if g, ok := busiest(groupBy(in, func(i int) (int, bool) { return stats.ByHour(in.Records[i]) })); ok {
			add("What is the worst hour to drive?", "Hour with the highest accident volume",
				fmt.Sprintf("%dh", g.key), len(g.members))
		}
	}
	if in.Fields.Has(accident.FieldDate) {
		if g, ok := busiest(groupBy(in, func(i int) (int, bool) { return stats.ByDay(in.Records[i]) })); ok {
			add("What is the worst day of the week?", "Day with the highest accident volume",
				accident.DayName(g.key), len(g.members))
		}
	}
	if in.Fields.Has(accident.FieldState) {
		if g, ok := busiest(groupBy(in, func(i int) (string, bool) { return stats.ByState(in.Records[i]) })); ok {
			add("What is the most dangerous state?", "State with the highest accident volume",
				g.key, len(g.members))
		}
	}
	if in.Fields.Has(accident.FieldHighway) {
		if g, ok := busiest(groupBy(in, func(i int) (string, bool) { return stats.ByHighway(in.Records[i]) })); ok {
			add("What is the most dangerous highway?", "Highway with the highest accident volume",
				highwayName(g.key), len(g.members))
		}
	}
	return out
}

// busiest returns the largest group; ties go to the smallest key.
func busiest[K cmp.Ordered](groups []group[K]) (group[K], bool) {
	var best group[K]
	found := false
	for _, g := range groups {
		if !found || len(g.members) > len(best.members) {
			best, found = g, true
		}
	}
	return best, found
}
