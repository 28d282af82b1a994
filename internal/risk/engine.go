package risk

import (
	"math"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/monitoring"
	"github.com/banshee-data/roadrisk/internal/stats"
)

// Stage names this engine in skip reasons and logs.
const Stage = "risk"

// Assessment holds the risk scores of one record.
type Assessment struct {
	HourScore float64
	DayScore  float64
	TimeScore float64

	HighwayScore  float64
	StateScore    float64
	LocationScore float64

	WeatherScore   float64
	RoadScore      float64
	ConditionScore float64

	BaseComposite float64 // before death amplification and clamping
	Composite     float64 // 0-100
	HighRisk      bool

	// Dense ranks by group volume, 1 = most accidents; 0 when the group is
	// unknown.
	HourRank    int
	DayRank     int
	StateRank   int
	HighwayRank int

	FatalityProbability float64 // 1 when the accident had deaths
	InjuryProbability   float64 // injured / persons * 100
	DangerPercentile    float64 // percentile rank of the severity score
}

// Baselines are the grouped tables the scores were computed from.
type Baselines struct {
	Hour     *stats.Table[int]
	Day      *stats.Table[int]
	Highway  *stats.Table[string]
	State    *stats.Table[string]
	Weather  *stats.Table[string]
	RoadType *stats.Table[string]
}

// Result is index-aligned with the dataset's records.
type Result struct {
	Assessments []Assessment
	Threshold   float64 // composite at the high-risk percentile
	Baselines   Baselines
	// Skips lists the sub-dimensions left out because their field was
	// absent.
	Skips []*accident.Skip
}

// HighRiskCount returns the number of flagged records.
func (r Result) HighRiskCount() int {
	n := 0
	for _, a := range r.Assessments {
		if a.HighRisk {
			n++
		}
	}
	return n
}

// Engine computes risk assessments.
type Engine struct {
	params Params
}

// NewEngine creates an engine.
func NewEngine(params Params) *Engine {
	return &Engine{params: params}
}

// BuildBaselines groups the records along every scoring dimension.
func BuildBaselines(records []accident.Record) Baselines {
	return Baselines{
		Hour:     stats.Build(records, stats.ByHour),
		Day:      stats.Build(records, stats.ByDay),
		Highway:  stats.Build(records, stats.ByHighway),
		State:    stats.Build(records, stats.ByState),
		Weather:  stats.Build(records, stats.ByWeather),
		RoadType: stats.Build(records, stats.ByRoadType),
	}
}

// Score assesses every record of ds.
func (e *Engine) Score(ds accident.Dataset) Result {
	records := ds.Records
	b := BuildBaselines(records)
	res := Result{
		Assessments: make([]Assessment, len(records)),
		Baselines:   b,
	}

	avail := func(name string, f accident.Field) bool {
		if skip := accident.MissingFields(Stage+"."+name, ds.Fields, f); skip != nil {
			res.Skips = append(res.Skips, skip)
			monitoring.Logf("%s", skip)
			return false
		}
		return true
	}
	hasHour := avail("hour", accident.FieldHour)
	hasDay := avail("day", accident.FieldDate)
	hasHighway := avail("highway", accident.FieldHighway)
	hasState := avail("state", accident.FieldState)
	hasWeather := avail("weather", accident.FieldWeather)
	hasRoad := avail("road_type", accident.FieldRoadType)

	hour := newSubScorer(b.Hour, volume[int], fatalityRate[int])
	day := newSubScorer(b.Day, volume[int], fatalityRate[int])
	highway := newSubScorer(b.Highway, perKM[string], fatalityRate[string])
	state := newSubScorer(b.State, volume[string], fatalityRate[string])
	weather := newSubScorer(b.Weather, fatalityRate[string])
	road := newSubScorer(b.RoadType, fatalityRate[string])

	hourRanks := b.Hour.DenseRanks()
	dayRanks := b.Day.DenseRanks()
	stateRanks := b.State.DenseRanks()
	highwayRanks := b.Highway.DenseRanks()

	pick := func(has bool, score float64) float64 {
		if !has {
			return unavailable
		}
		return score
	}

	composites := make([]float64, len(records))
	severity := make([]float64, len(records))
	for i, r := range records {
		a := &res.Assessments[i]

		a.HourScore = pick(hasHour, hour.score(stats.ByHour(r)))
		a.DayScore = pick(hasDay, day.score(stats.ByDay(r)))
		a.HighwayScore = pick(hasHighway, highway.score(stats.ByHighway(r)))
		a.StateScore = pick(hasState, state.score(stats.ByState(r)))
		a.WeatherScore = pick(hasWeather, weather.score(stats.ByWeather(r)))
		a.RoadScore = pick(hasRoad, road.score(stats.ByRoadType(r)))

		a.TimeScore = dimension(a.HourScore, a.DayScore)
		a.LocationScore = dimension(a.HighwayScore, a.StateScore)
		a.ConditionScore = dimension(a.WeatherScore, a.RoadScore)

		// missing sub-dimensions are reported as neutral
		for _, s := range []*float64{&a.HourScore, &a.DayScore, &a.HighwayScore, &a.StateScore, &a.WeatherScore, &a.RoadScore} {
			if math.IsNaN(*s) {
				*s = Neutral
			}
		}

		a.BaseComposite, a.Composite = Composite(a.LocationScore, a.TimeScore, a.ConditionScore, r.Deaths)

		if r.HourKnown() {
			a.HourRank = hourRanks[r.Hour]
		}
		if r.DayKnown() {
			a.DayRank = dayRanks[r.DayOfWeek]
		}
		a.StateRank = stateRanks[r.State]
		a.HighwayRank = highwayRanks[r.Highway]

		if r.Deaths > 0 {
			a.FatalityProbability = 1
		}
		if r.Persons > 0 {
			a.InjuryProbability = float64(r.Injured) / float64(r.Persons) * 100
		}

		composites[i] = a.Composite
		severity[i] = r.SeverityScore
	}

	if len(records) > 0 {
		res.Threshold = stats.Quantile(composites, e.params.HighRiskPercentile/100)
	}
	percentiles := stats.PercentileRank(severity)
	for i := range res.Assessments {
		res.Assessments[i].HighRisk = res.Assessments[i].Composite >= res.Threshold
		res.Assessments[i].DangerPercentile = percentiles[i]
	}

	monitoring.Logf("risk: %d records scored, %d high risk (composite >= %.2f)",
		len(records), res.HighRiskCount(), res.Threshold)
	return res
}
