package accident

import (
	"regexp"
	"strings"
	"time"
)

// Attributes are the descriptive flags derived from a single record. They
// depend on nothing but the record itself.
type Attributes struct {
	Region         string
	TimePeriod     string
	DayName        string
	Quarter        int
	IsWeekend      bool
	IsRushHour     bool
	IsNight        bool
	PoorVisibility bool

	CauseCategory     string
	SeverityCode      int
	AlcoholInvolved   bool
	DriverAsleep      bool
	SpeedRelated      bool
	MechanicalFailure bool
	WeatherRelated    bool

	FatalityRate float64
	InjuryRate   float64
}

var regions = map[string][]string{
	"N":  {"AC", "AP", "AM", "PA", "RO", "RR", "TO"},
	"NE": {"AL", "BA", "CE", "MA", "PB", "PE", "PI", "RN", "SE"},
	"SE": {"ES", "MG", "RJ", "SP"},
	"S":  {"PR", "RS", "SC"},
	"CO": {"DF", "GO", "MS", "MT"},
}

var stateRegion = func() map[string]string {
	m := make(map[string]string)
	for region, states := range regions {
		for _, s := range states {
			m[s] = region
		}
	}
	return m
}()

// Region returns the macro-region of a state code, or "Unknown".
func Region(state string) string {
	if r, ok := stateRegion[strings.ToUpper(state)]; ok {
		return r
	}
	return "Unknown"
}

// TimePeriod buckets an hour into dawn, morning, afternoon or night.
// Unknown hours fall into night.
func TimePeriod(hour int) string {
	switch {
	case hour >= 0 && hour < 6:
		return "dawn"
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	}
	return "night"
}

// IsRushHour reports 07-09h and 17-19h.
func IsRushHour(hour int) bool {
	return (hour >= 7 && hour < 9) || (hour >= 17 && hour < 19)
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName returns the English weekday name for a Monday=0 index.
func DayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return dayNames[day]
}

// MonthName returns the English month name, or "" outside 1-12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}

var (
	humanCauses = []string{
		"reação tardia", "ausência de reação", "condutor dormindo",
		"ingestão de álcool", "velocidade", "ultrapassagem",
		"transitar na contramão", "acessar a via", "manobra",
		"pedestre", "distância", "prefer",
	}
	mechanicalCauses    = []string{"falhas mecânicas", "falha", "pneu", "freio"}
	environmentalCauses = []string{
		"chuva", "pista", "acumulo", "água", "neblina", "nevoeiro",
		"vento", "curva acentuada", "via",
	}
)

// CauseCategory groups free-text causes into human, mechanical,
// environmental or other. Human keywords win over the others.
func CauseCategory(cause string) string {
	if cause == "" {
		return "unknown"
	}
	lower := strings.ToLower(cause)
	switch {
	case containsAny(lower, humanCauses):
		return "human"
	case containsAny(lower, mechanicalCauses):
		return "mechanical"
	case containsAny(lower, environmentalCauses):
		return "environmental"
	}
	return "other"
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// SeverityCode maps the severity classification onto 3 (fatal), 2
// (injured), 1 (no victims) or 0.
func SeverityCode(class string) int {
	switch class {
	case SeverityFatal:
		return 3
	case SeverityInjured:
		return 2
	case SeverityNoVictim:
		return 1
	}
	return 0
}

var (
	alcoholRe    = regexp.MustCompile(`(?i)lcool`)
	asleepRe     = regexp.MustCompile(`(?i)dormindo`)
	speedRe      = regexp.MustCompile(`(?i)velocidade`)
	mechanicalRe = regexp.MustCompile(`(?i)mec.+nica|el.+trica|pneu|freio`)
	weatherRe    = regexp.MustCompile(`(?i)chuva|pista|gua|neblina`)
	nightRe      = regexp.MustCompile(`(?i)noite`)
	lowVisRe     = regexp.MustCompile(`(?i)nevoeiro|neblina|chuva`)
)

// Enrich derives the descriptive attributes of a record.
func Enrich(r Record) Attributes {
	a := Attributes{
		Region:            Region(r.State),
		TimePeriod:        TimePeriod(r.Hour),
		DayName:           DayName(r.DayOfWeek),
		IsWeekend:         r.DayOfWeek == 5 || r.DayOfWeek == 6,
		IsRushHour:        IsRushHour(r.Hour),
		IsNight:           nightRe.MatchString(r.DayPhase),
		CauseCategory:     CauseCategory(r.Cause),
		SeverityCode:      SeverityCode(r.SeverityClass),
		AlcoholInvolved:   alcoholRe.MatchString(r.Cause),
		DriverAsleep:      asleepRe.MatchString(r.Cause),
		SpeedRelated:      speedRe.MatchString(r.Cause),
		MechanicalFailure: mechanicalRe.MatchString(r.Cause),
		WeatherRelated:    weatherRe.MatchString(r.Cause),
	}
	a.PoorVisibility = a.IsNight || lowVisRe.MatchString(r.Weather)
	if !r.Date.IsZero() {
		a.Quarter = (int(r.Date.Month())-1)/3 + 1
	}
	if r.Persons > 0 {
		a.FatalityRate = float64(r.Deaths) / float64(r.Persons) * 100
		a.InjuryRate = float64(r.Injured) / float64(r.Persons) * 100
	}
	return a
}
