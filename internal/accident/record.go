// Package accident defines the cleaned accident record consumed by the
// scoring and geography engines, the typed field schema that says which
// input columns a dataset carried, and the shared geographic validity rule.
package accident

import (
	"time"
)

// UnknownHour and UnknownDay mark a temporal attribute that could not be
// parsed from the input.
const (
	UnknownHour = -1
	UnknownDay  = -1
)

// Record is one traffic accident after cleaning. Engines never write into a
// Record; they return index-aligned derived structures instead.
type Record struct {
	ID int64

	Date      time.Time // zero when unknown
	Hour      int       // 0-23 or UnknownHour
	DayOfWeek int       // 0=Monday..6=Sunday or UnknownDay

	State   string
	City    string
	Highway string
	KM      float64
	HasKM   bool

	Latitude       float64
	Longitude      float64
	HasCoordinates bool

	Deaths          int
	SeriousInjuries int
	LightInjuries   int
	Injured         int
	Uninjured       int
	Persons         int
	Vehicles        int

	Cause         string
	AccidentType  string
	SeverityClass string
	Weather       string
	RoadType      string
	RoadLayout    string
	DayPhase      string
	LandUse       string

	// SeverityScore is precomputed at ingest; see SeverityScore.
	SeverityScore float64
}

// Dataset is the full record set of one run together with the columns the
// input actually provided.
type Dataset struct {
	Records []Record
	Fields  FieldSet
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// Severity classifications used by the source data.
const (
	SeverityFatal    = "Com Vítimas Fatais"
	SeverityInjured  = "Com Vítimas Feridas"
	SeverityNoVictim = "Sem Vítimas"
)

// SeverityScore weighs outcome counts into a 0-100 score:
// (deaths*10 + serious*3 + light) / persons * 10, capped at 100.
// A record with no persons scores 0.
func SeverityScore(deaths, serious, light, persons int) float64 {
	if persons <= 0 {
		return 0
	}
	weighted := float64(deaths*10 + serious*3 + light)
	score := weighted / float64(persons) * 10
	if score > 100 {
		return 100
	}
	return score
}

// DayOfWeekFromDate maps a date onto the Monday=0 convention.
func DayOfWeekFromDate(d time.Time) int {
	if d.IsZero() {
		return UnknownDay
	}
	return (int(d.Weekday()) + 6) % 7
}

// HourKnown reports whether the hour attribute carries a value.
func (r Record) HourKnown() bool { return r.Hour >= 0 && r.Hour <= 23 }

// DayKnown reports whether the day-of-week attribute carries a value.
func (r Record) DayKnown() bool { return r.DayOfWeek >= 0 && r.DayOfWeek <= 6 }
