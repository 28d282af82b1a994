// Package testutil provides shared record builders and fixtures for the
// engine tests.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/geo"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Option mutates a record under construction.
type Option func(*accident.Record)

// At places the record at a coordinate.
func At(lat, lon float64) Option {
	return func(r *accident.Record) {
		r.Latitude, r.Longitude, r.HasCoordinates = lat, lon, true
	}
}

// OnHighway sets the highway and kilometre marker.
func OnHighway(highway string, km float64) Option {
	return func(r *accident.Record) {
		r.Highway, r.KM, r.HasKM = highway, km, true
	}
}

// InState sets the state code and city.
func InState(state, city string) Option {
	return func(r *accident.Record) { r.State, r.City = state, city }
}

// AtHour sets the hour of day.
func AtHour(hour int) Option {
	return func(r *accident.Record) { r.Hour = hour }
}

// OnDate sets the date and the matching day of week.
func OnDate(year int, month time.Month, day int) Option {
	return func(r *accident.Record) {
		r.Date = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		r.DayOfWeek = accident.DayOfWeekFromDate(r.Date)
	}
}

// WithCasualties sets outcome counts and recomputes the severity score.
func WithCasualties(persons, deaths, serious, light int) Option {
	return func(r *accident.Record) {
		r.Persons, r.Deaths, r.SeriousInjuries, r.LightInjuries = persons, deaths, serious, light
		r.Injured = serious + light
		r.Uninjured = max(persons-deaths-serious-light, 0)
		r.SeverityScore = accident.SeverityScore(deaths, serious, light, persons)
		switch {
		case deaths > 0:
			r.SeverityClass = accident.SeverityFatal
		case serious+light > 0:
			r.SeverityClass = accident.SeverityInjured
		default:
			r.SeverityClass = accident.SeverityNoVictim
		}
	}
}

// WithConditions sets weather and road type.
func WithConditions(weather, roadType string) Option {
	return func(r *accident.Record) { r.Weather, r.RoadType = weather, roadType }
}

// WithCause sets the cause and accident type.
func WithCause(cause, kind string) Option {
	return func(r *accident.Record) { r.Cause, r.AccidentType = cause, kind }
}

// NewRecord builds a record with an id, a noon hour on a Monday and two
// uninjured persons, then applies opts.
func NewRecord(id int64, opts ...Option) accident.Record {
	r := accident.Record{
		ID:        id,
		Hour:      12,
		DayOfWeek: 0,
		State:     "SP",
		Persons:   2,
		Uninjured: 2,
		Weather:   "Céu Claro",
		RoadType:  "Simples",
	}
	r.SeverityClass = accident.SeverityNoVictim
	for _, o := range opts {
		o(&r)
	}
	return r
}

// NewDataset wraps records in a dataset carrying every field.
func NewDataset(records ...accident.Record) accident.Dataset {
	return accident.Dataset{Records: records, Fields: accident.AllFieldSet()}
}

// TightCluster returns n coordinates on a spiral around center, none
// farther than radiusKm from it.
func TightCluster(center geo.Point, n int, radiusKm float64) []geo.Point {
	points := make([]geo.Point, n)
	for i := range points {
		frac := float64(i+1) / float64(n)
		dist := radiusKm * frac / geo.KmPerDegreeLat
		angle := float64(i) * 2.399963 // golden angle
		points[i] = geo.Point{
			Latitude:  center.Latitude + dist*math.Sin(angle),
			Longitude: center.Longitude + dist*math.Cos(angle)/math.Cos(geo.Radians(center.Latitude)),
		}
	}
	return points
}

// Scattered returns n coordinates at least spacingKm apart along a
// parallel starting at origin.
func Scattered(origin geo.Point, n int, spacingKm float64) []geo.Point {
	points := make([]geo.Point, n)
	step := spacingKm / (geo.KmPerDegreeLat * math.Cos(geo.Radians(origin.Latitude)))
	for i := range points {
		points[i] = geo.Point{Latitude: origin.Latitude, Longitude: origin.Longitude + float64(i)*step}
	}
	return points
}

// SampleDataset is a small run fixture: fifteen accidents packed within
// 1 km on BR-116 near Sao Paulo, and ten accidents 20 km apart on BR-101
// with one fatality, spread across hours, dates and conditions.
func SampleDataset() accident.Dataset {
	var records []accident.Record
	center := geo.Point{Latitude: -23.55, Longitude: -46.63}
	for i, p := range TightCluster(center, 15, 1) {
		records = append(records, NewRecord(int64(i+1),
			At(p.Latitude, p.Longitude),
			OnHighway("116", 20+float64(i%10)),
			InState("SP", "SAO PAULO"),
			AtHour(18+i%3),
			OnDate(2024, time.March, 1+i%7),
			WithCasualties(3, 0, i%2, 1),
			WithCause("Velocidade Incompatível", "Colisão traseira"),
		))
	}
	origin := geo.Point{Latitude: -27.6, Longitude: -48.6}
	for i, p := range Scattered(origin, 10, 20) {
		opts := []Option{
			At(p.Latitude, p.Longitude),
			OnHighway("101", 100+float64(i)*20),
			InState("SC", "FLORIANOPOLIS"),
			AtHour(i * 2),
			OnDate(2024, time.July, 10+i),
			WithConditions("Chuva", "Dupla"),
			WithCause("Ingestão de álcool pelo condutor", "Saída de leito carroçável"),
		}
		if i == 0 {
			opts = append(opts, WithCasualties(2, 1, 1, 0))
		}
		records = append(records, NewRecord(int64(100+i), opts...))
	}
	return NewDataset(records...)
}
