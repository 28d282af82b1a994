package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/banshee-data/roadrisk/internal/accident"
)

// column binds a raw input column to the record field it fills.
type column struct {
	name  string
	field accident.Field
	set   func(r *accident.Record, raw string)
}

// columns lists the raw columns in the order the source publishes them.
var columns = []column{
	{"id", accident.FieldID, func(r *accident.Record, s string) { r.ID = int64(parseInt(s)) }},
	{"data_inversa", accident.FieldDate, func(r *accident.Record, s string) { r.Date = parseDate(s) }},
	{"horario", accident.FieldHour, func(r *accident.Record, s string) { r.Hour = parseHour(s) }},
	{"uf", accident.FieldState, func(r *accident.Record, s string) { r.State = strings.ToUpper(normalizeText(s)) }},
	{"br", accident.FieldHighway, func(r *accident.Record, s string) { r.Highway = parseHighway(s) }},
	{"km", accident.FieldKM, func(r *accident.Record, s string) { r.KM, r.HasKM = parseDecimal(s) }},
	{"municipio", accident.FieldCity, func(r *accident.Record, s string) { r.City = normalizeText(s) }},
	{"causa_acidente", accident.FieldCause, func(r *accident.Record, s string) { r.Cause = normalizeText(s) }},
	{"tipo_acidente", accident.FieldAccidentType, func(r *accident.Record, s string) { r.AccidentType = normalizeText(s) }},
	{"classificacao_acidente", accident.FieldSeverityClass, func(r *accident.Record, s string) { r.SeverityClass = normalizeText(s) }},
	{"fase_dia", accident.FieldDayPhase, func(r *accident.Record, s string) { r.DayPhase = normalizeText(s) }},
	{"condicao_metereologica", accident.FieldWeather, func(r *accident.Record, s string) { r.Weather = normalizeText(s) }},
	{"tipo_pista", accident.FieldRoadType, func(r *accident.Record, s string) { r.RoadType = normalizeText(s) }},
	{"tracado_via", accident.FieldRoadLayout, func(r *accident.Record, s string) { r.RoadLayout = normalizeText(s) }},
	{"uso_solo", accident.FieldLandUse, func(r *accident.Record, s string) { r.LandUse = normalizeText(s) }},
	{"pessoas", accident.FieldPersons, func(r *accident.Record, s string) { r.Persons = parseInt(s) }},
	{"mortos", accident.FieldDeaths, func(r *accident.Record, s string) { r.Deaths = parseInt(s) }},
	{"feridos_leves", accident.FieldLightInjuries, func(r *accident.Record, s string) { r.LightInjuries = parseInt(s) }},
	{"feridos_graves", accident.FieldSeriousInjuries, func(r *accident.Record, s string) { r.SeriousInjuries = parseInt(s) }},
	{"feridos", accident.FieldInjured, func(r *accident.Record, s string) { r.Injured = parseInt(s) }},
	{"ilesos", accident.FieldUninjured, func(r *accident.Record, s string) { r.Uninjured = parseInt(s) }},
	{"veiculos", accident.FieldVehicles, func(r *accident.Record, s string) { r.Vehicles = parseInt(s) }},
	// latitude must stay ahead of longitude: together they decide
	// HasCoordinates
	{"latitude", accident.FieldLatitude, func(r *accident.Record, s string) { r.Latitude, r.HasCoordinates = parseDecimal(s) }},
	{"longitude", accident.FieldLongitude, func(r *accident.Record, s string) {
		v, ok := parseDecimal(s)
		r.Longitude = v
		r.HasCoordinates = r.HasCoordinates && ok
	}},
}

// weekdayColumn is read only to recover the day of week when the date does
// not parse.
const weekdayColumn = "dia_semana"

var weekdays = map[string]int{
	"segunda-feira": 0, "terça-feira": 1, "quarta-feira": 2, "quinta-feira": 3,
	"sexta-feira": 4, "sábado": 5, "domingo": 6,
}

func parseWeekday(s string) int {
	if d, ok := weekdays[strings.ToLower(normalizeText(s))]; ok {
		return d
	}
	return accident.UnknownDay
}

// normalizeText trims, collapses inner whitespace and composes accents.
func normalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// parseDecimal reads a number written with a decimal comma or dot.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseInt coerces a count; anything unparsable is 0.
func parseInt(s string) int {
	v, ok := parseDecimal(s)
	if !ok {
		return 0
	}
	return int(v)
}

// parseHighway keeps the highway number as text, dropping a decimal part
// the export sometimes carries. Zero or unparsable numbers are unknown.
func parseHighway(s string) string {
	s = normalizeText(s)
	if v, ok := parseDecimal(s); ok {
		if v <= 0 {
			return ""
		}
		return strconv.Itoa(int(v))
	}
	return s
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02/01/06"}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d
		}
	}
	return time.Time{}
}

var timeLayouts = []string{"15:04:05", "15:04"}

func parseHour(s string) int {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()
		}
	}
	return accident.UnknownHour
}
