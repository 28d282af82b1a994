package accident

import (
	"fmt"
	"strings"
)

// Field identifies an optional input column. Engines declare the fields
// they need and check them against the dataset's FieldSet instead of
// probing for columns at run time.
type Field uint32

const (
	FieldID Field = 1 << iota
	FieldDate
	FieldHour
	FieldState
	FieldCity
	FieldHighway
	FieldKM
	FieldLatitude
	FieldLongitude
	FieldDeaths
	FieldSeriousInjuries
	FieldLightInjuries
	FieldInjured
	FieldUninjured
	FieldPersons
	FieldVehicles
	FieldCause
	FieldAccidentType
	FieldSeverityClass
	FieldWeather
	FieldRoadType
	FieldRoadLayout
	FieldDayPhase
	FieldLandUse
)

var fieldNames = map[Field]string{
	FieldID:              "id",
	FieldDate:            "date",
	FieldHour:            "hour",
	FieldState:           "state",
	FieldCity:            "city",
	FieldHighway:         "highway",
	FieldKM:              "km",
	FieldLatitude:        "latitude",
	FieldLongitude:       "longitude",
	FieldDeaths:          "deaths",
	FieldSeriousInjuries: "serious_injuries",
	FieldLightInjuries:   "light_injuries",
	FieldInjured:         "injured",
	FieldUninjured:       "uninjured",
	FieldPersons:         "persons",
	FieldVehicles:        "vehicles",
	FieldCause:           "cause",
	FieldAccidentType:    "accident_type",
	FieldSeverityClass:   "severity_class",
	FieldWeather:         "weather",
	FieldRoadType:        "road_type",
	FieldRoadLayout:      "road_layout",
	FieldDayPhase:        "day_phase",
	FieldLandUse:         "land_use",
}

// AllFields lists every field in declaration order.
var AllFields = []Field{
	FieldID, FieldDate, FieldHour, FieldState, FieldCity, FieldHighway, FieldKM,
	FieldLatitude, FieldLongitude, FieldDeaths, FieldSeriousInjuries,
	FieldLightInjuries, FieldInjured, FieldUninjured, FieldPersons, FieldVehicles,
	FieldCause, FieldAccidentType, FieldSeverityClass, FieldWeather,
	FieldRoadType, FieldRoadLayout, FieldDayPhase, FieldLandUse,
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", uint32(f))
}

// FieldSet is a bit set of present fields.
type FieldSet uint32

// NewFieldSet builds a set from the given fields.
func NewFieldSet(fields ...Field) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s |= FieldSet(f)
	}
	return s
}

// AllFieldSet is a set with every known field present.
func AllFieldSet() FieldSet { return NewFieldSet(AllFields...) }

// With returns a copy of the set with the fields added.
func (s FieldSet) With(fields ...Field) FieldSet {
	return s | NewFieldSet(fields...)
}

// Without returns a copy of the set with the fields removed.
func (s FieldSet) Without(fields ...Field) FieldSet {
	return s &^ NewFieldSet(fields...)
}

// Has reports whether every given field is present.
func (s FieldSet) Has(fields ...Field) bool {
	want := NewFieldSet(fields...)
	return s&want == want
}

// Missing returns the given fields that are absent, in argument order.
func (s FieldSet) Missing(fields ...Field) []Field {
	var out []Field
	for _, f := range fields {
		if !s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s FieldSet) String() string {
	var names []string
	for _, f := range AllFields {
		if s.Has(f) {
			names = append(names, f.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}
