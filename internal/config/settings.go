// Package config loads the pipeline parameters from an optional JSON file
// and the process environment, and resolves them into the parameter structs
// of each engine.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/banshee-data/roadrisk/internal/accident"
	"github.com/banshee-data/roadrisk/internal/cluster"
	"github.com/banshee-data/roadrisk/internal/ingest"
	"github.com/banshee-data/roadrisk/internal/risk"
	"github.com/banshee-data/roadrisk/internal/segment"
)

// Settings is a fully resolved set of pipeline parameters.
type Settings struct {
	LatMin float64 `validate:"gte=-90,lte=90"`
	LatMax float64 `validate:"gte=-90,lte=90,gtfield=LatMin"`
	LonMin float64 `validate:"gte=-180,lte=180"`
	LonMax float64 `validate:"gte=-180,lte=180,gtfield=LonMin"`

	ClusterEpsKm      float64 `validate:"gt=0"`
	ClusterMinSamples int     `validate:"gte=1"`
	SegmentLengthKm   float64 `validate:"gt=0"`

	HighRiskPercentile float64 `validate:"gte=0,lte=100"`
	TopCities          int     `validate:"gte=1"`

	InputEncoding  string `validate:"required"`
	InputSeparator rune   `validate:"required"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return EmptyPipelineConfig().Resolve()
}

// Resolve applies defaults to every unset field.
func (c *PipelineConfig) Resolve() Settings {
	return Settings{
		LatMin:             c.GetLatMin(),
		LatMax:             c.GetLatMax(),
		LonMin:             c.GetLonMin(),
		LonMax:             c.GetLonMax(),
		ClusterEpsKm:       c.GetClusterEpsKm(),
		ClusterMinSamples:  c.GetClusterMinSamples(),
		SegmentLengthKm:    c.GetSegmentLengthKm(),
		HighRiskPercentile: c.GetHighRiskPercentile(),
		TopCities:          c.GetTopCities(),
		InputEncoding:      c.GetInputEncoding(),
		InputSeparator:     c.GetInputSeparator(),
	}
}

var validate = validator.New()

// Validate checks field ranges and that the box is not inverted.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &ConfigError{Type: ErrValidation, Message: "invalid pipeline settings", Err: err}
	}
	if _, err := ingest.Decoder(s.InputEncoding); err != nil {
		return &ConfigError{Type: ErrValidation, Message: fmt.Sprintf("input_encoding %q", s.InputEncoding), Err: err}
	}
	return nil
}

// Bounds returns the coordinate validity box.
func (s Settings) Bounds() accident.GeoBounds {
	return accident.GeoBounds{LatMin: s.LatMin, LatMax: s.LatMax, LonMin: s.LonMin, LonMax: s.LonMax}
}

// ClusterParams returns the DBSCAN parameters.
func (s Settings) ClusterParams() cluster.Params {
	return cluster.Params{EpsKm: s.ClusterEpsKm, MinSamples: s.ClusterMinSamples}
}

// SegmentParams returns the segmentation parameters.
func (s Settings) SegmentParams() segment.Params {
	return segment.Params{LengthKm: s.SegmentLengthKm, Bounds: s.Bounds()}
}

// RiskParams returns the scoring parameters.
func (s Settings) RiskParams() risk.Params {
	return risk.Params{HighRiskPercentile: s.HighRiskPercentile}
}

// IngestOptions returns the reader options.
func (s Settings) IngestOptions() ingest.Options {
	return ingest.Options{Encoding: s.InputEncoding, Separator: s.InputSeparator, Bounds: s.Bounds()}
}

// Config returns s as a fully populated PipelineConfig, the form written to
// run metadata.
func (s Settings) Config() *PipelineConfig {
	return &PipelineConfig{
		LatMin:             ptrFloat64(s.LatMin),
		LatMax:             ptrFloat64(s.LatMax),
		LonMin:             ptrFloat64(s.LonMin),
		LonMax:             ptrFloat64(s.LonMax),
		ClusterEpsKm:       ptrFloat64(s.ClusterEpsKm),
		ClusterMinSamples:  ptrInt(s.ClusterMinSamples),
		SegmentLengthKm:    ptrFloat64(s.SegmentLengthKm),
		HighRiskPercentile: ptrFloat64(s.HighRiskPercentile),
		TopCities:          ptrInt(s.TopCities),
		InputEncoding:      ptrString(s.InputEncoding),
		InputSeparator:     ptrString(string(s.InputSeparator)),
	}
}
