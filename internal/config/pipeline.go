package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// PipelineConfig is the JSON form of the pipeline parameters. Every field
// is optional; the Get* methods fall back to the built-in defaults.
type PipelineConfig struct {
	// Coordinate validity box
	LatMin *float64 `json:"lat_min,omitempty"`
	LatMax *float64 `json:"lat_max,omitempty"`
	LonMin *float64 `json:"lon_min,omitempty"`
	LonMax *float64 `json:"lon_max,omitempty"`

	// Clustering
	ClusterEpsKm      *float64 `json:"cluster_eps_km,omitempty"`
	ClusterMinSamples *int     `json:"cluster_min_samples,omitempty"`

	// Segmentation
	SegmentLengthKm *float64 `json:"segment_length_km,omitempty"`

	// Scoring and reporting
	HighRiskPercentile *float64 `json:"high_risk_percentile,omitempty"`
	TopCities          *int     `json:"top_cities,omitempty"`

	// Input format
	InputEncoding  *string `json:"input_encoding,omitempty"`
	InputSeparator *string `json:"input_separator,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// EmptyPipelineConfig returns a config with every field unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file. The file must
// have a .json extension and be under 1MB. Omitted fields keep their
// defaults, so partial files are fine.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or one of its parents. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set. Cross-field rules are checked
// again on the resolved Settings.
func (c *PipelineConfig) Validate() error {
	if c.ClusterEpsKm != nil && *c.ClusterEpsKm <= 0 {
		return fmt.Errorf("cluster_eps_km must be positive, got %f", *c.ClusterEpsKm)
	}
	if c.ClusterMinSamples != nil && *c.ClusterMinSamples < 1 {
		return fmt.Errorf("cluster_min_samples must be at least 1, got %d", *c.ClusterMinSamples)
	}
	if c.SegmentLengthKm != nil && *c.SegmentLengthKm <= 0 {
		return fmt.Errorf("segment_length_km must be positive, got %f", *c.SegmentLengthKm)
	}
	if c.HighRiskPercentile != nil {
		if p := *c.HighRiskPercentile; p < 0 || p > 100 {
			return fmt.Errorf("high_risk_percentile must be between 0 and 100, got %f", p)
		}
	}
	if c.InputSeparator != nil && len([]rune(*c.InputSeparator)) != 1 {
		return fmt.Errorf("input_separator must be a single character, got %q", *c.InputSeparator)
	}
	return nil
}

// GetLatMin returns lat_min or the default.
func (c *PipelineConfig) GetLatMin() float64 {
	if c.LatMin == nil {
		return -35
	}
	return *c.LatMin
}

// GetLatMax returns lat_max or the default.
func (c *PipelineConfig) GetLatMax() float64 {
	if c.LatMax == nil {
		return 5
	}
	return *c.LatMax
}

// GetLonMin returns lon_min or the default.
func (c *PipelineConfig) GetLonMin() float64 {
	if c.LonMin == nil {
		return -75
	}
	return *c.LonMin
}

// GetLonMax returns lon_max or the default.
func (c *PipelineConfig) GetLonMax() float64 {
	if c.LonMax == nil {
		return -30
	}
	return *c.LonMax
}

// GetClusterEpsKm returns cluster_eps_km or the default.
func (c *PipelineConfig) GetClusterEpsKm() float64 {
	if c.ClusterEpsKm == nil {
		return 5
	}
	return *c.ClusterEpsKm
}

// GetClusterMinSamples returns cluster_min_samples or the default.
func (c *PipelineConfig) GetClusterMinSamples() int {
	if c.ClusterMinSamples == nil {
		return 10
	}
	return *c.ClusterMinSamples
}

// GetSegmentLengthKm returns segment_length_km or the default.
func (c *PipelineConfig) GetSegmentLengthKm() float64 {
	if c.SegmentLengthKm == nil {
		return 10
	}
	return *c.SegmentLengthKm
}

// GetHighRiskPercentile returns high_risk_percentile or the default.
func (c *PipelineConfig) GetHighRiskPercentile() float64 {
	if c.HighRiskPercentile == nil {
		return 80
	}
	return *c.HighRiskPercentile
}

// GetTopCities returns top_cities or the default.
func (c *PipelineConfig) GetTopCities() int {
	if c.TopCities == nil {
		return 50
	}
	return *c.TopCities
}

// GetInputEncoding returns input_encoding or the default.
func (c *PipelineConfig) GetInputEncoding() string {
	if c.InputEncoding == nil || *c.InputEncoding == "" {
		return "latin-1"
	}
	return *c.InputEncoding
}

// GetInputSeparator returns the first rune of input_separator or ';'.
func (c *PipelineConfig) GetInputSeparator() rune {
	if c.InputSeparator == nil || *c.InputSeparator == "" {
		return ';'
	}
	return []rune(*c.InputSeparator)[0]
}
