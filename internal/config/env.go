package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read by LoadEnv.
const EnvPrefix = "ROADRISK"

// ConfigErrorType classifies configuration failures.
type ConfigErrorType string

const (
	ErrValidation ConfigErrorType = "VALIDATION"
	ErrParsing    ConfigErrorType = "PARSING"
	ErrFile       ConfigErrorType = "FILE"
)

// ConfigError wraps a configuration failure with its category.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Environment holds the run paths that may come from the process
// environment or a .env file. Command-line flags take precedence.
type Environment struct {
	Input      string `envconfig:"INPUT"`
	OutputDir  string `envconfig:"OUTPUT_DIR" default:"output"`
	ConfigPath string `envconfig:"CONFIG"`
	SQLitePath string `envconfig:"SQLITE"`
	Quiet      bool   `envconfig:"QUIET"`
}

// LoadEnv reads ROADRISK_* variables. A .env file in the working directory
// is loaded first when present; existing variables are not overwritten.
func LoadEnv() (Environment, error) {
	_ = godotenv.Load()

	var env Environment
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Environment{}, &ConfigError{Type: ErrParsing, Message: "failed to process environment variables", Err: err}
	}
	return env, nil
}

// Load resolves the settings of one run. An empty path yields the defaults.
func Load(path string) (Settings, error) {
	cfg := EmptyPipelineConfig()
	if path != "" {
		loaded, err := LoadPipelineConfig(path)
		if err != nil {
			return Settings{}, &ConfigError{Type: ErrFile, Message: fmt.Sprintf("loading %s", path), Err: err}
		}
		cfg = loaded
	}
	s := cfg.Resolve()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
