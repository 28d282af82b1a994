package accident

import (
	"fmt"
	"strings"
)

// SkipReason classifies why an optional stage produced no output.
type SkipReason string

const (
	// SkipMissingField means a required input column was absent.
	SkipMissingField SkipReason = "missing_field"
	// SkipInsufficientSamples means too few usable records were present.
	SkipInsufficientSamples SkipReason = "insufficient_samples"
)

// Skip is returned alongside an engine result when the engine degraded to
// empty output. A nil *Skip means the engine ran.
type Skip struct {
	Stage   string
	Reason  SkipReason
	Missing []Field
	Have    int
	Need    int
}

// MissingFields builds a Skip for absent columns, or nil when none are
// missing.
func MissingFields(stage string, fields FieldSet, required ...Field) *Skip {
	missing := fields.Missing(required...)
	if len(missing) == 0 {
		return nil
	}
	return &Skip{Stage: stage, Reason: SkipMissingField, Missing: missing}
}

// InsufficientSamples builds a Skip for a stage that needed more records.
func InsufficientSamples(stage string, have, need int) *Skip {
	return &Skip{Stage: stage, Reason: SkipInsufficientSamples, Have: have, Need: need}
}

func (s *Skip) String() string {
	if s == nil {
		return "ran"
	}
	switch s.Reason {
	case SkipMissingField:
		names := make([]string, len(s.Missing))
		for i, f := range s.Missing {
			names[i] = f.String()
		}
		return fmt.Sprintf("%s skipped: missing %s", s.Stage, strings.Join(names, ", "))
	case SkipInsufficientSamples:
		return fmt.Sprintf("%s skipped: %d usable records, need %d", s.Stage, s.Have, s.Need)
	}
	return fmt.Sprintf("%s skipped: %s", s.Stage, s.Reason)
}
