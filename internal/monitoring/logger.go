// Package monitoring holds the diagnostic logger shared by the pipeline
// stages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a data-quality warning through Logf with a stable prefix so
// warnings can be grepped out of a run log.
func Warnf(format string, v ...interface{}) {
	Logf("WARN "+format, v...)
}
