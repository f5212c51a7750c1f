package metrics

import "time"

// Recorder defines observability hooks for run and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. All methods
// must be safe for nil receivers when using the NoopRecorder (allowing
// optional injection).
type Recorder interface {
	ObserveStageDuration(lang, stage string, d time.Duration)
	ObserveSyncDuration(lang string, d time.Duration, success bool)
	ObserveLanguageDuration(lang string, d time.Duration)
	IncLanguageOutcome(outcome string) // outcome: packaged|partial|failed
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, string, time.Duration)  {}
func (NoopRecorder) ObserveSyncDuration(string, time.Duration, bool)     {}
func (NoopRecorder) ObserveLanguageDuration(string, time.Duration)       {}
func (NoopRecorder) IncLanguageOutcome(string)                           {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                    {}
func (NoopRecorder) IncRunOutcome(bool)                                  {}
