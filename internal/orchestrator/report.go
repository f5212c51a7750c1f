package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// LanguageResult is the immutable outcome of processing one language.
// Finalized exactly once per run per language.
type LanguageResult struct {
	Lang     string        `json:"lang"`
	State    State         `json:"state"`
	Commit   string        `json:"commit,omitempty"`
	Package  string        `json:"package,omitempty"` // output directory on success
	Duration time.Duration `json:"duration"`

	// Artifacts lists packaged artifact filenames.
	Artifacts []string `json:"artifacts,omitempty"`

	// MissingOptional names enabled optional stages whose artifact is absent.
	MissingOptional []string `json:"missing_optional,omitempty"`

	// FailedStage and Err describe the failure for State == StateFailed.
	FailedStage string `json:"failed_stage,omitempty"`
	Err         error  `json:"-"`
	ErrText     string `json:"error,omitempty"`
}

// Report aggregates one orchestrator run. Assembled strictly after each
// language's pipeline completes; no cross-language synchronization needed.
type Report struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Results []LanguageResult `json:"results"`

	Packaged int `json:"packaged"`
	Partial  int `json:"partial"`
	Failed   int `json:"failed"`
}

// NewReport creates an empty report with a fresh run ID.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartTime: time.Now().UTC(),
	}
}

// Add records a finalized language result and updates the counters.
func (r *Report) Add(res LanguageResult) {
	if res.Err != nil {
		res.ErrText = res.Err.Error()
	}
	r.Results = append(r.Results, res)
	switch res.State {
	case StatePackaged:
		r.Packaged++
	case StatePartial:
		r.Partial++
	case StateFailed:
		r.Failed++
	}
}

// Finish stamps the end time.
func (r *Report) Finish() {
	r.EndTime = time.Now().UTC()
}

// Duration returns the total run duration.
func (r *Report) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Success reports the overall run outcome. Any failed language fails the
// run; with strict set, partial languages fail it too.
func (r *Report) Success(strict bool) bool {
	if r.Failed > 0 {
		return false
	}
	if strict && r.Partial > 0 {
		return false
	}
	return true
}

// Result returns the result for a language, if present.
func (r *Report) Result(lang string) (LanguageResult, bool) {
	for _, res := range r.Results {
		if res.Lang == lang {
			return res, true
		}
	}
	return LanguageResult{}, false
}
