// Package orchestrator drives each selected language through the four-stage
// pipeline: workspace sync, toolchain build, artifact validation, packaging.
// Languages are independent units of work: a failure in one transitions it to
// Failed and the run moves on to the next.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/packbuilder/internal/artifact"
	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/logfields"
	"git.home.luguber.info/inful/packbuilder/internal/metrics"
	"git.home.luguber.info/inful/packbuilder/internal/packager"
	"git.home.luguber.info/inful/packbuilder/internal/toolchain"
	"git.home.luguber.info/inful/packbuilder/internal/workspace"
)

// HistoryStore persists finished runs. Implemented by the sqlite history store.
type HistoryStore interface {
	RecordRun(ctx context.Context, report *Report) error
}

// EventPublisher emits build events as languages finish. Implemented by the
// NATS publisher; absent by default.
type EventPublisher interface {
	LanguageCompleted(ctx context.Context, runID string, res LanguageResult)
	RunCompleted(ctx context.Context, report *Report)
}

// Orchestrator wires the pipeline components together for one run.
type Orchestrator struct {
	workspaces *workspace.Manager
	executor   *toolchain.Executor
	packager   *packager.Packager

	recorder  metrics.Recorder
	history   HistoryStore
	publisher EventPublisher

	// clean removes each language's workspace before syncing.
	clean bool
}

// New creates an orchestrator over the given pipeline components.
func New(workspaces *workspace.Manager, executor *toolchain.Executor, pkg *packager.Packager) *Orchestrator {
	return &Orchestrator{
		workspaces: workspaces,
		executor:   executor,
		packager:   pkg,
		recorder:   metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder.
func (o *Orchestrator) WithRecorder(r metrics.Recorder) *Orchestrator {
	if r != nil {
		o.recorder = r
	}
	return o
}

// WithHistory injects a run-history store.
func (o *Orchestrator) WithHistory(h HistoryStore) *Orchestrator {
	o.history = h
	return o
}

// WithPublisher injects an event publisher.
func (o *Orchestrator) WithPublisher(p EventPublisher) *Orchestrator {
	o.publisher = p
	return o
}

// WithClean removes existing workspaces before each sync.
func (o *Orchestrator) WithClean(clean bool) *Orchestrator {
	o.clean = clean
	return o
}

// Run processes every selected language and returns the aggregate report.
// Per-language failures are recorded, never propagated across languages; the
// only error returned is a canceled context before a language starts.
func (o *Orchestrator) Run(ctx context.Context, specs []catalog.LanguageSpec) (*Report, error) {
	report := NewReport()
	slog.Info("Run started", logfields.RunID(report.RunID), slog.Int("languages", len(specs)))

	if err := o.workspaces.EnsureRoot(); err != nil {
		return nil, err
	}

	for _, spec := range specs {
		select {
		case <-ctx.Done():
			report.Finish()
			return report, ctx.Err()
		default:
		}

		start := time.Now()
		res := o.buildLanguage(ctx, spec)
		res.Duration = time.Since(start)
		report.Add(res)

		o.recorder.ObserveLanguageDuration(spec.Code, res.Duration)
		o.recorder.IncLanguageOutcome(strings.ToLower(string(res.State)))
		if o.publisher != nil {
			o.publisher.LanguageCompleted(ctx, report.RunID, res)
		}

		switch res.State {
		case StateFailed:
			slog.Error("Language failed",
				logfields.Lang(spec.Code),
				logfields.Stage(res.FailedStage),
				logfields.Error(res.Err))
		default:
			slog.Info("Language finished",
				logfields.Lang(spec.Code),
				logfields.State(string(res.State)),
				logfields.DurationMS(float64(res.Duration.Milliseconds())))
		}
	}

	report.Finish()
	o.recorder.ObserveRunDuration(report.Duration())
	o.recorder.IncRunOutcome(report.Success(false))

	if o.history != nil {
		if err := o.history.RecordRun(ctx, report); err != nil {
			slog.Warn("Failed to record run history", logfields.Error(err))
		}
	}
	if o.publisher != nil {
		o.publisher.RunCompleted(ctx, report)
	}

	slog.Info("Run finished",
		logfields.RunID(report.RunID),
		slog.Int("packaged", report.Packaged),
		slog.Int("partial", report.Partial),
		slog.Int("failed", report.Failed))
	return report, nil
}

// buildLanguage drives one language to a terminal state. Every stage failure
// is caught here and becomes a Failed result with the stage's identity.
func (o *Orchestrator) buildLanguage(ctx context.Context, spec catalog.LanguageSpec) LanguageResult {
	res := LanguageResult{Lang: spec.Code, State: StatePending}

	if o.clean {
		if err := o.workspaces.Clean(spec.Code); err != nil {
			return failed(res, "sync", err)
		}
	}

	syncStart := time.Now()
	ws, err := o.workspaces.Sync(ctx, spec)
	o.recorder.ObserveSyncDuration(spec.Code, time.Since(syncStart), err == nil)
	if err != nil {
		return failed(res, "sync", err)
	}
	res.State = StateCloned
	res.Commit = ws.Commit

	outcome, err := o.executor.Build(ctx, ws, spec)
	if err != nil {
		return failed(res, stageOf(err, "build"), err)
	}
	res.State = StateBuilt
	for stage, d := range outcome.Durations {
		o.recorder.ObserveStageDuration(spec.Code, string(stage), d)
	}

	validated, err := artifact.Validate(ws.Path, spec.Code, outcome.Produced)
	if err != nil {
		return failed(res, "validate", err)
	}
	res.State = StateValidated

	pkgDir, err := o.packager.Package(spec, ws.Commit, ws.Path, validated)
	if err != nil {
		return failed(res, "package", err)
	}

	res.Package = pkgDir
	for _, v := range validated {
		res.Artifacts = append(res.Artifacts, v.Name)
	}

	if outcome.Partial() {
		for _, f := range outcome.OptionalFailed {
			res.MissingOptional = append(res.MissingOptional, string(f.Stage))
		}
		res.State = StatePartial
	} else {
		res.State = StatePackaged
	}
	return res
}

// failed finalizes a result in the Failed state, recording the stage identity.
func failed(res LanguageResult, stage string, err error) LanguageResult {
	res.State = StateFailed
	res.FailedStage = stage
	res.Err = err
	return res
}

// stageOf extracts the toolchain stage name from a classified error, falling
// back to the pipeline phase.
func stageOf(err error, fallback string) string {
	if classified, ok := errors.AsClassified(err); ok {
		if stage, found := classified.Context().GetString("stage"); found {
			return stage
		}
	}
	return fallback
}
