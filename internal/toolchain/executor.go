package toolchain

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"git.home.luguber.info/inful/packbuilder/internal/artifact"
	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/logfields"
	"git.home.luguber.info/inful/packbuilder/internal/workspace"
)

// StageFailure records a failed optional stage with a bounded diagnostic excerpt.
type StageFailure struct {
	Stage   StageName
	Excerpt string
}

// Outcome is the result of running the full stage sequence for one language.
type Outcome struct {
	// Produced lists the artifacts whose stages exited successfully. Claims
	// only: the validator confirms them on disk.
	Produced []artifact.Ref

	// OptionalFailed lists enabled optional stages that failed. The language
	// degrades to a partial result but keeps building.
	OptionalFailed []StageFailure

	// Durations records wall time per executed stage.
	Durations map[StageName]time.Duration
}

// Partial reports whether any enabled optional stage failed.
func (o *Outcome) Partial() bool {
	return len(o.OptionalFailed) > 0
}

// Executor runs the ordered build stages inside a workspace.
type Executor struct {
	runner Runner
	jobs   int
}

// NewExecutor creates an executor using the external toolchain. A nil runner
// defaults to ExecRunner.
func NewExecutor(runner Runner) *Executor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Executor{runner: runner, jobs: runtime.NumCPU()}
}

// WithJobs overrides the make parallelism (mainly for tests).
func (e *Executor) WithJobs(n int) *Executor {
	if n > 0 {
		e.jobs = n
	}
	return e
}

// Build runs the stage sequence for one language. A required stage failure
// aborts immediately with a BuildError naming the stage; optional failures
// are collected into the outcome. No stage is retried: transient toolchain
// failures surface instead of being masked.
func (e *Executor) Build(ctx context.Context, ws *workspace.Workspace, spec catalog.LanguageSpec) (*Outcome, error) {
	outcome := &Outcome{Durations: make(map[StageName]time.Duration)}

	for _, stage := range StagesFor(spec, e.jobs) {
		select {
		case <-ctx.Done():
			return nil, errors.BuildError("build canceled").
				WithCause(ctx.Err()).
				WithContext("lang", spec.Code).
				WithContext("stage", string(stage.Name)).
				Build()
		default:
		}

		start := time.Now()
		res, err := e.runStage(ctx, ws.Path, stage)
		dur := time.Since(start)
		outcome.Durations[stage.Name] = dur

		if err != nil {
			diag := excerpt(res.Stderr)
			if diag == "" {
				diag = excerpt(res.Stdout)
			}
			if stage.Optional {
				slog.Warn("Optional stage failed, continuing",
					logfields.Lang(spec.Code),
					logfields.Stage(string(stage.Name)),
					logfields.Error(err))
				outcome.OptionalFailed = append(outcome.OptionalFailed, StageFailure{
					Stage:   stage.Name,
					Excerpt: diag,
				})
				continue
			}
			return nil, errors.BuildError("required stage failed").
				WithCause(err).
				WithContext("lang", spec.Code).
				WithContext("stage", string(stage.Name)).
				WithContext("excerpt", diag).
				Build()
		}

		slog.Debug("Stage completed",
			logfields.Lang(spec.Code),
			logfields.Stage(string(stage.Name)),
			logfields.DurationMS(float64(dur.Milliseconds())))

		if stage.Artifact != nil {
			outcome.Produced = append(outcome.Produced, *stage.Artifact)
		}
	}

	return outcome, nil
}

// runStage runs the stage command, falling back to the alternate command if
// the primary fails and a fallback is declared.
func (e *Executor) runStage(ctx context.Context, dir string, stage StageDef) (RunResult, error) {
	res, err := e.runner.Run(ctx, dir, stage.Argv)
	if err == nil || len(stage.Fallback) == 0 {
		return res, err
	}
	slog.Debug("Primary command failed, trying fallback",
		logfields.Stage(string(stage.Name)),
		slog.Any("fallback", stage.Fallback))
	return e.runner.Run(ctx, dir, stage.Fallback)
}
