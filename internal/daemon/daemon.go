// Package daemon keeps language packs continuously built: it reruns the
// orchestrator on a fixed interval and whenever the catalog file changes.
// Runs are serialized; a trigger arriving mid-run marks the run dirty and
// fires again when it finishes.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/logfields"
	"git.home.luguber.info/inful/packbuilder/internal/orchestrator"
)

// Runner executes one full build over the given catalog selection.
// Satisfied by orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, specs []catalog.LanguageSpec) (*orchestrator.Report, error)
}

// Options configures the daemon loop.
type Options struct {
	// CatalogPath is reloaded before every run so catalog edits take effect
	// without a restart.
	CatalogPath string

	// Langs filters the catalog; empty means all languages.
	Langs []string

	// Interval between scheduled builds.
	Interval time.Duration

	// Debounce for catalog file change triggers.
	Debounce time.Duration
}

// Daemon drives periodic and catalog-triggered builds.
type Daemon struct {
	runner    Runner
	opts      Options
	scheduler gocron.Scheduler
	watcher   *catalogWatcher

	trigger chan string

	mu      sync.Mutex
	running bool
	dirty   bool

	lastReport *orchestrator.Report
}

// New creates a daemon. Interval must be positive.
func New(runner Runner, opts Options) (*Daemon, error) {
	if opts.Interval <= 0 {
		return nil, errors.ConfigError("daemon interval must be positive").
			WithContext("interval", opts.Interval.String()).
			Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.DaemonError("failed to create scheduler").WithCause(err).Build()
	}

	return &Daemon{
		runner:    runner,
		opts:      opts,
		scheduler: scheduler,
		trigger:   make(chan string, 1),
	}, nil
}

// Run starts the schedule and the catalog watcher and blocks until ctx is
// canceled. The first build fires immediately.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.scheduler.NewJob(
		gocron.DurationJob(d.opts.Interval),
		gocron.NewTask(func() { d.fire("schedule") }),
		gocron.WithName("periodic-build"),
	); err != nil {
		return errors.DaemonError("failed to schedule periodic build").WithCause(err).Build()
	}

	watcher, err := newCatalogWatcher(d.opts.CatalogPath, d.opts.Debounce, func() { d.fire("catalog-change") })
	if err != nil {
		return err
	}
	d.watcher = watcher

	d.scheduler.Start()
	d.watcher.Start(ctx)
	defer d.shutdown()

	slog.Info("Daemon started",
		logfields.Path(d.opts.CatalogPath),
		slog.Duration("interval", d.opts.Interval))

	d.fire("startup")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reason := <-d.trigger:
			d.runOnce(ctx, reason)
		}
	}
}

// fire requests a build. A request during a run sets the dirty bit instead of
// queueing a duplicate.
func (d *Daemon) fire(reason string) {
	d.mu.Lock()
	if d.running {
		d.dirty = true
		d.mu.Unlock()
		slog.Debug("Build already running, marking dirty", slog.String("reason", reason))
		return
	}
	d.mu.Unlock()

	select {
	case d.trigger <- reason:
	default:
	}
}

func (d *Daemon) runOnce(ctx context.Context, reason string) {
	d.mu.Lock()
	d.running = true
	d.dirty = false
	d.mu.Unlock()

	slog.Info("Build triggered", slog.String("reason", reason))

	specs, err := d.loadSelection()
	if err != nil {
		slog.Error("Failed to load catalog, keeping previous state", logfields.Error(err))
	} else {
		report, runErr := d.runner.Run(ctx, specs)
		if runErr != nil && ctx.Err() == nil {
			slog.Error("Build run failed", logfields.Error(runErr))
		}
		if report != nil {
			d.mu.Lock()
			d.lastReport = report
			d.mu.Unlock()
		}
	}

	d.mu.Lock()
	d.running = false
	rerun := d.dirty
	d.mu.Unlock()

	if rerun && ctx.Err() == nil {
		d.fire("dirty")
	}
}

// loadSelection reloads the catalog file and applies the language filter.
func (d *Daemon) loadSelection() ([]catalog.LanguageSpec, error) {
	cat, err := catalog.Load(d.opts.CatalogPath)
	if err != nil {
		return nil, err
	}
	if len(d.opts.Langs) == 0 {
		return cat.Languages, nil
	}
	return cat.Select(d.opts.Langs)
}

// LastReport returns the most recent run report, if any.
func (d *Daemon) LastReport() *orchestrator.Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastReport
}

func (d *Daemon) shutdown() {
	if err := d.scheduler.Shutdown(); err != nil {
		slog.Error("Scheduler shutdown failed", logfields.Error(err))
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	slog.Info("Daemon stopped")
}
