package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/daemon"
	"git.home.luguber.info/inful/packbuilder/internal/events"
	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/history"
	"git.home.luguber.info/inful/packbuilder/internal/metrics"
	"git.home.luguber.info/inful/packbuilder/internal/orchestrator"
	"git.home.luguber.info/inful/packbuilder/internal/packager"
	"git.home.luguber.info/inful/packbuilder/internal/toolchain"
	"git.home.luguber.info/inful/packbuilder/internal/version"
	"git.home.luguber.info/inful/packbuilder/internal/workspace"
)

var CLI struct {
	Catalog string `short:"c" help:"Language catalog file path" default:"catalog.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Out       string   `short:"o" help:"Output directory for packaged languages" default:"./packages"`
		Work      string   `short:"w" help:"Workspace directory for source checkouts" default:"./work"`
		Langs     []string `short:"l" help:"Build only these language codes"`
		Jobs      int      `short:"j" help:"Make parallelism per language"`
		Clean     bool     `help:"Remove workspaces before syncing"`
		Strict    bool     `help:"Treat partial results as failures"`
		HistoryDB string   `help:"SQLite file for run history (empty disables)"`
		NatsURL   string   `help:"NATS server for build events (empty disables)"`
	} `cmd:"" help:"Build and package the configured language packs"`

	Validate struct{} `cmd:"" help:"Validate the catalog file without building"`

	History struct {
		HistoryDB string `help:"SQLite file for run history" default:"./packbuilder.db"`
		Lang      string `help:"Show history for a single language"`
		Limit     int    `short:"n" help:"Number of entries to show" default:"10"`
	} `cmd:"" help:"Show recent build runs"`

	Daemon struct {
		Out           string        `short:"o" help:"Output directory for packaged languages" default:"./packages"`
		Work          string        `short:"w" help:"Workspace directory for source checkouts" default:"./work"`
		Langs         []string      `short:"l" help:"Build only these language codes"`
		Interval      time.Duration `help:"Interval between scheduled builds" default:"6h"`
		HistoryDB     string        `help:"SQLite file for run history (empty disables)"`
		NatsURL       string        `help:"NATS server for build events (empty disables)"`
		MetricsListen string        `help:"Prometheus metrics listen address (empty disables)"`
	} `cmd:"" help:"Continuously rebuild packs on a schedule and on catalog changes"`

	Version struct{} `cmd:"" help:"Show version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	adapter := errors.NewCLIErrorAdapter(CLI.Verbose, slog.Default())

	var err error
	switch kctx.Command() {
	case "build":
		err = runBuild()
	case "validate":
		err = runValidate()
	case "history":
		err = runHistory()
	case "daemon":
		err = runDaemon()
	case "version":
		fmt.Printf("packbuilder %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		os.Exit(adapter.ExitCodeFor(err))
	}
}

func runBuild() error {
	if err := toolchain.Preflight(); err != nil {
		return err
	}

	cat, err := catalog.Load(CLI.Catalog)
	if err != nil {
		return err
	}
	specs := cat.Languages
	if len(CLI.Build.Langs) > 0 {
		if specs, err = cat.Select(CLI.Build.Langs); err != nil {
			return err
		}
	}

	executor := toolchain.NewExecutor(nil)
	if CLI.Build.Jobs > 0 {
		executor.WithJobs(CLI.Build.Jobs)
	}

	orch := orchestrator.New(
		workspace.NewManager(CLI.Build.Work),
		executor,
		packager.New(CLI.Build.Out, cat.FallbackLicense),
	).WithClean(CLI.Build.Clean)

	if CLI.Build.HistoryDB != "" {
		store, err := history.Open(CLI.Build.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		orch.WithHistory(store)
	}
	if CLI.Build.NatsURL != "" {
		publisher, err := events.Connect(CLI.Build.NatsURL)
		if err != nil {
			return err
		}
		defer publisher.Close()
		orch.WithPublisher(publisher)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := orch.Run(ctx, specs)
	if err != nil {
		return err
	}

	printReport(report)
	if !report.Success(CLI.Build.Strict) {
		return errors.BuildError("run finished with failures").
			WithContext("failed", fmt.Sprintf("%d", report.Failed)).
			Build()
	}
	return nil
}

func runValidate() error {
	cat, err := catalog.Load(CLI.Catalog)
	if err != nil {
		return err
	}
	fmt.Printf("catalog OK: %d languages\n", len(cat.Languages))
	for _, spec := range cat.Languages {
		fmt.Printf("  %-8s %-24s %s@%s\n", spec.Code, spec.Name, spec.Repo, spec.Ref)
	}
	return nil
}

func runHistory() error {
	store, err := history.Open(CLI.History.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if CLI.History.Lang != "" {
		records, err := store.LanguageHistory(ctx, CLI.History.Lang, CLI.History.Limit)
		if err != nil {
			return err
		}
		for _, rec := range records {
			line := fmt.Sprintf("%-10s %-8s %8dms", rec.State, shortCommit(rec.Commit), rec.DurationMS)
			if rec.FailedStage != "" {
				line += fmt.Sprintf("  failed at %s: %s", rec.FailedStage, rec.Error)
			}
			fmt.Println(line)
		}
		return nil
	}

	runs, err := store.RecentRuns(ctx, CLI.History.Limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  packaged=%d partial=%d failed=%d\n",
			run.StartTime.Format(time.RFC3339), run.RunID, run.Packaged, run.Partial, run.Failed)
		for _, lang := range run.Languages {
			fmt.Printf("  %-8s %-10s %s\n", lang.Lang, lang.State, lang.FailedStage)
		}
	}
	return nil
}

func runDaemon() error {
	if err := toolchain.Preflight(); err != nil {
		return err
	}

	cat, err := catalog.Load(CLI.Catalog)
	if err != nil {
		return err
	}

	recorder := metrics.Recorder(metrics.NoopRecorder{})
	if CLI.Daemon.MetricsListen != "" {
		registry := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
		go serveMetrics(CLI.Daemon.MetricsListen, registry)
	}

	orch := orchestrator.New(
		workspace.NewManager(CLI.Daemon.Work),
		toolchain.NewExecutor(nil),
		packager.New(CLI.Daemon.Out, cat.FallbackLicense),
	).WithRecorder(recorder)

	if CLI.Daemon.HistoryDB != "" {
		store, err := history.Open(CLI.Daemon.HistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		orch.WithHistory(store)
	}
	if CLI.Daemon.NatsURL != "" {
		publisher, err := events.Connect(CLI.Daemon.NatsURL)
		if err != nil {
			return err
		}
		defer publisher.Close()
		orch.WithPublisher(publisher)
	}

	d, err := daemon.New(orch, daemon.Options{
		CatalogPath: CLI.Catalog,
		Langs:       CLI.Daemon.Langs,
		Interval:    CLI.Daemon.Interval,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	slog.Info("Serving metrics", slog.String("addr", addr))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Metrics server failed", slog.String("error", err.Error()))
	}
}

func printReport(report *orchestrator.Report) {
	fmt.Printf("run %s: packaged=%d partial=%d failed=%d in %s\n",
		report.RunID, report.Packaged, report.Partial, report.Failed,
		report.Duration().Round(time.Millisecond))
	for _, res := range report.Results {
		switch res.State {
		case orchestrator.StateFailed:
			fmt.Printf("  %-8s %-10s failed at %s: %s\n", res.Lang, res.State, res.FailedStage, res.ErrText)
		case orchestrator.StatePartial:
			fmt.Printf("  %-8s %-10s %s (missing optional: %v)\n", res.Lang, res.State, res.Package, res.MissingOptional)
		default:
			fmt.Printf("  %-8s %-10s %s\n", res.Lang, res.State, res.Package)
		}
	}
}

func shortCommit(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
