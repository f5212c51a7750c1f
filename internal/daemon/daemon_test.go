package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/orchestrator"
)

// countingRunner records each invocation's language selection.
type countingRunner struct {
	mu    sync.Mutex
	runs  [][]string
	fired chan struct{}
}

func newCountingRunner() *countingRunner {
	return &countingRunner{fired: make(chan struct{}, 16)}
}

func (r *countingRunner) Run(_ context.Context, specs []catalog.LanguageSpec) (*orchestrator.Report, error) {
	r.mu.Lock()
	var codes []string
	for _, s := range specs {
		codes = append(codes, s.Code)
	}
	r.runs = append(r.runs, codes)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return orchestrator.NewReport(), nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *countingRunner) lastRun() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) == 0 {
		return nil
	}
	return r.runs[len(r.runs)-1]
}

func writeCatalog(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func waitFired(t *testing.T, r *countingRunner) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a build run")
	}
}

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	_, err := New(newCountingRunner(), Options{Interval: 0})
	require.Error(t, err)
}

func TestDaemonRunsOnStartup(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, catalogPath, "languages:\n  - code: kaz\n    repo: /src/kaz\n")

	runner := newCountingRunner()
	d, err := New(runner, Options{
		CatalogPath: catalogPath,
		Interval:    time.Hour,
		Debounce:    10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFired(t, runner)
	assert.Equal(t, []string{"kaz"}, runner.lastRun())
	assert.Eventually(t, func() bool { return d.LastReport() != nil }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestDaemonRebuildsOnCatalogChange(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, catalogPath, "languages:\n  - code: kaz\n    repo: /src/kaz\n")

	runner := newCountingRunner()
	d, err := New(runner, Options{
		CatalogPath: catalogPath,
		Interval:    time.Hour,
		Debounce:    10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	waitFired(t, runner)

	// Editing the catalog triggers a debounced rebuild with the new content.
	writeCatalog(t, catalogPath, "languages:\n  - code: kaz\n    repo: /src/kaz\n  - code: tur\n    repo: /src/tur\n")
	waitFired(t, runner)
	assert.Equal(t, []string{"kaz", "tur"}, runner.lastRun())
}

func TestDaemonAppliesLanguageFilter(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, catalogPath, "languages:\n  - code: kaz\n    repo: /src/kaz\n  - code: tur\n    repo: /src/tur\n")

	runner := newCountingRunner()
	d, err := New(runner, Options{
		CatalogPath: catalogPath,
		Langs:       []string{"tur"},
		Interval:    time.Hour,
		Debounce:    10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	waitFired(t, runner)
	assert.Equal(t, []string{"tur"}, runner.lastRun())
}

func TestDaemonSurvivesBrokenCatalogEdit(t *testing.T) {
	catalogPath := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, catalogPath, "languages:\n  - code: kaz\n    repo: /src/kaz\n")

	runner := newCountingRunner()
	d, err := New(runner, Options{
		CatalogPath: catalogPath,
		Interval:    time.Hour,
		Debounce:    10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	waitFired(t, runner)
	before := runner.count()

	// A broken edit must not crash the daemon or run a build.
	writeCatalog(t, catalogPath, "languages: [::not yaml")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, before, runner.count())

	// Fixing the file resumes normal operation.
	writeCatalog(t, catalogPath, "languages:\n  - code: kaz\n    repo: /src/kaz\n")
	waitFired(t, runner)
}
