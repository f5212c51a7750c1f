package history

import (
	"context"
	"testing"
	"time"

	"git.home.luguber.info/inful/packbuilder/internal/orchestrator"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleReport(runID string) *orchestrator.Report {
	report := &orchestrator.Report{
		RunID:     runID,
		StartTime: time.Now().Add(-time.Minute).UTC(),
	}
	report.Add(orchestrator.LanguageResult{
		Lang:      "kaz",
		State:     orchestrator.StatePackaged,
		Commit:    "abcdef1234567890",
		Duration:  42 * time.Second,
		Artifacts: []string{"kaz.automorf.hfst", "kaz.autogen.hfst"},
	})
	report.Add(orchestrator.LanguageResult{
		Lang:        "tur",
		State:       orchestrator.StateFailed,
		FailedStage: "sync",
		ErrText:     "repository not reachable",
		Duration:    3 * time.Second,
	})
	report.Finish()
	return report
}

func TestRecordAndRecentRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordRun(ctx, sampleReport("run-1")); err != nil {
		t.Fatalf("record run: %v", err)
	}

	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	run := runs[0]
	if run.RunID != "run-1" || run.Packaged != 1 || run.Failed != 1 {
		t.Errorf("unexpected run record: %+v", run)
	}
	if len(run.Languages) != 2 {
		t.Fatalf("expected 2 language rows, got %d", len(run.Languages))
	}
	kaz := run.Languages[0]
	if kaz.Lang != "kaz" || kaz.State != "PACKAGED" || len(kaz.Artifacts) != 2 {
		t.Errorf("unexpected kaz record: %+v", kaz)
	}
	tur := run.Languages[1]
	if tur.FailedStage != "sync" || tur.Error == "" {
		t.Errorf("expected failure details for tur, got %+v", tur)
	}
}

func TestRecentRunsNewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		report := sampleReport(id)
		report.StartTime = time.Now().Add(time.Duration(i) * time.Hour).UTC()
		report.EndTime = report.StartTime.Add(time.Minute)
		if err := s.RecordRun(ctx, report); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	runs, err := s.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Errorf("expected newest first, got %s then %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestLanguageHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleReport("run-1")
	first.StartTime = time.Now().Add(-2 * time.Hour).UTC()
	second := sampleReport("run-2")
	if err := s.RecordRun(ctx, first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := s.RecordRun(ctx, second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	records, err := s.LanguageHistory(ctx, "kaz", 10)
	if err != nil {
		t.Fatalf("language history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for kaz, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Lang != "kaz" {
			t.Errorf("expected only kaz rows, got %q", rec.Lang)
		}
	}

	none, err := s.LanguageHistory(ctx, "xyz", 10)
	if err != nil {
		t.Fatalf("language history: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no rows for unknown language, got %d", len(none))
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RecordRun(ctx, sampleReport("run-1")); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := s.RecordRun(ctx, sampleReport("run-1")); err == nil {
		t.Fatal("expected primary key violation for duplicate run id")
	}

	// The failed insert must not leave partial language rows behind.
	runs, err := s.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || len(runs[0].Languages) != 2 {
		t.Errorf("expected the original run intact, got %+v", runs)
	}
}
