// Package history persists orchestrator run reports in SQLite so past builds
// can be inspected from the CLI without re-running anything.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/packbuilder/internal/orchestrator"
)

// Store records finished runs. Satisfies orchestrator.HistoryStore.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// RunRecord is a persisted run summary.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Packaged  int       `json:"packaged"`
	Partial   int       `json:"partial"`
	Failed    int       `json:"failed"`

	Languages []LanguageRecord `json:"languages,omitempty"`
}

// LanguageRecord is one language's outcome inside a run.
type LanguageRecord struct {
	Lang        string `json:"lang"`
	State       string `json:"state"`
	Commit      string `json:"commit,omitempty"`
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`

	// Artifacts is the packaged artifact list, stored as JSON.
	Artifacts []string `json:"artifacts,omitempty"`
}

// Open opens or creates the history database. Use ":memory:" in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.HistoryError("failed to open history database").
			WithCause(err).
			WithContext("path", dbPath).
			Build()
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.HistoryError("failed to initialize history schema").
			WithCause(err).
			WithContext("path", dbPath).
			Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		packaged INTEGER NOT NULL,
		partial INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_languages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		lang TEXT NOT NULL,
		state TEXT NOT NULL,
		commit_sha TEXT,
		failed_stage TEXT,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		artifacts TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_languages_run ON run_languages(run_id);
	CREATE INDEX IF NOT EXISTS idx_run_languages_lang ON run_languages(lang);
	CREATE INDEX IF NOT EXISTS idx_runs_start ON runs(start_time);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun persists a finished report atomically.
func (s *Store) RecordRun(ctx context.Context, report *orchestrator.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (run_id, start_time, end_time, packaged, partial, failed) VALUES (?, ?, ?, ?, ?, ?)",
		report.RunID, report.StartTime.Unix(), report.EndTime.Unix(),
		report.Packaged, report.Partial, report.Failed,
	)
	if err != nil {
		return s.fail("failed to insert run", err)
	}

	for _, res := range report.Results {
		artifacts, err := json.Marshal(res.Artifacts)
		if err != nil {
			return s.fail("failed to encode artifact list", err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO run_languages (run_id, lang, state, commit_sha, failed_stage, error, duration_ms, artifacts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			report.RunID, res.Lang, string(res.State), res.Commit,
			res.FailedStage, res.ErrText, res.Duration.Milliseconds(), artifacts,
		)
		if err != nil {
			return s.fail("failed to insert language result", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.fail("failed to commit run", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first, including their
// per-language rows.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, start_time, end_time, packaged, partial, failed FROM runs ORDER BY start_time DESC, run_id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, s.fail("failed to query runs", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var start, end int64
		if err := rows.Scan(&rec.RunID, &start, &end, &rec.Packaged, &rec.Partial, &rec.Failed); err != nil {
			return nil, s.fail("failed to scan run", err)
		}
		rec.StartTime = time.Unix(start, 0).UTC()
		rec.EndTime = time.Unix(end, 0).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("failed to iterate runs", err)
	}

	for i := range records {
		langs, err := s.runLanguages(ctx, records[i].RunID)
		if err != nil {
			return nil, err
		}
		records[i].Languages = langs
	}
	return records, nil
}

// LanguageHistory returns a language's outcomes across runs, newest first.
func (s *Store) LanguageHistory(ctx context.Context, lang string, limit int) ([]LanguageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.lang, l.state, l.commit_sha, l.failed_stage, l.error, l.duration_ms, l.artifacts
		 FROM run_languages l JOIN runs r ON r.run_id = l.run_id
		 WHERE l.lang = ? ORDER BY r.start_time DESC, l.id DESC LIMIT ?`,
		lang, limit,
	)
	if err != nil {
		return nil, s.fail("failed to query language history", err)
	}
	defer rows.Close()
	return scanLanguages(rows)
}

func (s *Store) runLanguages(ctx context.Context, runID string) ([]LanguageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT lang, state, commit_sha, failed_stage, error, duration_ms, artifacts FROM run_languages WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, s.fail("failed to query run languages", err)
	}
	defer rows.Close()
	return scanLanguages(rows)
}

func scanLanguages(rows *sql.Rows) ([]LanguageRecord, error) {
	var records []LanguageRecord
	for rows.Next() {
		var rec LanguageRecord
		var commit, stage, errText, artifacts sql.NullString
		if err := rows.Scan(&rec.Lang, &rec.State, &commit, &stage, &errText, &rec.DurationMS, &artifacts); err != nil {
			return nil, errors.HistoryError("failed to scan language row").WithCause(err).Build()
		}
		rec.Commit = commit.String
		rec.FailedStage = stage.String
		rec.Error = errText.String
		if artifacts.Valid && artifacts.String != "" && artifacts.String != "null" {
			if err := json.Unmarshal([]byte(artifacts.String), &rec.Artifacts); err != nil {
				return nil, errors.HistoryError("failed to decode artifact list").WithCause(err).Build()
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryError("failed to iterate language rows").WithCause(err).Build()
	}
	return records, nil
}

func (s *Store) fail(msg string, cause error) error {
	return errors.HistoryError(msg).WithCause(cause).Build()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
