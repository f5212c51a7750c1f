// Package events publishes build outcomes to NATS so downstream consumers
// (deploy pipelines, dashboards) can react to finished packages. Publishing
// is best effort: a broken broker never fails a build.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/packbuilder/internal/logfields"
	"git.home.luguber.info/inful/packbuilder/internal/orchestrator"
)

const (
	// SubjectLanguage receives one event per finished language.
	SubjectLanguage = "packbuilder.language"
	// SubjectRun receives one summary event per run.
	SubjectRun = "packbuilder.run"
)

// LanguageEvent is the wire form of a per-language outcome.
type LanguageEvent struct {
	RunID     string    `json:"run_id"`
	Lang      string    `json:"lang"`
	State     string    `json:"state"`
	Commit    string    `json:"commit,omitempty"`
	Package   string    `json:"package,omitempty"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunEvent is the wire form of a run summary.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Packaged  int       `json:"packaged"`
	Partial   int       `json:"partial"`
	Failed    int       `json:"failed"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// conn is the slice of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// Publisher emits build events over NATS. Satisfies
// orchestrator.EventPublisher.
type Publisher struct {
	conn conn
}

// Connect dials the NATS server at url.
func Connect(url string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("packbuilder"),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to NATS", logfields.URL(url))
	return &Publisher{conn: nc}, nil
}

// LanguageCompleted publishes one language's terminal result. Failures are
// logged and swallowed.
func (p *Publisher) LanguageCompleted(_ context.Context, runID string, res orchestrator.LanguageResult) {
	p.publish(SubjectLanguage, LanguageEvent{
		RunID:     runID,
		Lang:      res.Lang,
		State:     string(res.State),
		Commit:    res.Commit,
		Package:   res.Package,
		Artifacts: res.Artifacts,
		Error:     res.ErrText,
		Timestamp: time.Now().UTC(),
	})
}

// RunCompleted publishes the run summary.
func (p *Publisher) RunCompleted(_ context.Context, report *orchestrator.Report) {
	p.publish(SubjectRun, RunEvent{
		RunID:     report.RunID,
		Packaged:  report.Packaged,
		Partial:   report.Partial,
		Failed:    report.Failed,
		StartTime: report.StartTime,
		EndTime:   report.EndTime,
	})
}

func (p *Publisher) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Warn("Failed to encode event", slog.String("subject", subject), logfields.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		slog.Warn("Failed to publish event", slog.String("subject", subject), logfields.Error(err))
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	p.conn.Close()
}
