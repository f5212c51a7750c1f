package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/packbuilder/internal/orchestrator"
)

type fakeConn struct {
	published map[string][][]byte
	err       error
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{published: make(map[string][][]byte)}
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published[subject] = append(f.published[subject], data)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func TestLanguageCompletedPublishesEvent(t *testing.T) {
	fc := newFakeConn()
	p := &Publisher{conn: fc}

	p.LanguageCompleted(context.Background(), "run-1", orchestrator.LanguageResult{
		Lang:      "kaz",
		State:     orchestrator.StatePackaged,
		Commit:    "abcdef12",
		Package:   "/out/kaz",
		Artifacts: []string{"kaz.automorf.hfst"},
	})

	msgs := fc.published[SubjectLanguage]
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message on %s, got %d", SubjectLanguage, len(msgs))
	}

	var event LanguageEvent
	if err := json.Unmarshal(msgs[0], &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.RunID != "run-1" || event.Lang != "kaz" || event.State != "PACKAGED" {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestRunCompletedPublishesSummary(t *testing.T) {
	fc := newFakeConn()
	p := &Publisher{conn: fc}

	report := &orchestrator.Report{
		RunID:     "run-2",
		StartTime: time.Now().Add(-time.Minute).UTC(),
		EndTime:   time.Now().UTC(),
		Packaged:  2,
		Failed:    1,
	}
	p.RunCompleted(context.Background(), report)

	msgs := fc.published[SubjectRun]
	if len(msgs) != 1 {
		t.Fatalf("expected 1 run event, got %d", len(msgs))
	}
	var event RunEvent
	if err := json.Unmarshal(msgs[0], &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.RunID != "run-2" || event.Packaged != 2 || event.Failed != 1 {
		t.Errorf("unexpected summary: %+v", event)
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	fc := newFakeConn()
	fc.err = errors.New("no responders")
	p := &Publisher{conn: fc}

	// Must not panic or propagate; build pipelines never fail on broker loss.
	p.LanguageCompleted(context.Background(), "run-3", orchestrator.LanguageResult{Lang: "tur", State: orchestrator.StateFailed})
	p.RunCompleted(context.Background(), &orchestrator.Report{RunID: "run-3"})
}

func TestCloseClosesConnection(t *testing.T) {
	fc := newFakeConn()
	p := &Publisher{conn: fc}
	p.Close()
	if !fc.closed {
		t.Error("expected connection closed")
	}
}
