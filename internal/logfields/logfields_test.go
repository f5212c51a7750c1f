package logfields

import (
	"errors"
	"testing"
)

func TestCommitTruncation(t *testing.T) {
	attr := Commit("0123456789abcdef")
	if attr.Value.String() != "01234567" {
		t.Errorf("expected truncated sha, got %q", attr.Value.String())
	}

	short := Commit("abc")
	if short.Value.String() != "abc" {
		t.Errorf("expected short sha unchanged, got %q", short.Value.String())
	}
}

func TestErrorAttr(t *testing.T) {
	if got := Error(nil).Value.String(); got != "" {
		t.Errorf("expected empty string for nil error, got %q", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Errorf("expected boom, got %q", got)
	}
}

func TestKeysStable(t *testing.T) {
	if Lang("kaz").Key != KeyLang {
		t.Errorf("Lang attr key mismatch")
	}
	if Stage("configure").Key != KeyStage {
		t.Errorf("Stage attr key mismatch")
	}
}
