package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid catalog").
			WithSeverity(SeverityFatal).
			WithContext("file", "languages.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "invalid catalog" {
			t.Errorf("expected message 'invalid catalog', got %s", err.Message())
		}

		file, exists := err.Context().GetString("file")
		if !exists || file != "languages.yaml" {
			t.Errorf("expected context file=languages.yaml, got %v", file)
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}
		if !err.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})

	t.Run("Unwrap preserves cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := WorkspaceError("sync failed").WithCause(cause).Build()

		if !errors.Is(err, cause) {
			t.Error("expected errors.Is to find the cause")
		}
		if !err.IsTransient() {
			t.Error("expected workspace error to be transient")
		}
	})

	t.Run("Category override", func(t *testing.T) {
		err := WorkspaceError("ref not found").
			WithCategory(CategoryNotFound).
			Build()

		if !HasCategory(err, CategoryNotFound) {
			t.Errorf("expected not_found category, got %s", err.Category())
		}
	})
}

func TestCLIErrorAdapterExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"config", ConfigError("bad catalog").Build(), 7},
		{"workspace", WorkspaceError("unreachable").Build(), 8},
		{"build", BuildError("stage failed").Build(), 11},
		{"validation", ValidationError("artifact missing").Build(), 2},
		{"packaging", PackagingError("rename failed").Build(), 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(tc.err); got != tc.want {
				t.Errorf("ExitCodeFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestFormatErrorIncludesLangAndStage(t *testing.T) {
	adapter := NewCLIErrorAdapter(true, nil)
	err := BuildError("analyzer stage failed").
		WithCause(errors.New("exit status 2")).
		WithContext("lang", "kaz").
		WithContext("stage", "analyzer").
		Build()

	got := adapter.FormatError(err)
	for _, want := range []string{"analyzer stage failed", "[lang=kaz]", "[stage=analyzer]", "exit status 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatError output %q missing %q", got, want)
		}
	}
}
