package workspace

import (
	"strings"

	"git.home.luguber.info/inful/packbuilder/internal/catalog"
	"git.home.luguber.info/inful/packbuilder/internal/foundation/errors"
)

// classifySyncError translates go-git errors into ClassifiedErrors,
// distinguishing an unreachable source from a reference that does not exist.
func classifySyncError(err error, op string, spec catalog.LanguageSpec) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	builder := errors.WorkspaceError("workspace sync failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("lang", spec.Code).
		WithContext("url", spec.Repo)

	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "reference") && strings.Contains(l, "not found"),
		strings.Contains(l, "pinned commit"),
		op == "resolve":
		builder.WithCategory(errors.CategoryNotFound).
			WithRetry(errors.RetryNever).
			WithContext("ref", spec.Ref)
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization") || strings.Contains(l, "could not read username"):
		builder.WithCategory(errors.CategoryAuth).UserAction()
	case strings.Contains(l, "repository not found") || strings.Contains(l, "no such host") ||
		strings.Contains(l, "connection refused") || strings.Contains(l, "connection reset") ||
		strings.Contains(l, "timeout") || strings.Contains(l, "unreachable"):
		// Source unreachable: keep the workspace category, transient.
	}

	return builder.Build()
}
