// Package errors provides foundational, type-safe error primitives used across packbuilder.
//
// This package contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// The categories mirror the orchestrator's failure taxonomy: config errors are
// fatal to the run, while workspace, build, validation, and packaging errors
// stay isolated to a single language.
//
// Example usage:
//
//	err := errors.WorkspaceError("clone failed").
//		WithContext("url", repoURL).
//		WithCause(originalErr).
//		Build()
package errors
