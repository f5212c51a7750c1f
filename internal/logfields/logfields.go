package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyLang       = "lang"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyRunID      = "run_id"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyRef        = "ref"
	KeyCommit     = "commit"
	KeyArtifact   = "artifact"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Lang(code string) slog.Attr       { return slog.String(KeyLang, code) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func State(s string) slog.Attr         { return slog.String(KeyState, s) }
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Ref(r string) slog.Attr           { return slog.String(KeyRef, r) }
func Commit(sha string) slog.Attr      { return slog.String(KeyCommit, shortSHA(sha)) }
func Artifact(name string) slog.Attr   { return slog.String(KeyArtifact, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
