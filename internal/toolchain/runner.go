package toolchain

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
)

// RunResult carries the captured output of one stage invocation. Output is
// kept for diagnostics only; nothing is parsed out of it.
type RunResult struct {
	Stdout string
	Stderr string
}

// Runner abstracts how a stage command is executed. The default ExecRunner
// shells out; tests inject a scripted fake without touching process state.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) (RunResult, error)
}

// ExecRunner invokes stage commands as external processes in the workspace
// directory, capturing both output streams.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, argv []string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running stage command", slog.String("dir", dir), slog.Any("argv", argv))
	err := cmd.Run()

	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if res.Stderr != "" {
		slog.Debug("stage stderr", slog.String("output", excerpt(res.Stderr)))
	}
	return res, err
}

// maxExcerpt bounds the diagnostic excerpt kept from a failing process.
const maxExcerpt = 2048

// excerpt returns the tail of s, bounded to maxExcerpt bytes. The tail is
// where make and configure print the actual failure.
func excerpt(s string) string {
	if len(s) <= maxExcerpt {
		return s
	}
	return "..." + s[len(s)-maxExcerpt:]
}
