package core

import (
	"context"
	"io"

	"github.com/MapoMagpie/z7-vui/schema"
)

// Runner starts archiver processes and exposes their line stream.
type Runner interface {
	Start(ctx context.Context, cmd schema.Command, req RunRequest) (RunHandle, error)
}

// RunRequest describes one archiver invocation.
type RunRequest struct {
	Archive     string
	Password    string
	ExtractPath string
}

// RunHandle exposes the output stream and process lifecycle of one
// archiver run.
type RunHandle interface {
	// Lines yields logical output lines until both streams are drained.
	Lines() LineStream
	// Stdin returns the child's standard input, to be held in the
	// orchestrator's one-shot slot.
	Stdin() io.WriteCloser
	// Wait reaps the process. Call only after Lines reached EOF so all
	// output has been forwarded first.
	Wait(ctx context.Context) (RunResult, error)
	Close() error
}

// LineStream yields reconstructed logical lines; io.EOF once both
// output streams are exhausted.
type LineStream interface {
	Next(ctx context.Context) (schema.RawLine, error)
	Close() error
}

// RunResult describes the process outcome. Exit code zero is success;
// any nonzero code is failure with no code-specific handling.
type RunResult struct {
	ExitCode int
}
