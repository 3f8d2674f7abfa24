// Package sevenzip launches the external archive utility and turns its
// interleaved console output into logical line events.
package sevenzip

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/MapoMagpie/z7-vui/core"
	"github.com/MapoMagpie/z7-vui/schema"
	"pkt.systems/pslog"
)

// Config controls how the archiver binary is invoked.
type Config struct {
	BinaryPath string
	ExtraArgs  []string
}

// Runner implements core.Runner on top of the 7z command line tool.
type Runner struct {
	cfg Config
}

// NewRunner constructs an archiver runner.
func NewRunner(cfg Config) *Runner {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "7z"
	}
	return &Runner{cfg: cfg}
}

// Start spawns the archiver with piped stdio and begins reading its
// output streams.
func (r *Runner) Start(ctx context.Context, cmd schema.Command, req core.RunRequest) (core.RunHandle, error) {
	if req.Archive == "" {
		return nil, schema.ErrNoArchive
	}
	args := buildArgs(r.cfg, cmd, req)
	log := pslog.Ctx(ctx)
	log.Info("archiver start", "bin", r.cfg.BinaryPath, "cmd", cmd, "args_len", len(args), "password", req.Password != "")

	proc := exec.CommandContext(ctx, r.cfg.BinaryPath, args...)
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return nil, err
	}
	stdin, err := proc.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := proc.Start(); err != nil {
		log.Error("archiver spawn failed", "err", err)
		return nil, err
	}
	if proc.Process != nil {
		log.Debug("archiver spawned", "pid", proc.Process.Pid)
	}
	return &runHandle{
		proc:    proc,
		stream:  newLineReader(ctx, stdout, stderr),
		stdin:   stdin,
		log:     log,
		started: time.Now(),
	}, nil
}

// buildArgs composes the archiver argument list. The password flag is
// omitted entirely when no password is set; an empty -p would change
// the tool's prompting behavior.
func buildArgs(cfg Config, cmd schema.Command, req core.RunRequest) []string {
	var args []string
	switch cmd {
	case schema.CommandExtract:
		args = append(args, "x", req.Archive, "-y", "-o"+req.ExtractPath)
	default:
		args = append(args, "l", req.Archive)
	}
	if req.Password != "" {
		args = append(args, "-p"+req.Password)
	}
	args = append(args, cfg.ExtraArgs...)
	return args
}

type runHandle struct {
	proc    *exec.Cmd
	stream  *lineReader
	stdin   io.WriteCloser
	log     pslog.Logger
	started time.Time
}

func (h *runHandle) Lines() core.LineStream {
	return h.stream
}

func (h *runHandle) Stdin() io.WriteCloser {
	return h.stdin
}

// Wait reaps the process and maps its exit status. Callers drain
// Lines first so every output line has been forwarded by the time the
// command counts as finished.
func (h *runHandle) Wait(ctx context.Context) (core.RunResult, error) {
	_ = ctx
	if h.proc == nil {
		return core.RunResult{}, errors.New("process not started")
	}
	err := h.proc.Wait()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			h.log.Error("archiver wait failed", "err", err)
			return core.RunResult{}, err
		}
		exitCode = exitErr.ExitCode()
	}
	h.log.Info("archiver finished", "exit_code", exitCode, "duration_ms", time.Since(h.started).Milliseconds())
	return core.RunResult{ExitCode: exitCode}, nil
}

func (h *runHandle) Close() error {
	return h.stream.Close()
}
