// Package core sequences archiver commands and mirrors their console
// session into the structured document pushed to the display.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MapoMagpie/z7-vui/internal/document"
	"github.com/MapoMagpie/z7-vui/internal/history"
	"github.com/MapoMagpie/z7-vui/schema"
	"pkt.systems/pslog"
)

// Config holds the orchestrator's immutable inputs.
type Config struct {
	// Archive is the absolute path of the container under inspection.
	Archive string
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Runner  Runner
	History *history.Store
	// Push carries display updates; single-slot for backpressure.
	Push   chan<- schema.Pushment
	Logger pslog.Logger
}

// Orchestrator is the single logical actor owning password state, the
// child's stdin handle, the extraction target and the execute status.
// It sequences list/extract runs and re-emits the document whenever
// state changes.
type Orchestrator struct {
	cfg    Config
	runner Runner
	hist   *history.Store
	push   chan<- schema.Pushment
	log    pslog.Logger

	docMu sync.Mutex
	doc   *document.Document

	stdin stdinSlot

	mu          sync.RWMutex
	password    string
	hasPassword bool
	selected    string
	hasSelected bool
	extractPath string
	status      schema.ExecuteStatus
}

// New constructs an orchestrator for the given archive. The extraction
// target defaults to the archive's parent directory.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if strings.TrimSpace(cfg.Archive) == "" {
		return nil, schema.ErrNoArchive
	}
	if deps.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if deps.Push == nil {
		return nil, errors.New("push channel is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	o := &Orchestrator{
		cfg:         cfg,
		runner:      deps.Runner,
		hist:        deps.History,
		push:        deps.Push,
		log:         logger.With("archive", filepath.Base(cfg.Archive)),
		doc:         document.New(logger),
		extractPath: filepath.Dir(cfg.Archive),
	}
	if o.hist != nil {
		o.doc.SetPasswordHistory(o.hist.Entries())
	}
	return o, nil
}

// Start runs the orchestrator's task set until the context is canceled
// or one task fails: operation intake, the command execution loop and
// the document read loop, joined so the first failure cancels the rest.
// A list command is enqueued unconditionally at startup.
func (o *Orchestrator) Start(ctx context.Context, opers <-chan schema.Operation, operBack chan<- schema.Operation) error {
	cmds := make(chan schema.Command, 1)
	outs := make(chan *schema.RawLine, 1)
	cmds <- schema.CommandList

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.operationLoop(ctx, cmds, opers) })
	g.Go(func() error { return o.commandLoop(ctx, cmds, outs) })
	g.Go(func() error { return o.readLoop(ctx, outs, operBack) })
	return g.Wait()
}

// operationLoop consumes user operations and either mutates state,
// writes to the child's stdin, or enqueues a command.
func (o *Orchestrator) operationLoop(ctx context.Context, cmds chan<- schema.Command, opers <-chan schema.Operation) error {
	for {
		var oper schema.Operation
		select {
		case <-ctx.Done():
			return ctx.Err()
		case oper = <-opers:
		}
		o.log.Info("operation received", "kind", oper.Kind)
		switch oper.Kind {
		case schema.OpExecute:
			// losing an extract request is fatal, not retryable
			select {
			case cmds <- schema.CommandExtract:
			case <-ctx.Done():
				return fmt.Errorf("enqueue extract: %w", schema.ErrQueueClosed)
			}
		case schema.OpRetry:
			o.clearPassword()
			select {
			case cmds <- schema.CommandList:
			default:
				// a command is already pending; retry is best-effort
			}
		case schema.OpExtractTo:
			o.setExtractPath(oper.Text)
		case schema.OpPassword:
			o.writePassword(oper.Text)
		case schema.OpSelectPassword:
			// while a command waits on stdin the password is raced
			// straight in; otherwise start the listing over and stash
			// the selection for the next prompt
			if o.Status().Pending() {
				o.writePassword(oper.Text)
				continue
			}
			o.clearPassword()
			// stash before enqueueing so the prompt can never observe an
			// empty selection
			o.mu.Lock()
			o.selected = oper.Text
			o.hasSelected = true
			o.mu.Unlock()
			select {
			case cmds <- schema.CommandList:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (o *Orchestrator) setExtractPath(path string) {
	o.mu.Lock()
	o.extractPath = path
	o.mu.Unlock()
	o.docMu.Lock()
	o.doc.SetExtractPath(path)
	o.doc.Input(schema.InputExtractTo + path)
	o.docMu.Unlock()
	o.log.Info("extract path set", "path", path)
}

// writePassword feeds the password to the child if its stdin handle is
// still open, then records it. Recording is a no-op when unchanged so
// a resubmission cannot duplicate document entries.
func (o *Orchestrator) writePassword(pwd string) {
	if w := o.stdin.Take(); w != nil {
		if _, err := io.WriteString(w, pwd); err != nil {
			// expected under retry churn when the process already exited
			o.log.Warn("password write failed", "err", err)
		} else {
			o.log.Info("password written to child")
		}
	} else {
		o.log.Info("child stdin pipe is empty")
	}
	o.mu.Lock()
	unchanged := o.hasPassword && o.password == pwd
	if !unchanged {
		o.password = pwd
		o.hasPassword = true
	}
	o.mu.Unlock()
	if unchanged {
		return
	}
	o.docMu.Lock()
	o.doc.Input(schema.InputPassword + pwd)
	o.docMu.Unlock()
}

func (o *Orchestrator) clearPassword() {
	o.mu.Lock()
	o.password = ""
	o.hasPassword = false
	o.mu.Unlock()
}

// Status returns the current execute status.
func (o *Orchestrator) Status() schema.ExecuteStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *Orchestrator) setStatus(status schema.ExecuteStatus) {
	o.mu.Lock()
	o.status = status
	o.mu.Unlock()
}

// commandLoop consumes queued commands, spawns the archiver and
// forwards its output events, then applies completion bookkeeping.
func (o *Orchestrator) commandLoop(ctx context.Context, cmds <-chan schema.Command, outs chan<- *schema.RawLine) error {
	for {
		var cmd schema.Command
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd = <-cmds:
		}
		o.log.Info("command start", "cmd", cmd)
		o.setStatus(schema.ExecuteStatus{State: schema.ExecutePending})

		o.mu.RLock()
		password := o.password
		extractPath := o.extractPath
		o.mu.RUnlock()

		o.layoutFor(cmd, extractPath)

		handle, err := o.runner.Start(ctx, cmd, RunRequest{
			Archive:     o.cfg.Archive,
			Password:    password,
			ExtractPath: extractPath,
		})
		if err != nil {
			return fmt.Errorf("start %s: %w", cmd, err)
		}
		o.stdin.Replace(handle.Stdin())

		if err := o.forwardLines(ctx, handle.Lines(), outs); err != nil {
			_ = handle.Close()
			return err
		}
		result, err := handle.Wait(ctx)
		_ = handle.Close()
		if err != nil {
			return fmt.Errorf("wait %s: %w", cmd, err)
		}
		// the handle is one-shot per run; drop whatever is left
		if w := o.stdin.Take(); w != nil {
			_ = w.Close()
		}
		if err := o.finishCommand(ctx, cmd, result); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) layoutFor(cmd schema.Command, extractPath string) {
	o.docMu.Lock()
	defer o.docMu.Unlock()
	switch cmd {
	case schema.CommandList:
		o.doc.LayoutList()
		o.doc.SetExtractPath(extractPath)
		o.doc.Input(schema.InputExtractFile + o.cfg.Archive)
		o.doc.Input(schema.InputExtractTo + extractPath)
	case schema.CommandExtract:
		o.doc.LayoutExtract()
	}
}

// forwardLines drains the run's line stream into the read loop, then
// emits the end-of-output marker. The marker means "this command's
// output is exhausted", not process exit.
func (o *Orchestrator) forwardLines(ctx context.Context, stream LineStream, outs chan<- *schema.RawLine) error {
	for {
		line, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				select {
				case outs <- nil:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return err
		}
		event := line
		select {
		case outs <- &event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (o *Orchestrator) finishCommand(ctx context.Context, cmd schema.Command, result RunResult) error {
	if result.ExitCode != 0 {
		o.clearPassword()
		state := schema.ExecuteListFailed
		if cmd == schema.CommandExtract {
			state = schema.ExecuteExtractFailed
		}
		o.setStatus(schema.ExecuteStatus{State: state, ExitCode: result.ExitCode})
		o.log.Warn("command failed", "cmd", cmd, "exit_code", result.ExitCode)
		return nil
	}

	o.setStatus(schema.ExecuteStatus{State: schema.ExecuteIdle})
	o.mu.RLock()
	password := o.password
	hasPassword := o.hasPassword
	o.mu.RUnlock()
	if hasPassword {
		o.docMu.Lock()
		o.doc.Input(schema.InputSavePassword + password)
		o.docMu.Unlock()
		if o.hist != nil {
			_ = o.hist.Append(password)
		}
	}
	o.log.Info("command done", "cmd", cmd)

	switch cmd {
	case schema.CommandList:
		return o.adjustExtractPath(ctx)
	case schema.CommandExtract:
		// the session's purpose is fulfilled; ask the display to close
		select {
		case o.push <- schema.ClosePushment():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// adjustExtractPath suffixes the extraction target with the archive's
// base name when the listed files share no top-level directory, and
// patches the single affected display line instead of re-rendering.
func (o *Orchestrator) adjustExtractPath(ctx context.Context) error {
	o.docMu.Lock()
	files := o.doc.Files()
	o.docMu.Unlock()
	// an empty listing counts as "no shared directory" and suffixes too
	if _, shared := CommonDirPrefix(files); shared {
		return nil
	}
	stem := archiveStem(o.cfg.Archive)
	o.mu.Lock()
	o.extractPath = filepath.Join(o.extractPath, stem)
	path := o.extractPath
	o.mu.Unlock()

	line := schema.InputExtractTo + path
	o.docMu.Lock()
	o.doc.SetExtractPath(path)
	o.doc.Input(line)
	index, ok := o.doc.ExtractToLine()
	o.docMu.Unlock()
	if !ok {
		return nil
	}
	o.log.Info("extract path suffixed", "path", path)
	select {
	case o.push <- schema.LinePushment(index, line):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop consumes raw line events, mutates the document and pushes
// renders. A password prompt triggers an immediate full push with a
// cursor hint, or auto-submits a password selected from history.
func (o *Orchestrator) readLoop(ctx context.Context, outs <-chan *schema.RawLine, operBack chan<- schema.Operation) error {
	for {
		var event *schema.RawLine
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event = <-outs:
		}
		if event == nil {
			// end of one command's output; re-render everything
			o.docMu.Lock()
			lines := o.doc.Output()
			o.docMu.Unlock()
			if err := o.pushFull(ctx, lines, nil); err != nil {
				return err
			}
			continue
		}
		o.log.Trace("output line", "source", event.Source, "line", event.Text)
		o.docMu.Lock()
		o.doc.Input(event.Text)
		o.docMu.Unlock()
		if !strings.HasPrefix(event.Text, schema.MarkerPassword) {
			continue
		}
		if err := o.handlePasswordPrompt(ctx, operBack); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) handlePasswordPrompt(ctx context.Context, operBack chan<- schema.Operation) error {
	o.docMu.Lock()
	if o.hist != nil {
		o.doc.Input(schema.InputHistoryFile + o.hist.Path())
		o.doc.SetPasswordHistory(o.hist.Entries())
	}
	lines := o.doc.Output()
	cursor := o.doc.PasswordCursor()
	o.docMu.Unlock()

	o.mu.Lock()
	selected := o.selected
	hasSelected := o.hasSelected
	o.selected = ""
	o.hasSelected = false
	o.mu.Unlock()

	if hasSelected {
		// a history password is about to be typed in; the cursor can
		// stay where it is
		cursor = nil
	}
	if err := o.pushFull(ctx, lines, cursor); err != nil {
		return err
	}
	if hasSelected {
		select {
		case operBack <- schema.Operation{Kind: schema.OpPassword, Text: selected}:
		case <-ctx.Done():
			return fmt.Errorf("submit selected password: %w", schema.ErrQueueClosed)
		}
	}
	return nil
}

func (o *Orchestrator) pushFull(ctx context.Context, lines []string, cursor *schema.Cursor) error {
	select {
	case o.push <- schema.FullPushment(lines, cursor):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("push document: %w", schema.ErrDisplayClosed)
	}
}

// archiveStem returns the archive file name without its extension.
func archiveStem(archive string) string {
	base := filepath.Base(archive)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
