// Package nvimui drives the Neovim frontend: it spawns an editor
// listening on a socket, mirrors pushed document lines into its
// buffer, and feeds buffer edits and keymap triggers back as
// operations.
package nvimui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/neovim/go-client/nvim"

	"github.com/MapoMagpie/z7-vui/schema"
	"pkt.systems/pslog"
)

const socketWait = 5 * time.Second

// Config controls how the editor is launched.
type Config struct {
	Binary string
	Socket string
}

// UI owns the editor process and its RPC connection.
type UI struct {
	cfg Config
	log pslog.Logger

	mu       sync.Mutex
	lines    []string
	lastPwd  string
	lastPath string
}

// New constructs the editor frontend.
func New(cfg Config, logger pslog.Logger) *UI {
	if cfg.Binary == "" {
		cfg.Binary = "nvim"
	}
	if cfg.Socket == "" {
		cfg.Socket = fmt.Sprintf("%s/z7vui-nvim-%d.sock", os.TempDir(), os.Getpid())
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &UI{cfg: cfg, log: logger}
}

// Run spawns the editor, wires events and consumes pushments until the
// editor quits or the context is canceled. It always returns a non-nil
// error; schema.ErrDisplayClosed marks an orderly editor exit and is
// how display closure triggers global shutdown.
func (u *UI) Run(ctx context.Context, push <-chan schema.Pushment, ops chan<- schema.Operation) error {
	_ = os.Remove(u.cfg.Socket)
	proc := exec.CommandContext(ctx, u.cfg.Binary, "-u", "NONE", "--listen", u.cfg.Socket)
	proc.Stdin = os.Stdin
	proc.Stdout = os.Stdout
	proc.Stderr = os.Stderr
	if err := proc.Start(); err != nil {
		u.log.Error("editor spawn failed", "bin", u.cfg.Binary, "err", err)
		return err
	}
	procDone := make(chan error, 1)
	go func() { procDone <- proc.Wait() }()

	if err := u.waitForSocket(ctx, procDone); err != nil {
		return err
	}
	v, err := nvim.Dial(u.cfg.Socket)
	if err != nil {
		u.log.Error("editor dial failed", "socket", u.cfg.Socket, "err", err)
		return err
	}
	defer v.Close()

	buf, err := v.CurrentBuffer()
	if err != nil {
		return err
	}
	if err := u.setup(ctx, v, ops); err != nil {
		return err
	}
	u.log.Info("editor attached", "socket", u.cfg.Socket)

	for {
		select {
		case <-ctx.Done():
			_ = v.Command("qa!")
			<-procDone
			return ctx.Err()
		case err := <-procDone:
			u.log.Info("editor exited", "err", err)
			return schema.ErrDisplayClosed
		case p := <-push:
			if err := u.apply(v, buf, p); err != nil {
				u.log.Warn("pushment apply failed", "kind", p.Kind, "err", err)
			}
			if p.Kind == schema.PushClose {
				<-procDone
				return schema.ErrDisplayClosed
			}
		}
	}
}

func (u *UI) waitForSocket(ctx context.Context, procDone <-chan error) error {
	deadline := time.After(socketWait)
	for {
		if _, err := os.Stat(u.cfg.Socket); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-procDone:
			return fmt.Errorf("editor exited before listening: %w", err)
		case <-deadline:
			return errors.New("editor socket never appeared")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// setup registers the autocommand and keymap driven rpc events:
// leaving insert mode harvests buffer edits, `cc` executes the
// extraction, `R` retries, and enter selects a history password.
func (u *UI) setup(ctx context.Context, v *nvim.Nvim, ops chan<- schema.Operation) error {
	if err := v.RegisterHandler("z7vui_insert_leave", func() {
		u.harvest(ctx, v, ops)
	}); err != nil {
		return err
	}
	if err := v.RegisterHandler("z7vui_execute", func() {
		u.send(ctx, ops, schema.Operation{Kind: schema.OpExecute})
	}); err != nil {
		return err
	}
	if err := v.RegisterHandler("z7vui_retry", func() {
		u.send(ctx, ops, schema.Operation{Kind: schema.OpRetry})
	}); err != nil {
		return err
	}
	if err := v.RegisterHandler("z7vui_select", func(line string) {
		u.selectHistory(ctx, ops, line)
	}); err != nil {
		return err
	}
	for _, event := range []string{"z7vui_insert_leave", "z7vui_execute", "z7vui_retry", "z7vui_select"} {
		if err := v.Subscribe(event); err != nil {
			return err
		}
	}
	if err := v.Command(`autocmd InsertLeave * call rpcnotify(0, 'z7vui_insert_leave')`); err != nil {
		return err
	}
	keymaps := []struct{ lhs, rhs string }{
		{"cc", `:call rpcnotify(0, 'z7vui_execute')<CR>`},
		{"R", `:call rpcnotify(0, 'z7vui_retry')<CR>`},
		{"<CR>", `:call rpcnotify(0, 'z7vui_select', getline('.'))<CR>`},
	}
	for _, km := range keymaps {
		opts := map[string]bool{"silent": true, "noremap": true}
		if err := v.SetKeyMap("n", km.lhs, km.rhs, opts); err != nil {
			return err
		}
	}
	return nil
}

// apply mirrors one pushment into the editor buffer.
func (u *UI) apply(v *nvim.Nvim, buf nvim.Buffer, p schema.Pushment) error {
	switch p.Kind {
	case schema.PushFull:
		u.remember(p.Lines)
		count, err := v.BufferLineCount(buf)
		if err != nil {
			return err
		}
		replacement := make([][]byte, len(p.Lines))
		for i, line := range p.Lines {
			replacement[i] = []byte(line)
		}
		if err := v.SetBufferLines(buf, 0, count, false, replacement); err != nil {
			return err
		}
		if p.Cursor != nil {
			return u.placeCursor(v, p.Cursor)
		}
		return nil
	case schema.PushLine:
		u.rememberLine(p.Index, p.Text)
		return v.SetBufferLines(buf, p.Index, p.Index+1, false, [][]byte{[]byte(p.Text)})
	case schema.PushClose:
		return v.Command("qa!")
	}
	return nil
}

func (u *UI) placeCursor(v *nvim.Nvim, cursor *schema.Cursor) error {
	win, err := v.CurrentWindow()
	if err != nil {
		return err
	}
	if err := v.SetWindowCursor(win, [2]int{cursor.Row + 1, cursor.Col}); err != nil {
		return err
	}
	// the cursor lands at end of the input line; append from there
	return v.Command("startinsert!")
}

// harvest reads the buffer after an insert session and emits operations
// for a changed password or extraction target.
func (u *UI) harvest(ctx context.Context, v *nvim.Nvim, ops chan<- schema.Operation) {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return
	}
	raw, err := v.BufferLines(buf, 0, -1, false)
	if err != nil {
		u.log.Warn("buffer read failed", "err", err)
		return
	}
	for _, b := range raw {
		line := string(b)
		if value, ok := strings.CutPrefix(line, schema.InputPassword); ok {
			if value != "" && value != u.lastValue(&u.lastPwd, value) {
				u.send(ctx, ops, schema.Operation{Kind: schema.OpPassword, Text: value})
			}
			continue
		}
		if value, ok := strings.CutPrefix(line, schema.InputExtractTo); ok {
			if value != "" && value != u.lastValue(&u.lastPath, value) {
				u.send(ctx, ops, schema.Operation{Kind: schema.OpExtractTo, Text: value})
			}
		}
	}
}

// lastValue swaps in the freshly observed value and returns the
// previous one, so each edit is emitted exactly once.
func (u *UI) lastValue(slot *string, value string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	prev := *slot
	*slot = value
	return prev
}

// selectHistory emits a SelectPassword when the cursor line is one of
// the rendered history suggestions.
func (u *UI) selectHistory(ctx context.Context, ops chan<- schema.Operation, line string) {
	if !u.isHistoryLine(line) {
		return
	}
	u.send(ctx, ops, schema.Operation{Kind: schema.OpSelectPassword, Text: line})
}

func (u *UI) isHistoryLine(line string) bool {
	if line == "" {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	inHistory := false
	for _, known := range u.lines {
		if strings.HasPrefix(known, schema.InputHistoryFile) {
			inHistory = true
			continue
		}
		if !inHistory {
			continue
		}
		if known == "" || hasMarkerPrefix(known) {
			inHistory = false
			continue
		}
		if known == line {
			return true
		}
	}
	return false
}

func hasMarkerPrefix(line string) bool {
	for _, prefix := range []string{
		schema.InputExtractFile,
		schema.InputExtractTo,
		schema.InputPassword,
		schema.InputSavePassword,
		schema.MarkerError,
	} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func (u *UI) remember(lines []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lines = append([]string(nil), lines...)
	for _, line := range lines {
		if value, ok := strings.CutPrefix(line, schema.InputPassword); ok && value != "" {
			u.lastPwd = value
		}
		if value, ok := strings.CutPrefix(line, schema.InputExtractTo); ok && value != "" {
			u.lastPath = value
		}
	}
}

func (u *UI) rememberLine(index int, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if index >= 0 && index < len(u.lines) {
		u.lines[index] = text
	}
	if value, ok := strings.CutPrefix(text, schema.InputExtractTo); ok && value != "" {
		u.lastPath = value
	}
}

func (u *UI) send(ctx context.Context, ops chan<- schema.Operation, op schema.Operation) {
	select {
	case ops <- op:
		u.log.Debug("operation sent", "kind", op.Kind)
	case <-ctx.Done():
	}
}
