package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MapoMagpie/z7-vui/schema"
)

const testArchive = "/tmp/arc.7z"

// rows aligned to this rule put the name column at offset 20
const (
	testRule = "---- ---- ---- ---- ----"
	rowStamp = "2024-01-02 10:11:19 "
)

type fakeStream struct {
	pre  []schema.RawLine
	gate chan struct{}
	post []schema.RawLine
	i    int
	j    int
}

func (s *fakeStream) Next(ctx context.Context) (schema.RawLine, error) {
	if s.i < len(s.pre) {
		s.i++
		return s.pre[s.i-1], nil
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return schema.RawLine{}, ctx.Err()
		}
	}
	if s.j < len(s.post) {
		s.j++
		return s.post[s.j-1], nil
	}
	return schema.RawLine{}, io.EOF
}

func (s *fakeStream) Close() error { return nil }

type fakeStdin struct {
	mu   sync.Mutex
	data []byte
	once sync.Once
	gate chan struct{}
}

func (f *fakeStdin) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.data = append(f.data, p...)
	f.mu.Unlock()
	if f.gate != nil {
		f.once.Do(func() { close(f.gate) })
	}
	return len(p), nil
}

func (f *fakeStdin) Close() error { return nil }

func (f *fakeStdin) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.data)
}

type scriptedRun struct {
	pre      []string
	gated    bool
	post     []string
	exitCode int
	stdin    *fakeStdin
}

type fakeHandle struct {
	stream *fakeStream
	stdin  *fakeStdin
	exit   int
}

func (h *fakeHandle) Lines() LineStream                           { return h.stream }
func (h *fakeHandle) Stdin() io.WriteCloser                       { return h.stdin }
func (h *fakeHandle) Wait(ctx context.Context) (RunResult, error) { return RunResult{ExitCode: h.exit}, nil }
func (h *fakeHandle) Close() error                                { return nil }

type fakeRunner struct {
	mu     sync.Mutex
	script []*scriptedRun
	reqs   []RunRequest
	cmds   []schema.Command
}

func (r *fakeRunner) Start(ctx context.Context, cmd schema.Command, req RunRequest) (RunHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.script) == 0 {
		return nil, errors.New("no scripted run left")
	}
	run := r.script[0]
	r.script = r.script[1:]
	r.reqs = append(r.reqs, req)
	r.cmds = append(r.cmds, cmd)
	stdin := run.stdin
	if stdin == nil {
		stdin = &fakeStdin{}
	}
	stream := &fakeStream{pre: rawLines(run.pre), post: rawLines(run.post)}
	if run.gated {
		stream.gate = make(chan struct{})
		stdin.gate = stream.gate
	}
	return &fakeHandle{stream: stream, stdin: stdin, exit: run.exitCode}, nil
}

func (r *fakeRunner) requests() []RunRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunRequest(nil), r.reqs...)
}

func rawLines(lines []string) []schema.RawLine {
	out := make([]schema.RawLine, len(lines))
	for i, line := range lines {
		out[i] = schema.RawLine{Text: line, Source: schema.SourceStdout}
	}
	return out
}

type harness struct {
	orch  *Orchestrator
	push  chan schema.Pushment
	opers chan schema.Operation
	done  chan error
}

func startHarness(t *testing.T, ctx context.Context, runner *fakeRunner) *harness {
	t.Helper()
	push := make(chan schema.Pushment, 64)
	opers := make(chan schema.Operation, 1)
	orch, err := New(Config{Archive: testArchive}, Deps{
		Runner: runner,
		Push:   push,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := &harness{orch: orch, push: push, opers: opers, done: make(chan error, 1)}
	go func() { h.done <- orch.Start(ctx, opers, opers) }()
	return h
}

func (h *harness) nextPush(t *testing.T, timeout time.Duration) schema.Pushment {
	t.Helper()
	select {
	case p := <-h.push:
		return p
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for pushment")
		return schema.Pushment{}
	}
}

func (h *harness) waitPush(t *testing.T, match func(schema.Pushment) bool) schema.Pushment {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-h.push:
			if match(p) {
				return p
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching pushment")
			return schema.Pushment{}
		}
	}
}

func TestListSuffixesExtractPathWithoutSharedDir(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runner := &fakeRunner{script: []*scriptedRun{{
		pre: []string{
			"Listing archive: " + testArchive,
			testRule,
			rowStamp + "a.png",
			rowStamp + "b.png",
			testRule,
			rowStamp + "2 files",
		},
	}}}
	h := startHarness(t, ctx, runner)

	patch := h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushLine })
	want := schema.InputExtractTo + "/tmp/arc"
	if patch.Text != want {
		t.Fatalf("expected patch %q, got %q", want, patch.Text)
	}
	if patch.Index < 0 {
		t.Fatalf("patch index must address a rendered line, got %d", patch.Index)
	}
	if reqs := runner.requests(); reqs[0].Password != "" {
		t.Fatalf("expected no password on first list, got %q", reqs[0].Password)
	}
	cancel()
	<-h.done
}

func TestEmptyListingStillSuffixesExtractPath(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runner := &fakeRunner{script: []*scriptedRun{{
		pre: []string{"Listing archive: " + testArchive},
	}}}
	h := startHarness(t, ctx, runner)

	// no table rows captured; the target must still get the stem suffix
	patch := h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushLine })
	want := schema.InputExtractTo + "/tmp/arc"
	if patch.Text != want {
		t.Fatalf("expected patch %q, got %q", want, patch.Text)
	}
	cancel()
	<-h.done
}

func TestListKeepsExtractPathWithSharedDir(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runner := &fakeRunner{script: []*scriptedRun{{
		pre: []string{
			testRule,
			rowStamp + "test/a.png",
			rowStamp + "test/b.png",
			testRule,
			rowStamp + "2 files",
		},
	}}}
	h := startHarness(t, ctx, runner)

	full := h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushFull })
	for _, line := range full.Lines {
		if line == schema.InputExtractTo+"/tmp/arc" {
			t.Fatalf("extract path must not be suffixed for a shared top directory")
		}
	}
	select {
	case p := <-h.push:
		if p.Kind == schema.PushLine {
			t.Fatalf("unexpected line patch: %+v", p)
		}
	case <-time.After(100 * time.Millisecond):
	}
	cancel()
	<-h.done
}

func TestPasswordPromptAndRetryClearsPassword(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stdin1 := &fakeStdin{}
	runner := &fakeRunner{script: []*scriptedRun{
		{
			pre:      []string{"Listing archive: " + testArchive, "Enter password (will not be echoed):"},
			gated:    true,
			post:     []string{"ERROR: Wrong password"},
			exitCode: 2,
			stdin:    stdin1,
		},
		{pre: []string{"Listing archive: " + testArchive}},
	}}
	h := startHarness(t, ctx, runner)

	prompt := h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushFull && p.Cursor != nil })
	if prompt.Cursor.Col != len(schema.InputPassword) {
		t.Fatalf("expected cursor at end of input line, got %+v", prompt.Cursor)
	}
	if !strings.HasPrefix(prompt.Lines[prompt.Cursor.Row], schema.InputPassword) {
		t.Fatalf("cursor row %d points at %q", prompt.Cursor.Row, prompt.Lines[prompt.Cursor.Row])
	}

	h.opers <- schema.Operation{Kind: schema.OpPassword, Text: "secret"}
	errPush := h.waitPush(t, func(p schema.Pushment) bool {
		if p.Kind != schema.PushFull {
			return false
		}
		for _, line := range p.Lines {
			if strings.HasPrefix(line, schema.MarkerError) {
				return true
			}
		}
		return false
	})
	if stdin1.String() != "secret" {
		t.Fatalf("expected password on child stdin, got %q", stdin1.String())
	}
	found := false
	for _, line := range errPush.Lines {
		if line == schema.InputPassword+"secret" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected password input line rendered: %v", errPush.Lines)
	}

	waitStatus(t, h.orch, schema.ExecuteListFailed)
	if h.orch.Status().ExitCode != 2 {
		t.Fatalf("expected exit code 2 recorded, got %d", h.orch.Status().ExitCode)
	}

	h.opers <- schema.Operation{Kind: schema.OpRetry}
	waitRequests(t, runner, 2)
	if reqs := runner.requests(); reqs[1].Password != "" {
		t.Fatalf("retry must clear the stored password, got %q", reqs[1].Password)
	}
	cancel()
	<-h.done
}

func TestSelectPasswordWhileIdleRestartsList(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stdin2 := &fakeStdin{}
	runner := &fakeRunner{script: []*scriptedRun{
		{pre: []string{"Listing archive: " + testArchive}},
		{
			pre:   []string{"Enter password (will not be echoed):"},
			gated: true,
			stdin: stdin2,
		},
	}}
	h := startHarness(t, ctx, runner)

	h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushFull })
	waitStatus(t, h.orch, schema.ExecuteIdle)

	h.opers <- schema.Operation{Kind: schema.OpSelectPassword, Text: "hunter2"}
	prompt := h.waitPush(t, func(p schema.Pushment) bool {
		if p.Kind != schema.PushFull {
			return false
		}
		for _, line := range p.Lines {
			if strings.HasPrefix(line, schema.MarkerPassword) {
				return true
			}
		}
		return false
	})
	// the stashed password is auto-submitted, so no cursor hint
	if prompt.Cursor != nil {
		t.Fatalf("expected no cursor when a history password is pending")
	}
	waitStdin(t, stdin2, "hunter2")
	cancel()
	<-h.done
}

func TestSelectPasswordWhilePendingWritesDirectly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stdin1 := &fakeStdin{}
	runner := &fakeRunner{script: []*scriptedRun{{
		pre:   []string{"Enter password (will not be echoed):"},
		gated: true,
		stdin: stdin1,
	}}}
	h := startHarness(t, ctx, runner)

	h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushFull })
	h.opers <- schema.Operation{Kind: schema.OpSelectPassword, Text: "direct"}
	waitStdin(t, stdin1, "direct")
	cancel()
	<-h.done
}

func TestExecuteQueuesExtractWithStoredState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runner := &fakeRunner{script: []*scriptedRun{
		{pre: []string{"Listing archive: " + testArchive}},
		{pre: []string{"Extracting archive: " + testArchive, "Everything is Ok"}},
	}}
	h := startHarness(t, ctx, runner)

	h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushFull })
	waitStatus(t, h.orch, schema.ExecuteIdle)

	h.opers <- schema.Operation{Kind: schema.OpExtractTo, Text: "/mnt/target"}
	h.opers <- schema.Operation{Kind: schema.OpExecute}
	waitRequests(t, runner, 2)
	runner.mu.Lock()
	cmd := runner.cmds[1]
	req := runner.reqs[1]
	runner.mu.Unlock()
	if cmd != schema.CommandExtract {
		t.Fatalf("expected extract command, got %s", cmd)
	}
	if req.ExtractPath != "/mnt/target" {
		t.Fatalf("expected updated extract path, got %q", req.ExtractPath)
	}
	h.waitPush(t, func(p schema.Pushment) bool { return p.Kind == schema.PushClose })
	cancel()
	<-h.done
}

func waitStatus(t *testing.T, orch *Orchestrator, state schema.ExecuteState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if orch.Status().State == state {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %d, have %d", state, orch.Status().State)
}

func waitRequests(t *testing.T, runner *fakeRunner, count int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(runner.requests()) >= count {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d run requests, have %d", count, len(runner.requests()))
}

func waitStdin(t *testing.T, stdin *fakeStdin, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if stdin.String() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for stdin %q, have %q", want, stdin.String())
}
