package schema

// Source identifies which stream of the archiver process produced a line.
type Source int

const (
	// SourceStdout marks output read from the child's standard output.
	SourceStdout Source = iota + 1
	// SourceStderr marks output read from the child's standard error.
	SourceStderr
)

// String returns the stream name for logging.
func (s Source) String() string {
	switch s {
	case SourceStdout:
		return "stdout"
	case SourceStderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// RawLine is one logical line reconstructed from the archiver's output.
type RawLine struct {
	Text   string
	Source Source
}

// Command identifies an archiver invocation queued to the command loop.
type Command int

const (
	// CommandList lists the archive contents.
	CommandList Command = iota + 1
	// CommandExtract extracts the archive to the extraction target.
	CommandExtract
)

// String returns the command name for logging.
func (c Command) String() string {
	switch c {
	case CommandList:
		return "list"
	case CommandExtract:
		return "extract"
	default:
		return "unknown"
	}
}

// ExecuteState is the coarse phase of the orchestrator's last command.
type ExecuteState int

const (
	// ExecuteIdle means no command is running and the last one succeeded
	// (or none has run to completion yet).
	ExecuteIdle ExecuteState = iota
	// ExecutePending means a command is currently running.
	ExecutePending
	// ExecuteListFailed means the last list command exited nonzero.
	ExecuteListFailed
	// ExecuteExtractFailed means the last extract command exited nonzero.
	ExecuteExtractFailed
)

// ExecuteStatus records whether a command is running and, if not, its
// last outcome. It is the single source of truth for "busy".
type ExecuteStatus struct {
	State    ExecuteState
	ExitCode int
}

// Pending reports whether a command is currently running.
func (s ExecuteStatus) Pending() bool {
	return s.State == ExecutePending
}

// OperationKind identifies an inbound user action.
type OperationKind int

const (
	// OpPassword submits a password typed into the buffer.
	OpPassword OperationKind = iota + 1
	// OpSelectPassword submits a password chosen from history.
	OpSelectPassword
	// OpExtractTo updates the extraction target path.
	OpExtractTo
	// OpExecute queues an extract command.
	OpExecute
	// OpRetry clears the stored password and queues a fresh list.
	OpRetry
)

// String returns the operation name for logging.
func (k OperationKind) String() string {
	switch k {
	case OpPassword:
		return "password"
	case OpSelectPassword:
		return "select-password"
	case OpExtractTo:
		return "extract-to"
	case OpExecute:
		return "execute"
	case OpRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Operation is an inbound user action from the display collaborator.
type Operation struct {
	Kind OperationKind
	// Text carries the password or path for the kinds that take one.
	Text string
}

// PushmentKind identifies an outbound display update.
type PushmentKind int

const (
	// PushFull replaces the entire visible buffer.
	PushFull PushmentKind = iota + 1
	// PushLine patches exactly one line.
	PushLine
	// PushClose requests display session termination.
	PushClose
)

// Cursor requests cursor placement at a row/column (both zero-based)
// together with an input-ready state.
type Cursor struct {
	Row int
	Col int
}

// Pushment is an outbound update to the display collaborator.
type Pushment struct {
	Kind   PushmentKind
	Lines  []string
	Cursor *Cursor
	Index  int
	Text   string
}

// FullPushment builds a whole-buffer replacement.
func FullPushment(lines []string, cursor *Cursor) Pushment {
	return Pushment{Kind: PushFull, Lines: lines, Cursor: cursor}
}

// LinePushment builds a single-line patch.
func LinePushment(index int, text string) Pushment {
	return Pushment{Kind: PushLine, Index: index, Text: text}
}

// ClosePushment builds a session-termination request.
func ClosePushment() Pushment {
	return Pushment{Kind: PushClose}
}
