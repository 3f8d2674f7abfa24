package schema

import "errors"

var (
	// ErrNoArchive indicates no archive file was provided.
	ErrNoArchive = errors.New("archive file is required")
	// ErrQueueClosed indicates a queue's peer has closed; fatal to the
	// owning task, never retried.
	ErrQueueClosed = errors.New("command queue closed")
	// ErrDisplayClosed indicates the display sink has gone away.
	ErrDisplayClosed = errors.New("display closed")
)
