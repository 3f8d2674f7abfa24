package core

import (
	"io"
	"sync"
)

// stdinSlot holds the current child's standard input as an exclusively
// owned, take/replace resource. A write consumes the handle so a stale
// pipe cannot be reused after its command completes.
type stdinSlot struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// Replace installs a fresh handle, closing any stale one left over
// from a command that never consumed it.
func (s *stdinSlot) Replace(w io.WriteCloser) {
	s.mu.Lock()
	old := s.w
	s.w = w
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// Take removes and returns the current handle, or nil when empty.
func (s *stdinSlot) Take() io.WriteCloser {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.w
	s.w = nil
	return w
}
