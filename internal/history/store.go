// Package history persists the password history as a plain text file,
// one entry per line.
package history

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pkt.systems/pslog"
)

// Store reads and appends password history entries.
type Store struct {
	path string
	log  pslog.Logger

	mu      sync.Mutex
	entries []string
}

// NewStore opens (or lazily creates) the history file at path.
func NewStore(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history file path is required")
	}
	if logger != nil {
		logger = logger.With("history_file", path)
	}
	s := &Store{path: path, log: logger}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Entries returns the stored passwords, oldest first.
func (s *Store) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// Append records a password unless it is already present, then rewrites
// the file. Failures are logged and reported but leave the in-memory
// entries usable.
func (s *Store) Append(entry string) error {
	if strings.TrimSpace(entry) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing == entry {
			return nil
		}
	}
	s.entries = append(s.entries, entry)
	if err := s.write(); err != nil {
		if s.log != nil {
			s.log.Warn("history write failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("history entry saved", "entries", len(s.entries))
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		s.entries = append(s.entries, line)
	}
	return nil
}

func (s *Store) write() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	var b strings.Builder
	for _, entry := range s.entries {
		b.WriteString(entry)
		b.WriteByte('\n')
	}
	return os.WriteFile(s.path, []byte(b.String()), 0o600)
}
