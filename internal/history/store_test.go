package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if entries := s.Entries(); len(entries) != 0 {
		t.Fatalf("expected no entries, got %v", entries)
	}
	if s.Path() != path {
		t.Fatalf("Path = %q, want %q", s.Path(), path)
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore("  ", nil); err == nil {
		t.Fatalf("expected error for blank path")
	}
}

func TestAppendPersistsAndDeduplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.txt")
	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, entry := range []string{"first", "second", "first", "", "  "} {
		if err := s.Append(entry); err != nil {
			t.Fatalf("Append(%q): %v", entry, err)
		}
	}
	entries := s.Entries()
	if len(entries) != 2 || entries[0] != "first" || entries[1] != "second" {
		t.Fatalf("unexpected entries %v", entries)
	}

	reloaded, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entries = reloaded.Entries()
	if len(entries) != 2 || entries[0] != "first" || entries[1] != "second" {
		t.Fatalf("entries lost across reload: %v", entries)
	}
}

func TestLoadTrimsCarriageReturnsAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	if err := os.WriteFile(path, []byte("one\r\n\ntwo\n"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	entries := s.Entries()
	if len(entries) != 2 || entries[0] != "one" || entries[1] != "two" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestEntriesReturnsACopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.Append("only"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got := s.Entries()
	got[0] = "mutated"
	if s.Entries()[0] != "only" {
		t.Fatalf("Entries must not expose internal state")
	}
}
