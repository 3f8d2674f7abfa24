package core

import "testing"

type closeCounter struct {
	writes []byte
	closed int
}

func (c *closeCounter) Write(p []byte) (int, error) {
	c.writes = append(c.writes, p...)
	return len(p), nil
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

func TestStdinSlotTakeConsumes(t *testing.T) {
	var slot stdinSlot
	w := &closeCounter{}
	slot.Replace(w)
	if got := slot.Take(); got != w {
		t.Fatalf("expected installed handle back")
	}
	if got := slot.Take(); got != nil {
		t.Fatalf("expected empty slot after take, got %v", got)
	}
}

func TestStdinSlotReplaceClosesStale(t *testing.T) {
	var slot stdinSlot
	stale := &closeCounter{}
	slot.Replace(stale)
	fresh := &closeCounter{}
	slot.Replace(fresh)
	if stale.closed != 1 {
		t.Fatalf("expected stale handle closed once, got %d", stale.closed)
	}
	if got := slot.Take(); got != fresh {
		t.Fatalf("expected fresh handle")
	}
}
