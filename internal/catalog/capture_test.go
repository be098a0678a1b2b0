package catalog

import (
	"path/filepath"
	"testing"
)

func newTestCaptureSet(t *testing.T) *CaptureSet {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "capture.json"), "test-password")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cs, err := NewCaptureSet(store)
	if err != nil {
		t.Fatalf("NewCaptureSet: %v", err)
	}
	return cs
}

func TestCaptureSetAddRemove(t *testing.T) {
	cs := newTestCaptureSet(t)

	if cs.Enabled(1) {
		t.Fatalf("uid 1 enabled before Add")
	}
	if err := cs.Add(1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !cs.Enabled(1) {
		t.Fatalf("uid 1 not enabled after Add")
	}
	if err := cs.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if cs.Enabled(1) {
		t.Fatalf("uid 1 still enabled after Remove")
	}
}

func TestCaptureSetAddIdempotent(t *testing.T) {
	cs := newTestCaptureSet(t)
	if err := cs.Add(5); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := cs.Add(5); err != nil {
		t.Fatalf("Add (repeat): %v", err)
	}
	if !cs.Enabled(5) {
		t.Fatalf("uid 5 not enabled")
	}
}

func TestCaptureSetPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.json")

	store1, err := NewStore(path, "pw")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cs1, err := NewCaptureSet(store1)
	if err != nil {
		t.Fatalf("NewCaptureSet: %v", err)
	}
	if err := cs1.Add(77); err != nil {
		t.Fatalf("Add: %v", err)
	}

	store2, err := NewStore(path, "pw")
	if err != nil {
		t.Fatalf("NewStore (reload): %v", err)
	}
	cs2, err := NewCaptureSet(store2)
	if err != nil {
		t.Fatalf("NewCaptureSet (reload): %v", err)
	}
	if !cs2.Enabled(77) {
		t.Fatalf("uid 77 not enabled after reload")
	}
}
