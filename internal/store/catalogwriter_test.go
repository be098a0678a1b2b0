package store

import (
	"path/filepath"
	"testing"
)

func newTestCatalogWriter(t *testing.T) *CatalogWriter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	w, err := NewCatalogWriter(path, testLogger())
	if err != nil {
		t.Fatalf("NewCatalogWriter: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestCatalogWriterInsertIsInsertOrIgnore(t *testing.T) {
	w := newTestCatalogWriter(t)

	live := &CatalogLive{
		LiveID:     "L1",
		LiverUID:   7,
		Nickname:   "first",
		StreamName: "stream",
		StartTime:  100,
		Title:      "hello",
	}
	if err := w.dispatch(AllLiveEvent{Live: live}); err != nil {
		t.Fatalf("dispatch live: %v", err)
	}

	dup := &CatalogLive{LiveID: "L1", LiverUID: 7, Nickname: "second"}
	if err := w.dispatch(AllLiveEvent{Live: dup}); err != nil {
		t.Fatalf("dispatch duplicate live: %v", err)
	}

	var n int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM live").Scan(&n); err != nil {
		t.Fatalf("count live: %v", err)
	}
	if n != 1 {
		t.Fatalf("live rows = %d, want 1", n)
	}

	var nickname string
	if err := w.db.QueryRow("SELECT nickname FROM live WHERE live_id = 'L1'").Scan(&nickname); err != nil {
		t.Fatalf("query live: %v", err)
	}
	if nickname != "first" {
		t.Fatalf("live.nickname = %q, want %q (insert-or-ignore keeps first)", nickname, "first")
	}
}

func TestCatalogWriterSummaryUpdatesExistingRow(t *testing.T) {
	w := newTestCatalogWriter(t)

	if err := w.dispatch(AllLiveEvent{Live: &CatalogLive{LiveID: "L1", LiverUID: 7}}); err != nil {
		t.Fatalf("dispatch live: %v", err)
	}
	if err := w.dispatch(AllLiveEvent{Summary: &CatalogSummary{
		LiveID: "L1", Duration: 500, LikeCount: 10, WatchCount: 99,
	}}); err != nil {
		t.Fatalf("dispatch summary: %v", err)
	}

	var duration, likes, watch int64
	err := w.db.QueryRow("SELECT duration, like_count, watch_count FROM live WHERE live_id = 'L1'").
		Scan(&duration, &likes, &watch)
	if err != nil {
		t.Fatalf("query live: %v", err)
	}
	if duration != 500 || likes != 10 || watch != 99 {
		t.Fatalf("live summary fields = (%d, %d, %d), want (500, 10, 99)", duration, likes, watch)
	}
}

func TestCatalogWriterSummaryForUnknownLiveIsNoop(t *testing.T) {
	w := newTestCatalogWriter(t)

	if err := w.dispatch(AllLiveEvent{Summary: &CatalogSummary{LiveID: "ghost", Duration: 1}}); err != nil {
		t.Fatalf("dispatch summary for unknown live: %v", err)
	}

	var n int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM live").Scan(&n); err != nil {
		t.Fatalf("count live: %v", err)
	}
	if n != 0 {
		t.Fatalf("live rows = %d, want 0", n)
	}
}

func TestCatalogWriterRunConsumesUntilClose(t *testing.T) {
	w := newTestCatalogWriter(t)

	ch := make(chan AllLiveEvent, 2)
	ch <- AllLiveEvent{Live: &CatalogLive{LiveID: "A", LiverUID: 1}}
	ch <- AllLiveEvent{Live: &CatalogLive{LiveID: "B", LiverUID: 2}}
	close(ch)

	if err := w.Run(ch); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var n int
	if err := w.db.QueryRow("SELECT COUNT(*) FROM live").Scan(&n); err != nil {
		t.Fatalf("count live: %v", err)
	}
	if n != 2 {
		t.Fatalf("live rows = %d, want 2", n)
	}
}
