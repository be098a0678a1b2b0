package gateway

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/liveforge/dmcap/internal/store"
)

func newTestGiftDB(t *testing.T, entries []store.GiftInfo) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gift.db")

	w, err := store.NewGiftWriter(path, testLogger())
	if err != nil {
		t.Fatalf("NewGiftWriter: %v", err)
	}
	batches := make(chan []store.GiftInfo, 1)
	batches <- entries
	close(batches)
	if err := w.Run(batches); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGiftCacheLookupReturnsMatchingRows(t *testing.T) {
	db := newTestGiftDB(t, []store.GiftInfo{
		{GiftID: 1, GiftName: "rose", SaveTime: 100},
		{GiftID: 2, GiftName: "rocket", SaveTime: 200},
	})
	c := NewGiftCache(db)

	rows, err := c.Lookup([]int64{1}, true)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0]["gift_name"] != "rose" {
		t.Fatalf("rows[0] = %+v, want gift_name=rose", rows[0])
	}
}

func TestGiftCacheKeyIgnoresOrder(t *testing.T) {
	if giftCacheKey([]int64{2, 1}, false) != giftCacheKey([]int64{1, 2}, false) {
		t.Fatalf("giftCacheKey is order-sensitive, want normalized")
	}
	if giftCacheKey([]int64{1}, true) == giftCacheKey([]int64{1}, false) {
		t.Fatalf("giftCacheKey ignores allHistory, want it distinguished")
	}
}

func TestGiftCacheServesSecondLookupFromCache(t *testing.T) {
	db := newTestGiftDB(t, []store.GiftInfo{{GiftID: 1, GiftName: "rose", SaveTime: 100}})
	c := NewGiftCache(db)

	first, err := c.Lookup([]int64{1}, true)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	// Close the backing DB; a cache hit must not touch it again.
	db.Close()

	second, err := c.Lookup([]int64{1}, true)
	if err != nil {
		t.Fatalf("Lookup (cached): %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("cached lookup returned different row count: %d vs %d", len(first), len(second))
	}
}

func newTestCatalogDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.db")
	w, err := store.NewCatalogWriter(path, testLogger())
	if err != nil {
		t.Fatalf("NewCatalogWriter: %v", err)
	}
	events := make(chan store.AllLiveEvent, 2)
	events <- store.AllLiveEvent{Live: &store.CatalogLive{LiveID: "still-live", LiverUID: 1, StartTime: 1}}
	ended := int64(10)
	events <- store.AllLiveEvent{Live: &store.CatalogLive{LiveID: "ended", LiverUID: 2, StartTime: 1, Duration: &ended}}
	close(events)
	if err := w.Run(events); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIsLiveCacheNullDurationMeansLive(t *testing.T) {
	db := newTestCatalogDB(t)
	c := NewIsLiveCache(db)

	live, err := c.IsLive(1)
	if err != nil {
		t.Fatalf("IsLive: %v", err)
	}
	if !live {
		t.Fatalf("IsLive(1) = false, want true (NULL duration)")
	}
}

func TestIsLiveCacheNonNullDurationMeansEnded(t *testing.T) {
	db := newTestCatalogDB(t)
	c := NewIsLiveCache(db)

	live, err := c.IsLive(2)
	if err != nil {
		t.Fatalf("IsLive: %v", err)
	}
	if live {
		t.Fatalf("IsLive(2) = true, want false (duration set)")
	}
}

func TestIsLiveCacheUnknownUIDIsNotLive(t *testing.T) {
	db := newTestCatalogDB(t)
	c := NewIsLiveCache(db)

	live, err := c.IsLive(999)
	if err != nil {
		t.Fatalf("IsLive: %v", err)
	}
	if live {
		t.Fatalf("IsLive(unknown) = true, want false")
	}
}
