package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/ingest/upstream"
	"github.com/liveforge/dmcap/internal/ingest/upstream/stub"
	"github.com/liveforge/dmcap/internal/store"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func newTestCaptureSet(t *testing.T, enabled ...uint64) *catalog.CaptureSet {
	t.Helper()
	st, err := catalog.NewStore(filepath.Join(t.TempDir(), "capture.json"), "pw")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cs, err := catalog.NewCaptureSet(st)
	if err != nil {
		t.Fatalf("NewCaptureSet: %v", err)
	}
	for _, uid := range enabled {
		if err := cs.Add(uid); err != nil {
			t.Fatalf("Add(%d): %v", uid, err)
		}
	}
	return cs
}

func newTestSupervisor(t *testing.T, capture *catalog.CaptureSet) (*Supervisor, chan store.AllLiveEvent, chan []store.GiftInfo, map[string]chan store.Event) {
	t.Helper()
	allLiveTx := make(chan store.AllLiveEvent, 16)
	giftTx := make(chan []store.GiftInfo, 16)
	writers := make(map[string]chan store.Event)

	deps := Deps{
		Factory: stub.NewFactory(stub.NewScript()),
		Capture: capture,
		AllLiveTx: allLiveTx,
		GiftTx:    giftTx,
		OpenWriter: func(liveID string, liverUID uint64) chan store.Event {
			ch := make(chan store.Event, 16)
			writers[liveID] = ch
			return ch
		},
		OpenChat: func(ctx context.Context, entry upstream.LiveEntry, dataTx chan<- store.Event, stopDanmaku chan<- string, recovered chan<- []upstream.LiveEntry) {
			// No real chat task in these tests; the supervisor never joins it.
		},
		Log: testLogger(),
	}
	return NewSupervisor(deps), allLiveTx, giftTx, writers
}

func TestHandleLiveListOpensWriterForCapturedStream(t *testing.T) {
	capture := newTestCaptureSet(t, 42)
	sup, allLiveTx, _, writers := newTestSupervisor(t, capture)

	ctx := context.Background()
	sup.handleLiveList(ctx, []upstream.LiveEntry{
		{LiverUID: 42, LiveID: "L1", Title: "hello"},
	})

	if _, ok := writers["L1"]; !ok {
		t.Fatalf("no writer opened for captured stream L1")
	}
	if sup.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1", sup.ActiveCount())
	}

	select {
	case ev := <-allLiveTx:
		if ev.Live == nil || ev.Live.LiveID != "L1" {
			t.Fatalf("catalog event = %+v, want Live L1", ev)
		}
	default:
		t.Fatalf("no catalog Live event sent for newly discovered stream")
	}
}

func TestHandleLiveListSkipsWriterForNonCapturedStream(t *testing.T) {
	capture := newTestCaptureSet(t) // nobody opted in
	sup, _, _, writers := newTestSupervisor(t, capture)

	sup.handleLiveList(context.Background(), []upstream.LiveEntry{
		{LiverUID: 7, LiveID: "L9", Title: "hello"},
	})

	if _, ok := writers["L9"]; ok {
		t.Fatalf("writer opened for non-captured stream, want none")
	}
	if sup.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d, want 0", sup.ActiveCount())
	}
}

func TestHandleLiveListTitleChangeEmitsExactlyOneEvent(t *testing.T) {
	capture := newTestCaptureSet(t, 42)
	sup, _, _, writers := newTestSupervisor(t, capture)
	ctx := context.Background()

	sup.handleLiveList(ctx, []upstream.LiveEntry{{LiverUID: 42, LiveID: "L1", Title: "T"}})
	// Unrelated repeat tick with the same title: no new Title event.
	sup.handleLiveList(ctx, []upstream.LiveEntry{{LiverUID: 42, LiveID: "L1", Title: "T"}})
	// Title changes: exactly one Title event.
	sup.handleLiveList(ctx, []upstream.LiveEntry{{LiverUID: 42, LiveID: "L1", Title: "T'"}})

	tx := writers["L1"]
	var titles []string
	drain:
	for {
		select {
		case ev := <-tx:
			if ev.Title != nil {
				titles = append(titles, ev.Title.Title)
			}
		default:
			break drain
		}
	}
	if len(titles) != 1 || titles[0] != "T'" {
		t.Fatalf("titles = %v, want exactly one event for T'", titles)
	}
}

func TestHandleLiveListEmptyEntriesIsNoop(t *testing.T) {
	capture := newTestCaptureSet(t, 42)
	sup, _, _, writers := newTestSupervisor(t, capture)
	ctx := context.Background()

	sup.handleLiveList(ctx, []upstream.LiveEntry{{LiverUID: 42, LiveID: "L1", Title: "T"}})
	sup.handleLiveList(ctx, nil)

	if sup.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d after empty tick, want 1 (unchanged)", sup.ActiveCount())
	}
	if _, ok := writers["L1"]; !ok {
		t.Fatalf("writer for L1 disappeared after an empty discovery tick")
	}
}

func TestHandleLiveListDroppedStreamStartsSummarizing(t *testing.T) {
	capture := newTestCaptureSet(t) // not captured, so no active writer involved
	sup, _, _, _ := newTestSupervisor(t, capture)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sup.handleLiveList(ctx, []upstream.LiveEntry{{LiverUID: 7, LiveID: "Lgone", Title: "T"}})
	sup.handleLiveList(ctx, []upstream.LiveEntry{{LiverUID: 7, LiveID: "Lother", Title: "T"}})

	sup.mu.Lock()
	_, summarizing := sup.summarizing["Lgone"]
	sup.mu.Unlock()
	if !summarizing {
		t.Fatalf("Lgone was not marked summarizing after dropping out of the known set")
	}
}

func TestHandleStopDanmakuRemovesActiveStream(t *testing.T) {
	capture := newTestCaptureSet(t, 42)
	sup, _, _, _ := newTestSupervisor(t, capture)
	ctx := context.Background()

	sup.handleLiveList(ctx, []upstream.LiveEntry{{LiverUID: 42, LiveID: "L1", Title: "T"}})
	if sup.ActiveCount() != 1 {
		t.Fatalf("ActiveCount = %d, want 1", sup.ActiveCount())
	}

	sup.handleStopDanmaku("L1")
	if sup.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d after StopDanmaku, want 0", sup.ActiveCount())
	}
}

func TestHandleCommandMutatesCaptureSet(t *testing.T) {
	capture := newTestCaptureSet(t)
	sup, _, _, _ := newTestSupervisor(t, capture)

	sup.handleCommand(Command{Add: true, UID: 99})
	if !capture.Enabled(99) {
		t.Fatalf("Command{Add} did not enable capture for uid 99")
	}

	sup.handleCommand(Command{Add: false, UID: 99})
	if capture.Enabled(99) {
		t.Fatalf("Command{Remove} did not disable capture for uid 99")
	}
}

func TestFetchGiftCatalogForwardsNewEntries(t *testing.T) {
	capture := newTestCaptureSet(t)
	script := stub.NewScript()
	script.GiftCatalogs["L1"] = []upstream.GiftCatalogEntry{{GiftID: 1, GiftName: "rose"}}

	allLiveTx := make(chan store.AllLiveEvent, 4)
	giftTx := make(chan []store.GiftInfo, 4)
	sup := NewSupervisor(Deps{
		Factory:   stub.NewFactory(script),
		Capture:   capture,
		AllLiveTx: allLiveTx,
		GiftTx:    giftTx,
		OpenWriter: func(string, uint64) chan store.Event { return make(chan store.Event, 1) },
		OpenChat:   func(context.Context, upstream.LiveEntry, chan<- store.Event, chan<- string, chan<- []upstream.LiveEntry) {},
		Log:        testLogger(),
	})

	sup.handleLiveList(context.Background(), []upstream.LiveEntry{{LiverUID: 1, LiveID: "L1"}})

	select {
	case batch := <-giftTx:
		if len(batch) != 1 || batch[0].GiftName != "rose" {
			t.Fatalf("gift batch = %+v, want one rose entry", batch)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for gift catalog batch")
	}
}
