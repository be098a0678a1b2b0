package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/ingest/upstream"
	"github.com/liveforge/dmcap/internal/store"
)

// Pipeline wires the discovery loop, supervisor, tick broadcaster, and
// the two global writers (catalog.db, gifts.db) into one task graph. It
// is the data-center process's top-level unit of work.
type Pipeline struct {
	DataDir     string
	Factory     upstream.Factory
	Capture     *catalog.CaptureSet
	Log         logrus.FieldLogger
	Commands    chan Command
	Tick        *TickBroadcaster
	Supervisor  *Supervisor
	catalogDone chan error
	giftDone    chan error
}

// NewPipeline opens the two global stores and constructs a Supervisor
// wired to real OpenWriter/OpenChat implementations backed by
// internal/store and the given upstream.Factory.
func NewPipeline(dataDir string, factory upstream.Factory, capture *catalog.CaptureSet, log logrus.FieldLogger) (*Pipeline, error) {
	throttled := upstream.NewThrottledFactory(factory)

	catalogWriter, err := store.NewCatalogWriter(dataDir+"/acfunlive.db", log.WithField("component", "catalog_writer"))
	if err != nil {
		return nil, err
	}
	giftWriter, err := store.NewGiftWriter(dataDir+"/gift.db", log.WithField("component", "gift_writer"))
	if err != nil {
		catalogWriter.Close()
		return nil, err
	}

	allLiveTx := make(chan store.AllLiveEvent, eventBuffer)
	giftTx := make(chan []store.GiftInfo, eventBuffer)

	catalogDone := make(chan error, 1)
	go func() { catalogDone <- catalogWriter.Run(allLiveTx) }()
	giftDone := make(chan error, 1)
	go func() { giftDone <- giftWriter.Run(giftTx) }()

	tick := NewTickBroadcaster(30 * time.Second)

	p := &Pipeline{
		DataDir:     dataDir,
		Factory:     throttled,
		Capture:     capture,
		Log:         log,
		Commands:    make(chan Command, 64),
		Tick:        tick,
		catalogDone: catalogDone,
		giftDone:    giftDone,
	}

	deps := Deps{
		Factory:   throttled,
		Capture:   capture,
		AllLiveTx: allLiveTx,
		GiftTx:    giftTx,
		Log:       log,
		OpenWriter: func(liveID string, liverUID uint64) chan store.Event {
			return p.openWriter(liveID, liverUID)
		},
		OpenChat: func(ctx context.Context, entry upstream.LiveEntry, dataTx chan<- store.Event, stopDanmaku chan<- string, recovered chan<- []upstream.LiveEntry) {
			go RunChatTask(ctx, throttled, entry, dataTx, stopDanmaku, recovered, log)
		},
	}
	p.Supervisor = NewSupervisor(deps)
	return p, nil
}

// openWriter opens the per-streamer store and spawns its writer
// goroutine, returning the event channel the supervisor feeds.
func (p *Pipeline) openWriter(liveID string, liverUID uint64) chan store.Event {
	log := p.Log.WithField("component", "writer")
	events := make(chan store.Event, eventBuffer)

	w, err := store.NewWriter(store.LiverDBPath(p.DataDir, liverUID), liveID, liverUID, log)
	if err != nil {
		log.WithError(err).WithField("uid", liverUID).Error("failed to open writer, events will be dropped")
		go drain(events)
		return events
	}

	go func() {
		defer w.Close()
		if err := w.Run(events, p.Tick.Subscribe()); err != nil {
			log.WithError(err).WithField("uid", liverUID).Error("writer exited with schema error")
		}
	}()
	return events
}

// drain discards events sent to a writer that failed to open, so the
// supervisor never blocks on a dead stream.
func drain(events <-chan store.Event) {
	for range events {
	}
}

// Run starts the discovery loop, tick broadcaster, and supervisor, and
// blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	liveLists := make(chan []upstream.LiveEntry, 64)

	go p.Tick.Run(ctx)
	go RunDiscovery(ctx, p.Factory, liveLists, p.Log)
	p.Supervisor.Run(ctx, liveLists, p.Commands)
}
