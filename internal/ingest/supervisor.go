package ingest

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/catalog"
	"github.com/liveforge/dmcap/internal/ingest/upstream"
	"github.com/liveforge/dmcap/internal/store"
)

// eventBuffer sizes every channel this package treats as unbounded. A
// real unbounded MPSC queue isn't an idiomatic Go primitive; a
// generously buffered channel is the practical stand-in, and downstream
// writers draining on dedicated goroutines keep it from ever filling
// under normal load.
const eventBuffer = 1 << 16

// activeStream is the supervisor's record of one stream currently being
// captured.
type activeStream struct {
	title  string
	dataTx chan store.Event
}

// OpenChatFunc spawns the per-stream chat task for entry. It must not
// block — the task itself runs in its own goroutine and reports back via
// stopDanmaku when it ends, or via recovered to re-inject a synthetic
// LiveList entry.
type OpenChatFunc func(ctx context.Context, entry upstream.LiveEntry, dataTx chan<- store.Event, stopDanmaku chan<- string, recovered chan<- []upstream.LiveEntry)

// OpenWriterFunc opens (or re-opens) the writer for a stream and returns
// the channel the supervisor should feed its events into. The writer
// goroutine itself is spawned by the implementation; the supervisor keeps
// no acknowledgement of its health.
type OpenWriterFunc func(liveID string, liverUID uint64) chan store.Event

// Deps bundles the collaborators a Supervisor needs.
type Deps struct {
	Factory    upstream.Factory
	Capture    *catalog.CaptureSet
	AllLiveTx  chan<- store.AllLiveEvent
	GiftTx     chan<- []store.GiftInfo
	OpenWriter OpenWriterFunc
	OpenChat   OpenChatFunc
	Log        logrus.FieldLogger
}

// Command mutates the capture set, delivered from the signal-bus handler.
type Command struct {
	Add bool
	UID uint64
}

// Supervisor is the single state machine tracking every stream the
// discovery loop has reported in the current epoch
// (known), every stream a global summary finalizer is running for
// (summarizing), and every stream currently being captured (active). All
// three maps are touched only from the goroutine running Run; Active is
// the sole accessor allowed from elsewhere, guarded by mu.
type Supervisor struct {
	deps Deps

	mu     sync.Mutex
	active map[string]*activeStream

	known       map[string]struct{}
	summarizing map[string]struct{}

	stopDanmaku chan string
	stopSummary chan string
	recovered   chan []upstream.LiveEntry
}

func NewSupervisor(deps Deps) *Supervisor {
	return &Supervisor{
		deps:        deps,
		active:      make(map[string]*activeStream),
		known:       make(map[string]struct{}),
		summarizing: make(map[string]struct{}),
		stopDanmaku: make(chan string, eventBuffer),
		stopSummary: make(chan string, eventBuffer),
		recovered:   make(chan []upstream.LiveEntry, 64),
	}
}

// ActiveCount reports the number of streams currently being captured.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Run consumes liveLists, recovered synthetic lists, StopDanmaku/
// StopSummary reports, and capture-set Commands until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context, liveLists <-chan []upstream.LiveEntry, commands <-chan Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case entries := <-liveLists:
			s.handleLiveList(ctx, entries)
		case entries := <-s.recovered:
			s.handleLiveList(ctx, entries)
		case liveID := <-s.stopDanmaku:
			s.handleStopDanmaku(liveID)
		case liveID := <-s.stopSummary:
			s.handleStopSummary(liveID)
		case cmd := <-commands:
			s.handleCommand(cmd)
		}
	}
}

// handleLiveList reconciles the active/known sets against a fresh
// discovery snapshot: it opens writers and chat tasks for newly opted-in
// streams, updates titles for streams already being captured, and starts
// a global summary finalizer for anything that dropped out unseen.
func (s *Supervisor) handleLiveList(ctx context.Context, entries []upstream.LiveEntry) {
	if len(entries) == 0 {
		// Treated as an upstream hiccup, not a mass stream-end.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newKnown := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		newKnown[e.LiveID] = struct{}{}

		if _, seen := s.known[e.LiveID]; !seen {
			s.sendCatalogLive(e)
			go s.fetchGiftCatalog(ctx, e)
		}

		if !s.deps.Capture.Enabled(e.LiverUID) {
			continue
		}

		if existing, ok := s.active[e.LiveID]; ok {
			if existing.title != e.Title {
				existing.title = e.Title
				sendEvent(s.deps.Log, existing.dataTx, store.Event{
					Title: &store.Title{LiveID: e.LiveID, SaveTime: nowMillis(), Title: e.Title},
				})
			}
			continue
		}

		dataTx := s.deps.OpenWriter(e.LiveID, e.LiverUID)
		s.active[e.LiveID] = &activeStream{title: e.Title, dataTx: dataTx}
		s.deps.OpenChat(ctx, e, dataTx, s.stopDanmaku, s.recovered)
		metricActiveStreams.Set(float64(len(s.active)))
	}

	for liveID := range s.known {
		if _, stillKnown := newKnown[liveID]; stillKnown {
			continue
		}
		if _, already := s.summarizing[liveID]; already {
			continue
		}
		s.summarizing[liveID] = struct{}{}
		go s.runGlobalSummaryFinalizer(ctx, liveID)
	}

	s.known = newKnown
}

func (s *Supervisor) handleStopDanmaku(liveID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[liveID]; !ok {
		s.deps.Log.WithField("live_id", liveID).Warn("StopDanmaku for unknown stream")
		return
	}
	delete(s.active, liveID)
	metricActiveStreams.Set(float64(len(s.active)))
}

func (s *Supervisor) handleStopSummary(liveID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.summarizing, liveID)
}

func (s *Supervisor) handleCommand(cmd Command) {
	var err error
	if cmd.Add {
		err = s.deps.Capture.Add(cmd.UID)
	} else {
		err = s.deps.Capture.Remove(cmd.UID)
	}
	if err != nil {
		s.deps.Log.WithError(err).WithField("uid", cmd.UID).Error("failed to persist capture-set command")
	}
}

func (s *Supervisor) sendCatalogLive(e upstream.LiveEntry) {
	select {
	case s.deps.AllLiveTx <- store.AllLiveEvent{Live: &store.CatalogLive{
		LiveID:             e.LiveID,
		LiverUID:           e.LiverUID,
		Nickname:           e.Nickname,
		StreamName:         e.StreamName,
		StartTime:          e.StartTime,
		Title:              e.Title,
		LiveType:           entryLiveType(e),
		Portrait:           e.Portrait,
		Panoramic:          e.Panoramic,
		DisableDanmakuShow: e.DisableDanmakuShow,
	}}:
	default:
		s.deps.Log.WithField("live_id", e.LiveID).Warn("catalog writer channel full, dropping Live event")
	}
}

func entryLiveType(e upstream.LiveEntry) *store.LiveType {
	if e.LiveTypeID == 0 && e.LiveTypeName == "" {
		return nil
	}
	return &store.LiveType{
		ID:           e.LiveTypeID,
		Name:         e.LiveTypeName,
		CategoryID:   e.LiveTypeCategoryID,
		CategoryName: e.LiveTypeCategoryName,
	}
}

// fetchGiftCatalog fetches and forwards a newly-discovered stream's gift
// catalog, retried 3 times with a 2s backoff.
func (s *Supervisor) fetchGiftCatalog(ctx context.Context, e upstream.LiveEntry) {
	log := s.deps.Log.WithField("live_id", e.LiveID)
	retryThrice(ctx, log, "fetch gift catalog", func(ctx context.Context) error {
		client, err := s.deps.Factory.Build(ctx)
		if err != nil {
			return err
		}
		entries, err := client.GiftCatalog(ctx, e.LiveID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		batch := make([]store.GiftInfo, len(entries))
		for i, g := range entries {
			batch[i] = store.GiftInfo{
				SaveTime:               nowMillis(),
				GiftID:                 g.GiftID,
				GiftName:               g.GiftName,
				ArLiveName:             g.ArLiveName,
				PayWalletType:          g.PayWalletType,
				GiftPrice:              g.GiftPrice,
				WebpPic:                g.WebpPic,
				PngPic:                 g.PngPic,
				SmallPngPic:            g.SmallPngPic,
				AllowBatchSendSizeList: g.AllowBatchSendSizeList,
				CanCombo:               g.CanCombo,
				CanDraw:                g.CanDraw,
				MagicFaceID:            g.MagicFaceID,
				VupArID:                g.VupArID,
				Description:            g.Description,
				RedpackPrice:           g.RedpackPrice,
				CornerMarkerText:       g.CornerMarkerText,
			}
		}
		select {
		case s.deps.GiftTx <- batch:
		case <-ctx.Done():
		}
		return nil
	})
}

// sendEvent delivers ev on tx without blocking the supervisor forever; a
// full buffer means the stream's writer has died, which is tolerated
// since the supervisor keeps no acknowledgement from writers.
func sendEvent(log logrus.FieldLogger, tx chan<- store.Event, ev store.Event) {
	select {
	case tx <- ev:
		metricEventsWritten.WithLabelValues(eventEntity(ev)).Inc()
	default:
		log.Warn("writer channel full, dropping event")
	}
}

// eventEntity returns the entity-kind label for ev, matching its
// non-nil field.
func eventEntity(ev store.Event) string {
	switch {
	case ev.Title != nil:
		return "title"
	case ev.Comment != nil:
		return "comment"
	case ev.Follow != nil:
		return "follow"
	case ev.Gift != nil:
		return "gift"
	case ev.JoinClub != nil:
		return "join_club"
	case ev.WatchingCount != nil:
		return "watching_count"
	case ev.Redpack != nil:
		return "redpack"
	default:
		return "other"
	}
}
