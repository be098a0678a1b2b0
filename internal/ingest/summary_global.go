package ingest

import (
	"context"

	"github.com/liveforge/dmcap/internal/store"
)

// runGlobalSummaryFinalizer handles a stream that left the discovered
// set without an active capture task (not opted in,
// or ended between ticks), fetch its summary twice 10s apart and, on
// agreement, update the global catalog and report StopSummary; on
// disagreement, back off 30 minutes and retry. This is the only path that
// updates live.duration/like/watch for streams nobody was capturing.
func (s *Supervisor) runGlobalSummaryFinalizer(ctx context.Context, liveID string) {
	log := s.deps.Log.WithFields(map[string]any{"component": "summary_finalizer", "live_id": liveID})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("global summary finalizer panicked")
		}
		s.stopSummary <- liveID
	}()

	for {
		first, ok := fetchSummaryOnce(ctx, s.deps.Factory, liveID, log)
		if !ok {
			return
		}
		if !sleepCtx(ctx, summaryWait) {
			return
		}
		second, ok := fetchSummaryOnce(ctx, s.deps.Factory, liveID, log)
		if !ok {
			return
		}
		if first == second {
			select {
			case s.deps.AllLiveTx <- store.AllLiveEvent{Summary: &store.CatalogSummary{
				LiveID: liveID, Duration: second.Duration, LikeCount: second.LikeCount, WatchCount: second.WatchTotalCount,
			}}:
			case <-ctx.Done():
			}
			return
		}
		log.Warn("summary fetches disagree, backing off")
		if !sleepCtx(ctx, summaryBackoff) {
			return
		}
	}
}
