package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liveforge/dmcap/internal/ingest/upstream"
)

// discoveryInterval is the wake-up period for the discovery loop.
const discoveryInterval = 10 * time.Second

// maxDiscoveryEntries is the hard cap on the number of currently-live
// streams requested in a single tick.
const maxDiscoveryEntries = 1_000_000

// RunDiscovery wakes every discoveryInterval, requests the full list of
// currently-live streams, and sends it to out. A transient upstream
// failure is logged and the tick is skipped; the loop itself never
// exits.
func RunDiscovery(ctx context.Context, factory upstream.Factory, out chan<- []upstream.LiveEntry, log logrus.FieldLogger) {
	log = log.WithField("component", "discovery")
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			discoveryTick(ctx, factory, out, log)
		}
	}
}

func discoveryTick(ctx context.Context, factory upstream.Factory, out chan<- []upstream.LiveEntry, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("discovery tick panicked")
		}
	}()

	start := time.Now()
	client, err := factory.Build(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to build upstream client")
		return
	}

	entries, err := client.ListLive(ctx, maxDiscoveryEntries, 0)
	metricDiscoveryTickSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		log.WithError(err).Warn("failed to list live streams")
		return
	}

	select {
	case out <- entries:
	case <-ctx.Done():
	}
}
