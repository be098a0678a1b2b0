package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricActiveStreams tracks the number of streams currently being
	// captured (present in the supervisor's active map).
	metricActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dmcap_ingest_active_streams",
		Help: "Number of streams currently being captured.",
	})

	// metricEventsWritten counts events forwarded to a per-streamer writer,
	// labeled by entity kind.
	metricEventsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dmcap_ingest_events_written_total",
		Help: "Total events forwarded to per-streamer writers, by entity kind.",
	}, []string{"entity"})

	// metricDiscoveryTickSeconds tracks how long one discovery tick's
	// upstream list-live call took.
	metricDiscoveryTickSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dmcap_ingest_discovery_tick_seconds",
		Help:    "Duration of a discovery loop's list-live call.",
		Buckets: prometheus.DefBuckets,
	})

	// metricWriterQueueDepth tracks the buffered event count waiting on a
	// stream's data channel, labeled by live_id.
	metricWriterQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dmcap_ingest_writer_queue_depth",
		Help: "Number of events queued for a stream's writer goroutine.",
	}, []string{"live_id"})
)
