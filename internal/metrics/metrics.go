package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker counters and histograms, partitioned by network.

var (
	// Event store
	EventsPersistedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "eventstore",
		Name:      "events_persisted_total",
		Help:      "Total bundle events persisted",
	}, []string{"network", "event_type"})

	EventPersistErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "eventstore",
		Name:      "persist_errors_total",
		Help:      "Total event persist failures",
	}, []string{"network"})

	EventPersistLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "payments",
		Subsystem: "eventstore",
		Name:      "persist_duration_seconds",
		Help:      "Event persist duration including projection fan-out",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"network"})

	// Projections
	ProjectionUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "projection",
		Name:      "updates_total",
		Help:      "Total projection rows written",
	}, []string{"network", "view"})

	ProjectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "projection",
		Name:      "errors_total",
		Help:      "Total projection update failures",
	}, []string{"network", "view"})

	// Broadcaster
	BroadcastBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "broadcaster",
		Name:      "batches_total",
		Help:      "Total broadcast batches processed",
	}, []string{"network"})

	BroadcastSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "broadcaster",
		Name:      "submitted_total",
		Help:      "Total signed transactions submitted to the node",
	}, []string{"network", "leg"})

	BroadcastDuplicatesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "broadcaster",
		Name:      "duplicates_skipped_total",
		Help:      "Total submissions suppressed by the recent-hash guard",
	}, []string{"network"})

	BroadcastFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "broadcaster",
		Name:      "failures_total",
		Help:      "Total bundles marked failed by the broadcaster",
	}, []string{"network"})

	BroadcastLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "payments",
		Subsystem: "broadcaster",
		Name:      "request_duration_seconds",
		Help:      "Per-request broadcast processing duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"network"})

	// Watchers
	WatcherSweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "watcher",
		Name:      "sweeps_total",
		Help:      "Total watcher sweeps executed",
	}, []string{"network", "watcher"})

	WatcherConfirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "watcher",
		Name:      "confirmations_total",
		Help:      "Total leg confirmations recorded",
	}, []string{"network", "leg"})

	WatcherRevertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "watcher",
		Name:      "reverts_total",
		Help:      "Total reverted transactions detected on chain",
	}, []string{"network"})

	WatcherErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "watcher",
		Name:      "errors_total",
		Help:      "Total watcher sweep errors",
	}, []string{"network", "watcher"})

	WatcherSweepLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "payments",
		Subsystem: "watcher",
		Name:      "sweep_duration_seconds",
		Help:      "Watcher sweep duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"network", "watcher"})

	// Queue
	QueueMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "queue",
		Name:      "messages_received_total",
		Help:      "Total broadcast queue messages received",
	}, []string{"network"})

	QueueMessagesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "queue",
		Name:      "messages_deleted_total",
		Help:      "Total broadcast queue messages acknowledged",
	}, []string{"network"})

	// Chain RPC
	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Total chain RPC calls that waited on the rate limiter",
	}, []string{"network"})

	// Database pool
	DBPoolOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "payments",
		Subsystem: "postgres",
		Name:      "db_pool_open",
		Help:      "Current number of open PostgreSQL connections in the pool",
	}, []string{"network"})

	DBPoolInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "payments",
		Subsystem: "postgres",
		Name:      "db_pool_in_use",
		Help:      "Current number of in-use PostgreSQL connections in the pool",
	}, []string{"network"})

	DBPoolIdle = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "payments",
		Subsystem: "postgres",
		Name:      "db_pool_idle",
		Help:      "Current number of idle PostgreSQL connections in the pool",
	}, []string{"network"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts sent",
	}, []string{"channel", "alert_type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payments",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts skipped due to cooldown",
	}, []string{"channel", "alert_type"})
)
