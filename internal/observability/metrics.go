package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medfeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EngagementEvents counts toggles and votes by kind and outcome.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medfeed_engagement_events_total",
		Help: "Engagement state transitions by kind and outcome",
	}, []string{"kind", "outcome"})

	// NotificationsPersisted counts in-app notification rows written by type.
	NotificationsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medfeed_notifications_persisted_total",
		Help: "In-app notification records persisted by type",
	}, []string{"type"})

	// PushDispatch counts push dispatch attempts by provider and result.
	PushDispatch = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medfeed_push_dispatch_total",
		Help: "Push notification dispatch attempts by provider and result",
	}, []string{"provider", "result"})

	// PushQueueDrops counts push jobs dropped because the dispatch queue was full.
	PushQueueDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medfeed_push_queue_drops_total",
		Help: "Push jobs dropped due to a full dispatch queue",
	})

	// PushQueueDepth is the number of push jobs waiting for a worker.
	PushQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medfeed_push_queue_depth",
		Help: "Push jobs currently queued for dispatch",
	})

	// HashtagMutations counts hashtag attach and detach operations.
	HashtagMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medfeed_hashtag_mutations_total",
		Help: "Hashtag ledger mutations by operation",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of open notification sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "medfeed_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts realtime messages dropped due to slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medfeed_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics records query latency for a repository table.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// RecordEngagement increments the engagement counter for a kind/outcome pair.
func RecordEngagement(kind, outcome string) {
	EngagementEvents.WithLabelValues(kind, outcome).Inc()
}
