package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redis operation metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Room multiplexer metrics
var (
	// RoomsActive tracks the number of rooms with at least one member
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rooms_active",
			Help: "Number of rooms with at least one member",
		},
	)

	// UpstreamSubscriptions tracks active broadcast channel subscriptions
	UpstreamSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_subscriptions_active",
			Help: "Number of active upstream broadcast subscriptions",
		},
	)

	// SubscribesTotal counts upstream subscribe attempts by status
	SubscribesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_subscribes_total",
			Help: "Upstream subscribe attempts by status",
		},
		[]string{"status"},
	)

	// UnsubscribesTotal counts upstream unsubscribe attempts by status
	UnsubscribesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_unsubscribes_total",
			Help: "Upstream unsubscribe attempts by status",
		},
		[]string{"status"},
	)

	// ConnectionsActive tracks registered viewer connections
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connections_active",
			Help: "Number of registered viewer connections",
		},
	)

	// BatchesReceived counts delta batches received from the broadcast channel
	BatchesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_batches_received_total",
			Help: "Delta batches received from the broadcast channel",
		},
	)

	// DeliveriesTotal counts per-connection batch deliveries
	DeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deliveries_total",
			Help: "Delta batches enqueued to viewer connections",
		},
	)

	// DeliveriesDropped counts batches dropped due to a saturated viewer queue
	DeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deliveries_dropped_total",
			Help: "Delta batches dropped because a viewer queue was full",
		},
	)
)

// Comment ingestion metrics
var (
	// CommentsProcessed counts accepted comments
	CommentsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comments_processed_total",
			Help: "Comments tokenized and applied to a topic",
		},
	)

	// CommentsRateLimited counts comments rejected by the rate limiter
	CommentsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comments_rate_limited_total",
			Help: "Comments rejected by the per-topic rate limiter",
		},
	)

	// WordsExtracted counts words extracted from accepted comments
	WordsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "words_extracted_total",
			Help: "Distinct words extracted from accepted comments",
		},
	)

	// TopicsCreated counts newly registered topics
	TopicsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "topics_created_total",
			Help: "Newly registered topics",
		},
	)
)

// Snapshot cache metrics
var (
	// SnapshotCacheHits counts snapshot requests served from the local cache
	SnapshotCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_cache_hits_total",
			Help: "Snapshot requests served from the local cache",
		},
	)

	// SnapshotCacheMisses counts snapshot requests that hit Redis
	SnapshotCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_cache_misses_total",
			Help: "Snapshot requests that fell through to Redis",
		},
	)
)

// WebSocket metrics
var (
	// WebSocketConnections tracks currently open viewer sockets
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Currently open viewer WebSocket connections",
		},
	)

	// WebSocketPingFailures counts failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed WebSocket keepalive pings",
		},
	)
)
