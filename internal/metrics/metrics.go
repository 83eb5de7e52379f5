// Package metrics defines the Prometheus metrics exposed via /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counter actor metrics
var (
	// ActorConnectedSubscribers tracks the number of registered WebSocket subscribers
	ActorConnectedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "counter_connected_subscribers",
			Help: "Number of currently registered WebSocket subscribers",
		},
	)

	// ActorIncrementsTotal tracks applied increments by origin (oneshot/websocket)
	ActorIncrementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_increments_total",
			Help: "Total applied counter increments by origin",
		},
		[]string{"origin"},
	)

	// ActorBroadcastsTotal tracks value broadcasts to the subscriber set
	ActorBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "counter_broadcasts_total",
			Help: "Total counter value broadcasts",
		},
	)

	// ActorDroppedMessagesTotal tracks inbound messages dropped by reason
	ActorDroppedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_dropped_messages_total",
			Help: "Total inbound WebSocket messages dropped by reason",
		},
		[]string{"reason"},
	)

	// ActorSlowSubscribersEvicted tracks subscribers evicted due to full send buffers
	ActorSlowSubscribersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "counter_slow_subscribers_evicted_total",
			Help: "Total subscribers evicted because their send buffer was full",
		},
	)

	// ActorPanicsTotal tracks recovered panics in the actor loop
	ActorPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "counter_actor_panics_total",
			Help: "Total panics recovered in the counter actor loop",
		},
	)

	// ActorStopTimeoutsTotal tracks actor stops that exceeded the stop timeout
	ActorStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "counter_actor_stop_timeouts_total",
			Help: "Total actor shutdowns that exceeded the stop timeout",
		},
	)
)

// Store metrics
var (
	// StoreOpDuration tracks counter store operation latency in seconds
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "counter_store_operation_duration_seconds",
			Help:    "Counter store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	// StoreErrorsTotal tracks counter store operation failures
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_store_errors_total",
			Help: "Total counter store operation failures",
		},
		[]string{"backend", "operation"},
	)
)

// ObserveStoreOp starts a timer observing StoreOpDuration for one store call.
func ObserveStoreOp(backend, operation string) *prometheus.Timer {
	return prometheus.NewTimer(StoreOpDuration.WithLabelValues(backend, operation))
}

// WebSocket transport metrics
var (
	// WebSocketMessageSendDuration tracks per-message write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Total failed WebSocket keepalive pings",
		},
	)
)
