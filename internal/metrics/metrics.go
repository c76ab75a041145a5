// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish results.
const (
	PublishResultDelivered = "delivered"
	PublishResultNoMembers = "no_members"
	PublishResultError     = "error"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Webhook Metrics
	WebhookRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of storefront webhook deliveries by outcome",
		},
		[]string{"outcome"}, // accepted, unauthorized, invalid, stale, unknown_event, error
	)

	WebhookPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_publish_failures_total",
			Help: "Accepted webhooks whose live notification could not be fanned out",
		},
		[]string{"reason"}, // no_members, error
	)

	// WebSocket / Broadcast Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket frames written to clients",
		},
	)

	WSInboundFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_inbound_frames_total",
			Help: "Total number of client frames received by type",
		},
		[]string{"type"},
	)

	BroadcastRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_rooms",
			Help: "Current number of rooms with at least one member",
		},
	)

	BroadcastPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_publishes_total",
			Help: "Total number of room publishes by result",
		},
		[]string{"result"},
	)

	BroadcastFramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_frames_dropped_total",
			Help: "Frames not queued because a client's send buffer was full",
		},
	)

	// Event Bus Metrics
	BusMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_bus_messages_total",
			Help: "Order events passing through the in-process bus",
		},
		[]string{"direction"}, // published, consumed, rejected
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Connection Manager Metrics (order-watch client)
	ClientConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderwatch_connected",
			Help: "1 while the order-watch client holds a live connection",
		},
	)

	ClientReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orderwatch_reconnect_attempts_total",
			Help: "Total number of reconnect attempts",
		},
	)

	ClientEventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderwatch_events_dispatched_total",
			Help: "Events dispatched to local handlers by kind",
		},
		[]string{"kind"},
	)

	ClientHandlerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderwatch_handler_failures_total",
			Help: "Handler errors and panics isolated by the dispatcher",
		},
		[]string{"kind"},
	)

	NotificationsUnread = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "orderwatch_notifications_unread",
			Help: "Unread notifications held by the order-watch projection",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordWebhook records the outcome of one webhook delivery.
func RecordWebhook(outcome string) {
	WebhookRequests.WithLabelValues(outcome).Inc()
}

// RecordWebhookPublishFailure records a fan-out that did not reach anyone.
func RecordWebhookPublishFailure(reason string) {
	WebhookPublishFailures.WithLabelValues(reason).Inc()
}

// RecordPublish records the result of a room publish.
func RecordPublish(result string) {
	BroadcastPublishes.WithLabelValues(result).Inc()
}

// RecordInboundFrame records a client frame by type. Unknown types are
// bucketed to keep label cardinality bounded.
func RecordInboundFrame(frameType string) {
	switch frameType {
	case "join_room", "leave_room", "ping", "invalid", "rate_limited":
	default:
		frameType = "other"
	}
	WSInboundFrames.WithLabelValues(frameType).Inc()
}

// RecordBusMessage records an event bus publish, consume or reject.
func RecordBusMessage(direction string) {
	BusMessages.WithLabelValues(direction).Inc()
}

// RecordClientConnected sets the order-watch connection gauge.
func RecordClientConnected(connected bool) {
	if connected {
		ClientConnected.Set(1)
	} else {
		ClientConnected.Set(0)
	}
}

// RecordDispatch records a dispatched client event and whether any
// handler failed.
func RecordDispatch(kind string, failures int) {
	ClientEventsDispatched.WithLabelValues(kind).Inc()
	if failures > 0 {
		ClientHandlerFailures.WithLabelValues(kind).Add(float64(failures))
	}
}

// RecordUnread sets the unread notification gauge.
func RecordUnread(n int) {
	NotificationsUnread.Set(float64(n))
}
