// Partysync - Synchronized Listening Parties
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partysync

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciliation Metrics
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partysync_tick_duration_seconds",
			Help:    "Wall time of one reconciliation tick across all parties",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	PartiesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partysync_parties_active",
			Help: "Current number of active parties",
		},
	)

	ListenersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partysync_listeners_active",
			Help: "Current number of listeners across all active parties",
		},
	)

	PartiesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partysync_parties_skipped_total",
			Help: "Parties skipped because the previous tick was still reconciling them",
		},
	)

	CorrectiveCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_corrective_commands_total",
			Help: "Corrective commands issued to listeners",
		},
		[]string{"kind", "path", "result"}, // kind: play, pause, next, previous; path: relay, api
	)

	PartyTeardowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_party_teardowns_total",
			Help: "Parties torn down, by reason",
		},
		[]string{"reason"},
	)

	ListenerRemovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_listener_removals_total",
			Help: "Listeners removed from parties, by reason",
		},
		[]string{"reason"},
	)

	SummaryChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partysync_summary_changes_total",
			Help: "PartySummaryChanged events raised",
		},
	)

	// Relay Metrics
	RelayConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partysync_relay_connections_active",
			Help: "Current number of active relay connections",
		},
	)

	RelayHandshakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_relay_handshakes_total",
			Help: "Relay handshake attempts, by result",
		},
		[]string{"result"}, // accepted, invalid_format, reserved_format, unknown_subject, upgrade_failed
	)

	RelayDisplacements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partysync_relay_displacements_total",
			Help: "Relay connections displaced by a newer connection with the same token",
		},
	)

	RelayMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_relay_messages_sent_total",
			Help: "Relay pushes, by message type and result",
		},
		[]string{"type", "result"},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_upstream_requests_total",
			Help: "Requests sent to the playback API",
		},
		[]string{"operation", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partysync_upstream_request_duration_seconds",
			Help:    "Latency of playback API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_upstream_token_refreshes_total",
			Help: "Access token refreshes triggered by 401 responses",
		},
		[]string{"result"},
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
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partysync_events_published_total",
			Help: "Party events published, by topic and result",
		},
		[]string{"topic", "result"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// RecordTick records the duration of one reconciliation tick and the
// registry size observed at its start.
func RecordTick(duration time.Duration, parties, listeners int) {
	TickDuration.Observe(duration.Seconds())
	PartiesActive.Set(float64(parties))
	ListenersActive.Set(float64(listeners))
}

// RecordCommand records a corrective command outcome.
func RecordCommand(kind, path string, ok bool) {
	CorrectiveCommands.WithLabelValues(kind, path, result(ok)).Inc()
}

// RecordUpstreamRequest records a playback API request. status is the HTTP
// status code, or 0 when the request never produced a response.
func RecordUpstreamRequest(operation string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(operation, label).Inc()
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTokenRefresh records the outcome of a token refresh.
func RecordTokenRefresh(ok bool) {
	TokenRefreshes.WithLabelValues(result(ok)).Inc()
}

// RecordRelaySend records a relay push.
func RecordRelaySend(msgType string, ok bool) {
	RelayMessagesSent.WithLabelValues(msgType, result(ok)).Inc()
}

// RecordEventPublished records a published party event.
func RecordEventPublished(topic string, err error) {
	EventsPublished.WithLabelValues(topic, result(err == nil)).Inc()
}

// RecordAPIRequest records a served HTTP request. endpoint is the route
// pattern, not the raw path, to bound label cardinality.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
