// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package metrics provides Prometheus instrumentation for:
//   - API endpoint latency and throughput
//   - Token refresh outcomes per provider
//   - Sync run duration, record counts, and errors
//   - Upstream circuit breaker state
//   - WebSocket connections
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
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
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Token refresh metrics
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts",
		},
		[]string{"provider", "outcome"}, // outcome: "success" or "failure"
	)

	// Sync run metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of full sync runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SyncRecordsNew = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_new_total",
			Help: "Total number of new records stored by sync runs",
		},
		[]string{"kind"}, // cycles, sleeps, recoveries, workouts, activities
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of per-user sync failures",
		},
		[]string{"stage"}, // refresh, profile, fetch, store
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last fully attempted sync run",
		},
	)

	// Upstream provider metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of requests to upstream fitness providers",
		},
		[]string{"provider", "operation", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of connected WebSocket clients",
		},
	)

	WebSocketBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_total",
			Help: "Total number of messages broadcast to WebSocket clients",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTokenRefresh records one token refresh attempt.
func RecordTokenRefresh(provider string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	TokenRefreshes.WithLabelValues(provider, outcome).Inc()
}

// RecordSyncRun records the outcome of one orchestrator run.
func RecordSyncRun(duration time.Duration) {
	SyncDuration.Observe(duration.Seconds())
	SyncLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordProviderRequest records one upstream provider call.
func RecordProviderRequest(provider, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	ProviderRequests.WithLabelValues(provider, operation, outcome).Inc()
}
