// Package metrics provides Prometheus metrics for the VeriCase backend
// (RED plus security-subsystem counters). Scrapeable at /metrics; dashboards
// and runbooks rely on these names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "veriscase"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "path"},
	)

	// AuditEntriesTotal counts audit log writes by outcome.
	AuditEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Total number of audit log entries written, by outcome.",
		},
		[]string{"outcome"}, // written | dropped
	)

	// SecurityEventsTotal counts recorded security events by type.
	SecurityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Total number of security events recorded, by event type.",
		},
		[]string{"event_type"},
	)

	// RateLimitExceededTotal counts 429 responses by limiter tier.
	RateLimitExceededTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_exceeded_total",
			Help:      "Total number of requests rejected by the rate limiter, by tier.",
		},
		[]string{"tier"}, // global | auth | sensitive
	)

	// KillSwitchActive is 1 while the emergency kill switch is engaged.
	KillSwitchActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "kill_switch_active",
			Help:      "Whether the emergency kill switch is currently active (0 or 1).",
		},
	)

	// WebSocketConnectionsActive is current number of event-stream clients.
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Number of active security event stream connections.",
		},
	)
)
