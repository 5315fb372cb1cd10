// Package metrics defines and registers the custom Prometheus metrics of the
// health-tracker API. Every collector is registered with the default registry
// at package init through promauto and exposed on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "health_tracker"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts served requests.
// Labels:
//   - method: HTTP verb
//   - route:  matched echo route pattern (e.g. "/v1/records/:id")
//   - status: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures handler latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests from first byte to response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// ErrorsTotal counts error responses by their stable reason code
// (e.g. "TOKEN_EXPIRED", "ACCESS_DENIED", "INCONSISTENT_BMI").
var ErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of error responses, by reason code.",
	},
	[]string{"code"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// TokensIssuedTotal counts issued bearer tokens.
// Label:
//   - reason: "login", "register" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued.",
	},
	[]string{"reason"},
)

// RoleChangesTotal counts promotions and demotions.
var RoleChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_changes_total",
		Help:      "Total number of role changes, by new role.",
	},
	[]string{"role"},
)

// RoleCacheLookupsTotal counts role cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var RoleCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_cache_lookups_total",
		Help:      "Total number of role cache lookups, by result.",
	},
	[]string{"result"},
)

// ── Record metrics ────────────────────────────────────────────────────────────

// RecordWritesTotal counts successful record mutations.
// Labels:
//   - op:    "create", "update" or "delete"
//   - scope: "self", "impersonated" or "admin"
var RecordWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_writes_total",
		Help:      "Total number of health record writes.",
	},
	[]string{"op", "scope"},
)

// ── Activity log metrics ──────────────────────────────────────────────────────

// ActivityQueueDepth tracks pending audit events per dispatcher worker.
var ActivityQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "activity_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ActivityEventsTotal counts audit events by outcome.
// Label:
//   - result: "persisted", "failed" or "dropped"
var ActivityEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "activity_events_total",
		Help:      "Total number of audit events handled by the dispatcher, by result.",
	},
	[]string{"result"},
)
