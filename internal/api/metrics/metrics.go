// Package metrics defines all custom Prometheus metrics for the CodeXi API.
// It is the single source of truth for metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed at /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "codexi"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts credential flows by outcome.
// Labels:
//   - flow: "signup", "login", "federated", "refresh"
//   - result: "success", "invalid", "conflict", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by flow and result.",
	},
	[]string{"flow", "result"},
)

// TokenRejectionsTotal counts access tokens rejected by the auth middleware.
// Label:
//   - reason: "missing", "expired", "invalid"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of requests rejected by access token verification.",
	},
	[]string{"reason"},
)

// ── Rate limit metrics ────────────────────────────────────────────────────────

// RateLimitDecisionsTotal counts rate limiter outcomes.
// Labels:
//   - scope: the guarded operation (e.g. "login", "update-password")
//   - result: "allowed", "rejected", "error" (limiter failed, request let through)
var RateLimitDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_decisions_total",
		Help:      "Total number of rate limit checks, by scope and result.",
	},
	[]string{"scope", "result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuthEventsTotal counts audit events persisted.
// Label:
//   - kind: the event kind (e.g. "login", "refresh")
var AuthEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_events_recorded_total",
		Help:      "Total number of authentication audit events recorded.",
	},
	[]string{"kind"},
)

// AuditEventsDroppedTotal counts audit events dropped because a worker queue was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped due to a full dispatcher queue.",
	},
)

// AuditQueueDepth tracks the current number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
