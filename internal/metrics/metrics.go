// Package metrics регистрирует счётчики Prometheus сервиса.
// Экспортируются через /metrics (promhttp.Handler).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки decision для решений лимитера.
const (
	DecisionAllowed  = "allowed"
	DecisionRejected = "rejected"
	// Хранилище недоступно, решение принято по политике fail-open / fail-closed.
	DecisionStoreErrorAllowed  = "store_error_allowed"
	DecisionStoreErrorRejected = "store_error_rejected"
)

var (
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_stories",
		Name:      "ratelimit_decisions_total",
		Help:      "Rate limiter decisions by action and outcome.",
	}, []string{"action", "decision"})

	EntitlementDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_stories",
		Name:      "entitlement_denials_total",
		Help:      "Requests denied by quota or subscription checks.",
	}, []string{"action"})

	LedgerAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "social_stories",
		Name:      "ledger_append_failures_total",
		Help:      "Admin mutations rolled back because the activity entry could not be written.",
	})

	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_stories",
		Name:      "auth_failures_total",
		Help:      "Rejected logins and token checks.",
	}, []string{"reason"})

	SweeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_stories",
		Name:      "sweeper_runs_total",
		Help:      "Cleanup task executions by task and result.",
	}, []string{"task", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "social_stories",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "social_stories",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
