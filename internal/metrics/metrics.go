// Package metrics exposes the Prometheus collectors for HTTP traffic and auth events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fintrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LoginsTotal counts completed OAuth callbacks by provider and result.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_auth_logins_total",
			Help: "OAuth login attempts by provider and result",
		},
		[]string{"provider", "result"},
	)

	// TokenVerificationsTotal counts access-token verifications by outcome
	// (valid, invalid_signature, expired, malformed, wrong_kind, session_not_found, error).
	TokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_auth_token_verifications_total",
			Help: "Access token verifications by result",
		},
		[]string{"result"},
	)

	// SessionsIssuedTotal counts session rows created at token issuance.
	SessionsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_auth_sessions_issued_total",
			Help: "Sessions created by token issuance",
		},
	)

	// SessionsRevokedTotal counts deleted sessions by reason (logout, logout_all, admin).
	SessionsRevokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fintrack_auth_sessions_revoked_total",
			Help: "Sessions revoked by reason",
		},
		[]string{"reason"},
	)

	// SessionsSweptTotal counts expired sessions removed by the sweeper.
	SessionsSweptTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fintrack_auth_sessions_swept_total",
			Help: "Expired sessions removed by the periodic sweep",
		},
	)
)
