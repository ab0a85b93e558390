package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Gate metrics
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Total number of gate stage decisions",
		},
		[]string{"stage", "outcome"}, // outcome: continue/redirect/error
	)

	authJWTValidatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_jwt_validated_total",
			Help: "Total number of JWT validations",
		},
		[]string{"status"}, // status: success/invalid/expired/revoked/unknown_role
	)

	authRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Total number of token refresh attempts",
		},
		[]string{"status"}, // status: success/failure/shared/cached
	)

	authRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_refresh_duration_seconds",
			Help:    "Token refresh call duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	featureFlagChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_flag_checks_total",
			Help: "Total number of feature flag checks",
		},
		[]string{"flag", "result"}, // result: enabled/disabled/error/cached
	)
)

// RecordHTTPRequest records a served HTTP request
func RecordHTTPRequest(method, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, status).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordGateDecision records the outcome of a gate stage
func RecordGateDecision(stage, outcome string) {
	gateDecisionsTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordJWTValidation records a JWT validation metric
func RecordJWTValidation(status string) {
	authJWTValidatedTotal.WithLabelValues(status).Inc()
}

// RecordRefresh records a refresh attempt and its duration
func RecordRefresh(status string, duration time.Duration) {
	authRefreshTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		authRefreshDuration.Observe(duration.Seconds())
	}
}

// RecordFlagCheck records a feature flag check
func RecordFlagCheck(flag, result string) {
	featureFlagChecksTotal.WithLabelValues(flag, result).Inc()
}
