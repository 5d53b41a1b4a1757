// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the pforte gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthBuckets defines histogram buckets for request latencies on the
// auth surface, from 1ms to 10s (password hashing dominates the tail).
var AuthBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pforte_request_duration_seconds",
			Help:    "Request duration",
			Buckets: AuthBuckets,
		},
		[]string{"method"},
	)

	// AuthDecisionsTotal counts identity-resolution outcomes per
	// authentication method ("yes", "no", "anonymous").
	AuthDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_auth_decisions_total",
			Help: "Authentication chain decisions",
		},
		[]string{"auth_method", "outcome"},
	)

	// LoginAttemptsTotal counts login endpoint invocations by method and
	// outcome ("success", "invalid_credentials", "disabled", "throttled").
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"auth_method", "outcome"},
	)

	// AccessDenialsTotal counts resource-access rejections by resource
	// kind ("app", "model").
	AccessDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_access_denials_total",
			Help: "Resource access denials",
		},
		[]string{"resource"},
	)

	// AdminRescueTotal counts admin-rescue activity by action
	// ("assign", "veto").
	AdminRescueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_admin_rescue_total",
			Help: "Admin rescue interventions",
		},
		[]string{"action"},
	)

	// SecretDecryptionsTotal counts startup secret decryptions by
	// outcome ("success", "failure").
	SecretDecryptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pforte_secret_decryptions_total",
			Help: "Encrypted environment value decryptions",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthDecisionsTotal,
		LoginAttemptsTotal,
		AccessDenialsTotal,
		AdminRescueTotal,
		SecretDecryptionsTotal,
	)
}
