// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the ecotrade marketplace.
package observability

import "github.com/prometheus/client_golang/prometheus"

// HTTPBuckets defines histogram buckets suited for CRUD request latencies,
// ranging from 5ms to 10s.
var HTTPBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method, route pattern, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecotrade_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route pattern.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecotrade_request_duration_seconds",
			Help:    "Request duration",
			Buckets: HTTPBuckets,
		},
		[]string{"method", "route"},
	)

	// InFlightRequests tracks the number of requests currently being served.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecotrade_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// AuthAttemptsTotal counts authentication outcomes: "authenticated",
	// "anonymous", or the verification failure reason.
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecotrade_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"result"},
	)

	// RegistrationsTotal counts identity reconciliations by outcome
	// ("created", "existing", "failed").
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecotrade_registrations_total",
			Help: "Identity registrations",
		},
		[]string{"outcome"},
	)

	// ProductOperationsTotal counts product mutations by operation and outcome.
	ProductOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecotrade_product_operations_total",
			Help: "Product mutations",
		},
		[]string{"operation", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InFlightRequests,
		AuthAttemptsTotal,
		RegistrationsTotal,
		ProductOperationsTotal,
	)
}
