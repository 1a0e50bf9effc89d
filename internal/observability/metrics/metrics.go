package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "droplog_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "droplog_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	gatewayOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "droplog_gateway_operations_total",
		Help: "Namespace gateway operations by operation and result",
	}, []string{"operation", "result"})

	storeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "droplog_store_operation_duration_seconds",
		Help:    "Duration of tenant store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "droplog_store_breaker_state",
		Help: "Tenant store circuit breaker state (0 closed, 1 open, 2 half-open)",
	})

	janitorRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "droplog_janitor_removed_files_total",
		Help: "Stale temp log files removed by the janitor",
	})
)

// ObserveHTTPRequest records an HTTP request metric. route is the mux
// pattern, not the raw path, so namespace ids do not explode cardinality.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveOperation counts a gateway operation outcome
func ObserveOperation(operation, result string) {
	gatewayOperations.WithLabelValues(operation, result).Inc()
}

// ObserveStore records how long a store call took
func ObserveStore(operation string, duration time.Duration) {
	storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetBreakerState publishes the store breaker state
func SetBreakerState(state int) {
	breakerState.Set(float64(state))
}

// AddJanitorRemoved counts files swept by the janitor
func AddJanitorRemoved(n int) {
	if n > 0 {
		janitorRemoved.Add(float64(n))
	}
}
