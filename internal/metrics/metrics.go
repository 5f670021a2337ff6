// Package metrics exposes the process's Prometheus registry, grounded on
// the teacher's internal/metrics package (same dedicated-Registry,
// regOnce idiom), re-pointed at solve-request metrics instead of HTTP
// order/webhook metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolveDuration tracks /solve wall-clock time by acceptance policy.
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solve_duration_seconds", Help: "Solve wall-clock duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"policy"},
	)
	// SolveIterations tracks the number of local-search iterations a
	// /solve call ran, by acceptance policy.
	SolveIterations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solve_iterations", Help: "Local-search iterations per solve.", Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500}},
		[]string{"policy"},
	)
	// CirculationRetries counts how often a vehicle type's circulation
	// had to relax lower bounds and retry (§7's CirculationInfeasible
	// policy).
	CirculationRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "circulation_retries_total", Help: "Circulation solves that relaxed lower bounds and retried."},
		[]string{"reason"},
	)
	// CacheResults counts result-cache hits and misses.
	CacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solve_cache_results_total", Help: "Result cache hits and misses on /solve."},
		[]string{"result"},
	)
)

// RegisterDefault registers collectors to Registry, once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(SolveIterations)
		Registry.MustRegister(CirculationRetries)
		Registry.MustRegister(CacheResults)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
