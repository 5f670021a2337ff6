package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"railshunt/internal/buildinfo"
	"railshunt/internal/metrics"
)

// DebugInfoHandler answers GET /debug/info with build and effective
// runtime configuration, the way the teacher's internal/api/debug.go
// exposes process metadata to operators.
func (s *Server) DebugInfoHandler(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Info()
	writeJSON(w, http.StatusOK, map[string]any{
		"build": info,
		"runtime": map[string]any{
			"port":          s.Runtime.Port,
			"poolSize":      s.Runtime.PoolSize,
			"rateRPS":       s.Runtime.RateRPS,
			"rateBurst":     s.Runtime.RateBurst,
			"defaultPolicy": s.Runtime.DefaultPolicy,
		},
	})
}

// MetricsHandler serves Prometheus text exposition from the dedicated
// registry, called once from cmd/api/main.go's mux wiring.
func MetricsHandler() http.Handler {
	metrics.RegisterDefault()
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
