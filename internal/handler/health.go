package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hostgate/domain-proxy/internal/breaker"
	"github.com/hostgate/domain-proxy/internal/cache"
	"github.com/hostgate/domain-proxy/internal/ratelimit"
)

// HealthHandler reports proxy liveness plus breaker, cache and writer
// statistics for operational checks.
type HealthHandler struct {
	startTime time.Time
	version   string
	breaker   *breaker.Breaker
	routes    *cache.Routes
	writer    *ratelimit.Writer
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, brk *breaker.Breaker, routes *cache.Routes, writer *ratelimit.Writer) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		version:   version,
		breaker:   brk,
		routes:    routes,
		writer:    writer,
	}
}

// ServeHTTP reports health status with component statistics.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC(),
		"version":         h.version,
		"uptime":          time.Since(h.startTime).String(),
		"circuit_breaker": h.breaker.Stats(),
		"rate_writer":     h.writer.Stats(),
		"route_cache": map[string]interface{}{
			"entries": h.routes.Len(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
