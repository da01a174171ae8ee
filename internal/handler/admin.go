package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hostgate/domain-proxy/internal/cache"
	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// AdminHandler exposes the cache purge API: the clear and clear-all
// directives over authenticated HTTP.
type AdminHandler struct {
	routes *cache.Routes
	logger *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(routes *cache.Routes, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		routes: routes,
		logger: log,
	}
}

// purgeRequest names a single cached route to drop.
type purgeRequest struct {
	Host string `json:"host"`
	Path string `json:"path"`
}

// Clear invalidates one cached route. POST /admin/cache/clear
func (h *AdminHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Host == "" {
		http.Error(w, "host is required", http.StatusBadRequest)
		return
	}

	host := domain.NormalizeHost(req.Host)
	if err := h.routes.Invalidate(r.Context(), host, req.Path); err != nil {
		h.logger.WithError(err).WithField("host", host).Error("Cache purge failed")
		http.Error(w, "purge failed", http.StatusInternalServerError)
		return
	}

	h.logger.WithField("host", host).WithField("path", req.Path).Info("Cached route purged")
	writeJSON(w, map[string]interface{}{
		"status": "purged",
		"key":    domain.LookupKey(host, req.Path),
	})
}

// ClearAll drops every cached route. POST /admin/cache/clear-all
func (h *AdminHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	removed, err := h.routes.Clear(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Cache clear-all failed")
		http.Error(w, "purge failed", http.StatusInternalServerError)
		return
	}

	h.logger.WithField("removed", removed).Info("Route cache cleared")
	writeJSON(w, map[string]interface{}{
		"status":    "purged",
		"removed":   removed,
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
