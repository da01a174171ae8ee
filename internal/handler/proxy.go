// Package handler exposes the proxy's HTTP surface: the catch-all front
// door, the health endpoint and the admin cache-purge API.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hostgate/domain-proxy/internal/cache"
	"github.com/hostgate/domain-proxy/internal/coalesce"
	"github.com/hostgate/domain-proxy/internal/discovery"
	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/errors"
	"github.com/hostgate/domain-proxy/internal/proxy"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// CacheDirectiveHeader carries a per-request cache directive from the
// surrounding HTTP layer: refresh, clear or clear-all.
const CacheDirectiveHeader = "X-Cache-Directive"

const (
	directiveRefresh  = "refresh"
	directiveClear    = "clear"
	directiveClearAll = "clear-all"
)

// ProxyHandler is the front door: it reduces the inbound hostname to a
// lookup key, consults the route cache, coalesces discovery on misses
// and hands the classified request to the resilient router.
type ProxyHandler struct {
	routes   *cache.Routes
	engine   *discovery.Engine
	router   *proxy.Router
	inflight *coalesce.Group[domain.ServiceType]
	logger   *logger.Logger
}

// NewProxyHandler creates the front-door handler.
func NewProxyHandler(routes *cache.Routes, engine *discovery.Engine, router *proxy.Router, log *logger.Logger) *ProxyHandler {
	return &ProxyHandler{
		routes:   routes,
		engine:   engine,
		router:   router,
		inflight: coalesce.New[domain.ServiceType](),
		logger:   log,
	}
}

// ServeHTTP handles incoming HTTP requests
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := domain.NormalizeHost(r.Host)
	path := r.URL.Path
	log := h.logger.RequestLogger(r.Method, host, path)

	if host == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	switch strings.ToLower(r.Header.Get(CacheDirectiveHeader)) {
	case directiveClear:
		if err := h.routes.Invalidate(r.Context(), host, path); err != nil {
			log.WithError(err).Warn("Route invalidation failed")
		}
	case directiveClearAll:
		if _, err := h.routes.Clear(r.Context()); err != nil {
			log.WithError(err).Warn("Route cache clear failed")
		}
	}

	st, err := h.lookup(r.Context(), host, path, r.Header.Get(CacheDirectiveHeader))
	if err != nil {
		log.WithError(err).Error("Discovery failed")
		http.Error(w, http.StatusText(errors.GetHTTPStatusCode(err)), errors.GetHTTPStatusCode(err))
		return
	}

	if isIndexPath(path) {
		h.router.ServeIndex(w, r, st)
		return
	}
	h.router.Route(w, r, st)
}

// lookup returns the service type for host+path, from cache when the
// entry is trustworthy, otherwise through a coalesced discovery run.
func (h *ProxyHandler) lookup(ctx context.Context, host, path, directive string) (domain.ServiceType, error) {
	refresh := strings.EqualFold(directive, directiveRefresh)

	if !refresh {
		entry, err := h.routes.GetRoute(ctx, host, path)
		if err != nil {
			return domain.ServiceType{}, err
		}
		if entry != nil && h.trustworthy(host, entry) {
			return entry.ServiceType, nil
		}
	}

	key := domain.LookupKey(host, path)
	st, shared, err := h.inflight.Do(key, func() (domain.ServiceType, error) {
		// The run is shared by every coalesced caller, so it must not
		// inherit the leader request's context: a client disconnect
		// mid-probe would classify a healthy host as gone and cache
		// that for the full route TTL.
		dctx, cancel := context.WithTimeout(context.Background(), h.resolveTimeout())
		defer cancel()

		resolved, err := h.engine.Resolve(dctx, host)
		if err != nil {
			return domain.ServiceType{}, err
		}
		h.store(dctx, host, path, resolved)
		return resolved, nil
	})
	if err != nil {
		return domain.ServiceType{}, err
	}
	if shared {
		h.logger.WithField("key", key).Debug("Discovery coalesced with in-flight run")
	}
	return st, nil
}

// resolveTimeout bounds a detached discovery run. Probes and the
// manifest fetch each carry the engine's probe timeout, so twice that
// covers a full run with slack.
func (h *ProxyHandler) resolveTimeout() time.Duration {
	if t := h.engine.ProbeTimeout(); t > 0 {
		return 2 * t
	}
	return 30 * time.Second
}

// trustworthy applies cache healing: a cached route for a deployable
// unit is only trusted when its target still embeds the unit name the
// current grammar resolves the hostname to.
func (h *ProxyHandler) trustworthy(host string, entry *domain.RouteEntry) bool {
	if entry.ServiceType.Subject != domain.SubjectPlugin {
		return true
	}
	expected := h.engine.RoutingName(host)
	if expected == "" || strings.Contains(entry.TargetURL, expected) {
		return true
	}
	h.logger.WithField("host", host).
		WithField("expected_unit", expected).
		Info("Discarding stale cached route for renamed unit")
	return false
}

// store writes the freshly resolved route through the suppressing cache.
func (h *ProxyHandler) store(ctx context.Context, host, path string, st domain.ServiceType) {
	entry := &domain.RouteEntry{
		ServiceType: st,
		ResolvedAt:  time.Now().UTC(),
	}
	if !st.IsNone() {
		entry.TargetURL = h.engine.BaseURL(firstBackend(st), h.engine.RoutingName(host))
	}

	if _, err := h.routes.PutRoute(ctx, host, path, entry); err != nil {
		h.logger.WithError(err).WithField("host", host).Warn("Route cache write failed")
	}
}

// firstBackend picks the preferred backend for a non-none availability.
func firstBackend(st domain.ServiceType) domain.Backend {
	if st.HasPrimary() {
		return domain.BackendPrimary
	}
	return domain.BackendSecondary
}

// isIndexPath reports whether the request targets the entry document.
func isIndexPath(path string) bool {
	return path == "" || path == "/"
}
