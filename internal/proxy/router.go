// Package proxy forwards classified requests to backend targets with
// fallback chains that keep the entry document serving through backend
// outages.
package proxy

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hostgate/domain-proxy/internal/breaker"
	"github.com/hostgate/domain-proxy/internal/cache"
	"github.com/hostgate/domain-proxy/internal/discovery"
	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/errors"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// hop-by-hop headers are stripped when relaying backend responses.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Router is the resilient proxy: single-backend service types forward
// directly, "both" types fail over from primary to secondary on a 404 or
// a connection failure, and entry-document requests run the
// last-known-good fallback chain.
type Router struct {
	engine    *discovery.Engine
	breaker   *breaker.Breaker
	snapshots *cache.Layered
	client    *http.Client
	config    domain.IndexConfig
	logger    *logger.Logger
}

// NewRouter creates a router forwarding through a dedicated client.
func NewRouter(engine *discovery.Engine, brk *breaker.Breaker, snapshots *cache.Layered, config domain.IndexConfig, timeout time.Duration, log *logger.Logger) *Router {
	return &Router{
		engine:    engine,
		breaker:   brk,
		snapshots: snapshots,
		client: &http.Client{
			Timeout: timeout,
			// Redirects relay to the client untouched.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		config: config,
		logger: log.RouterLogger(),
	}
}

// Route forwards a non-index request according to its service type. A
// "none" type returns a plain 404; "both" types retry the secondary once
// when the primary alone answers 404.
func (rt *Router) Route(w http.ResponseWriter, r *http.Request, st domain.ServiceType) {
	host := domain.NormalizeHost(r.Host)
	log := rt.logger.RequestLogger(r.Method, host, r.URL.Path)

	if st.IsNone() {
		http.NotFound(w, r)
		return
	}

	name := rt.engine.RoutingName(host)
	backends := orderedBackends(st)

	for i, backend := range backends {
		last := i == len(backends)-1

		if rt.breaker.IsOpen(host, backend) && !last {
			log.WithField("backend", backend.String()).Debug("Skipping known-bad backend")
			continue
		}

		resp, err := rt.forward(r, backend, name)
		if err != nil {
			rt.breaker.RecordFailure(host, backend)
			log.WithError(err).WithField("backend", backend.String()).Warn("Backend request failed")
			if last {
				perr := errors.NewNoBackendError(host)
				http.Error(w, perr.Message, perr.HTTPStatusCode())
				return
			}
			continue
		}

		// A 404 from the primary of a "both" type is the one status that
		// triggers the secondary; every other status passes through.
		if resp.StatusCode == http.StatusNotFound && !last && canRetry(r) {
			drain(resp)
			log.WithField("backend", backend.String()).Debug("Primary answered 404, retrying secondary")
			continue
		}

		rt.breaker.RecordSuccess(host, backend)
		relay(w, resp)
		return
	}

	http.NotFound(w, r)
}

// forward sends a copy of r to the backend's conventional URL.
func (rt *Router) forward(r *http.Request, backend domain.Backend, name string) (*http.Response, error) {
	target := rt.engine.BaseURL(backend, name) + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	copyHeaders(out.Header, r.Header)
	out.Header.Set("X-Forwarded-Host", r.Host)
	out.Header.Set("X-Forwarded-By", "domain-proxy/1.0")

	return rt.client.Do(out)
}

// canRetry reports whether the request may be re-sent to another backend.
// Requests with a consumed body cannot be replayed.
func canRetry(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead || r.Body == nil || r.Body == http.NoBody
}

// orderedBackends lists the fallback order for a service type, primary
// first.
func orderedBackends(st domain.ServiceType) []domain.Backend {
	switch st.Availability {
	case domain.AvailabilityBoth:
		return []domain.Backend{domain.BackendPrimary, domain.BackendSecondary}
	case domain.AvailabilityPrimary:
		return []domain.Backend{domain.BackendPrimary}
	case domain.AvailabilitySecondary:
		return []domain.Backend{domain.BackendSecondary}
	default:
		return nil
	}
}

// relay copies a backend response to the client.
func relay(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()

	for _, h := range hopHeaders {
		resp.Header.Del(h)
	}
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// drain discards a response body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

// attemptCtx builds the per-attempt timeout context for index fallbacks.
func (rt *Router) attemptCtx(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := rt.config.AttemptTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}
