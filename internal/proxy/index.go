package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hostgate/domain-proxy/internal/domain"
)

// maxSnapshotBytes bounds how large an entry document may be to qualify
// as a last-known-good snapshot.
const maxSnapshotBytes = 2 << 20

// ServeIndex handles entry-document requests with the full fallback
// chain: primary, then secondary, then the last-known-good snapshot,
// then a static placeholder. The home page never surfaces a hard error
// while any fallback is available.
func (rt *Router) ServeIndex(w http.ResponseWriter, r *http.Request, st domain.ServiceType) {
	host := domain.NormalizeHost(r.Host)
	log := rt.logger.RequestLogger(r.Method, host, r.URL.Path)

	name := rt.engine.RoutingName(host)

	for _, backend := range orderedBackends(st) {
		if rt.breaker.IsOpen(host, backend) {
			log.WithField("backend", backend.String()).Debug("Skipping known-bad backend for index attempt")
			continue
		}

		body, header, ok := rt.attemptIndex(r.Context(), backend, name)
		if !ok {
			rt.breaker.RecordFailure(host, backend)
			log.WithField("backend", backend.String()).Warn("Index attempt failed, falling back")
			continue
		}

		rt.breaker.RecordSuccess(host, backend)

		copyHeaders(w.Header(), header)
		w.WriteHeader(http.StatusOK)
		w.Write(body)

		// Persist the snapshot out of band; a failure here never changes
		// the response already streamed.
		go rt.persistSnapshot(host, body)
		return
	}

	rt.serveSnapshotOrPlaceholder(w, r, host)
}

// attemptIndex fetches one backend's entry document. Success requires a
// 2xx status and a markup content type within the attempt timeout.
func (rt *Router) attemptIndex(parent context.Context, backend domain.Backend, name string) ([]byte, http.Header, bool) {
	ctx, cancel := rt.attemptCtx(parent)
	defer cancel()

	url := rt.engine.BaseURL(backend, name) + "/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, false
	}
	req.Header.Set("User-Agent", "domain-proxy/1.0")

	resp, err := rt.client.Do(req)
	if err != nil {
		return nil, nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp)
		return nil, nil, false
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		drain(resp)
		return nil, nil, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, nil, false
	}

	header := make(http.Header)
	header.Set("Content-Type", contentType)
	return body, header, true
}

// persistSnapshot stores the freshly served entry document as the
// last-known-good copy for host. Best effort only.
func (rt *Router) persistSnapshot(host string, body []byte) {
	timeout := 10 * rt.config.AttemptTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := rt.snapshots.Put(ctx, host, body); err != nil {
		rt.logger.WithError(err).WithField("host", host).Warn("Failed to persist last-known-good snapshot")
	}
}

// serveSnapshotOrPlaceholder is the terminal fallback: the persisted
// last-known-good document when one exists, the static placeholder
// otherwise. Both answer 200.
func (rt *Router) serveSnapshotOrPlaceholder(w http.ResponseWriter, r *http.Request, host string) {
	snapshot, err := rt.snapshots.Get(r.Context(), host)
	if err != nil {
		rt.logger.WithError(err).WithField("host", host).Warn("Failed to read last-known-good snapshot")
		snapshot = nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if snapshot != nil {
		w.Header().Set("X-Served-From", "last-known-good")
		w.WriteHeader(http.StatusOK)
		w.Write(snapshot)
		return
	}

	w.Header().Set("X-Served-From", "placeholder")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, bytes.NewReader(placeholderHTML))
}

// placeholderHTML is the minimal static entry document served when every
// backend and the snapshot store have failed.
var placeholderHTML = []byte(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Temporarily unavailable</title>
<style>
body { font-family: system-ui, sans-serif; margin: 20vh auto; max-width: 32rem; text-align: center; color: #333; }
p { color: #666; }
</style>
</head>
<body>
<h1>We&rsquo;ll be right back</h1>
<p>This site is briefly unavailable. Please try again in a few minutes.</p>
</body>
</html>
`)
