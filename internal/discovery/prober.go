package discovery

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hostgate/domain-proxy/pkg/logger"
)

// probeResult is the outcome of one existence probe.
type probeResult struct {
	exists bool
	// transportFailure marks network errors, DNS failures and timeouts -
	// conditions the circuit breaker should count, as opposed to an
	// orderly "not here" answer.
	transportFailure bool
}

// Prober issues lightweight existence probes against backend URLs.
type Prober struct {
	client *http.Client
	logger *logger.Logger
}

// NewProber creates a prober with a dedicated client and short timeout.
func NewProber(timeout time.Duration, log *logger.Logger) *Prober {
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  true,
				MaxIdleConnsPerHost: 2,
			},
		},
		logger: log.DiscoveryLogger(),
	}
}

// Exists probes url with a HEAD request. The acceptance window is
// 2xx/3xx/401/403 - auth-gated or redirecting content still exists. A 405
// falls back to a single GET probe judged by the same window. Network
// errors, DNS failures and timeouts are non-existence, never errors.
func (p *Prober) Exists(ctx context.Context, url string) probeResult {
	res := p.probe(ctx, http.MethodHead, url)
	if res.retryAsGet {
		res = p.probe(ctx, http.MethodGet, url)
	}
	return probeResult{exists: res.exists, transportFailure: res.transportFailure}
}

type probeAttempt struct {
	exists           bool
	transportFailure bool
	retryAsGet       bool
}

func (p *Prober) probe(ctx context.Context, method, url string) probeAttempt {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		p.logger.WithError(err).WithField("url", url).Warn("Failed to build probe request")
		return probeAttempt{}
	}
	req.Header.Set("User-Agent", "domain-proxy-probe/1.0")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.WithError(err).
			WithField("url", url).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Debug("Probe request failed")
		return probeAttempt{transportFailure: true}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	p.logger.WithField("url", url).
		WithField("method", method).
		WithField("status_code", resp.StatusCode).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("Probe request completed")

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		return probeAttempt{exists: true}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return probeAttempt{exists: true}
	case resp.StatusCode == http.StatusMethodNotAllowed && method == http.MethodHead:
		return probeAttempt{retryAsGet: true}
	default:
		return probeAttempt{}
	}
}
