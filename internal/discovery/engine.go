package discovery

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hostgate/domain-proxy/internal/breaker"
	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/errors"
	"github.com/hostgate/domain-proxy/internal/ledger"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// Engine resolves hostnames to service types by probing the two candidate
// backends. Probe failures classify as non-existence and never raise;
// only configuration problems do.
type Engine struct {
	prober  *Prober
	breaker *breaker.Breaker
	ledger  *ledger.Ledger
	config  domain.ProbeConfig
	logger  *logger.Logger

	mu         sync.RWMutex
	knownUnits map[string]struct{} // nil until the first metadata sync
}

// NewEngine creates a discovery engine. Missing URL templates or plugin
// prefix are unrecoverable per-process conditions and raise immediately.
func NewEngine(config domain.ProbeConfig, prober *Prober, brk *breaker.Breaker, ldg *ledger.Ledger, log *logger.Logger) (*Engine, error) {
	if config.PrimaryURLTemplate == "" {
		return nil, errors.NewConfigError("probe.primary_url_template")
	}
	if config.SecondaryURLTemplate == "" {
		return nil, errors.NewConfigError("probe.secondary_url_template")
	}
	if config.PluginPrefix == "" {
		return nil, errors.NewConfigError("probe.plugin_prefix")
	}

	return &Engine{
		prober:  prober,
		breaker: brk,
		ledger:  ldg,
		config:  config,
		logger:  log.DiscoveryLogger(),
	}, nil
}

// RoutingName returns the name a backend URL is derived from: the
// resolved unit name for plugin hosts, the leading hostname label
// otherwise.
func (e *Engine) RoutingName(host string) string {
	host = domain.NormalizeHost(host)
	if IsPluginHost(host, e.config.PluginPrefix) {
		return ResolveUnitName(host, e.config.PluginPrefix)
	}
	label, _, _ := strings.Cut(host, ".")
	return label
}

// BaseURL expands a backend's conventional URL pattern for a routing name.
func (e *Engine) BaseURL(backend domain.Backend, name string) string {
	if backend == domain.BackendPrimary {
		return fmt.Sprintf(e.config.PrimaryURLTemplate, name)
	}
	return fmt.Sprintf(e.config.SecondaryURLTemplate, name)
}

// PluginPrefix returns the configured plugin hostname prefix.
func (e *Engine) PluginPrefix() string {
	return e.config.PluginPrefix
}

// ProbeTimeout returns the configured per-probe timeout.
func (e *Engine) ProbeTimeout() time.Duration {
	return e.config.Timeout
}

// Resolve classifies host by probing both backends in parallel. Backends
// with an open breaker are skipped and counted as non-existent for this
// round; availability is rediscovered once the breaker cools down.
func (e *Engine) Resolve(ctx context.Context, host string) (domain.ServiceType, error) {
	host = domain.NormalizeHost(host)

	if IsPluginHost(host, e.config.PluginPrefix) {
		return e.resolvePlugin(ctx, host), nil
	}
	return e.resolveHost(ctx, host), nil
}

func (e *Engine) resolveHost(ctx context.Context, host string) domain.ServiceType {
	name := e.RoutingName(host)

	onPrimary := e.probeBackend(ctx, host, domain.BackendPrimary, e.BaseURL(domain.BackendPrimary, name))
	onSecondary := e.probeBackend(ctx, host, domain.BackendSecondary, e.BaseURL(domain.BackendSecondary, name))

	st := domain.ServiceType{
		Subject:      domain.SubjectHost,
		Availability: domain.JoinAvailability(<-onPrimary, <-onSecondary),
	}

	e.logger.WithField("host", host).
		WithField("service_type", st.String()).
		Debug("Resolved host")
	return st
}

func (e *Engine) resolvePlugin(ctx context.Context, host string) domain.ServiceType {
	unit := ResolveUnitName(host, e.config.PluginPrefix)

	// When the unit metadata is synced and the unit is absent from it,
	// skip the probes entirely; the ledger keeps this set fresh.
	if !e.unitKnown(unit) {
		e.logger.WithField("host", host).
			WithField("unit", unit).
			Debug("Unit absent from synced metadata, classified none without probing")
		return domain.ServiceType{Subject: domain.SubjectPlugin, Availability: domain.AvailabilityNone}
	}

	onPrimary := e.probeManifest(ctx, unit, domain.BackendPrimary)
	onSecondary := e.probeManifest(ctx, unit, domain.BackendSecondary)

	st := domain.ServiceType{
		Subject:      domain.SubjectPlugin,
		Availability: domain.JoinAvailability(<-onPrimary, <-onSecondary),
	}

	e.logger.WithField("host", host).
		WithField("unit", unit).
		WithField("service_type", st.String()).
		Debug("Resolved plugin")
	return st
}

// probeBackend launches one existence probe, gated by the breaker.
func (e *Engine) probeBackend(ctx context.Context, target string, backend domain.Backend, probeURL string) <-chan bool {
	ch := make(chan bool, 1)

	if e.breaker.IsOpen(target, backend) {
		e.logger.WithField("target", target).
			WithField("backend", backend.String()).
			Debug("Skipping probe, breaker open")
		ch <- false
		return ch
	}

	go func() {
		res := e.prober.Exists(ctx, probeURL)
		switch {
		case res.exists:
			e.breaker.RecordSuccess(target, backend)
		case res.transportFailure:
			e.breaker.RecordFailure(target, backend)
		}
		ch <- res.exists
	}()
	return ch
}

// probeManifest launches one manifest validation probe, gated by the
// breaker. An invalid or unreachable manifest makes the unit unavailable
// on that backend; it is never an error.
func (e *Engine) probeManifest(ctx context.Context, unit string, backend domain.Backend) <-chan bool {
	ch := make(chan bool, 1)

	if e.breaker.IsOpen(unit, backend) {
		ch <- false
		return ch
	}

	go func() {
		_, err := e.prober.FetchManifest(ctx, e.BaseURL(backend, unit), e.config.ManifestPath)
		if err != nil {
			var uerr *url.Error
			if stderrors.As(err, &uerr) {
				e.breaker.RecordFailure(unit, backend)
			}
			e.logger.WithError(err).
				WithField("unit", unit).
				WithField("backend", backend.String()).
				Debug("Manifest probe classified unit unavailable")
			ch <- false
			return
		}
		e.breaker.RecordSuccess(unit, backend)
		ch <- true
	}()
	return ch
}

// SyncKnownUnits ingests the externally-sourced list of deployable unit
// base names (a JSON string array). The ledger's content hash decides
// whether anything changed; an unchanged list skips the rebuild. Returns
// whether a rebuild happened.
func (e *Engine) SyncKnownUnits(ctx context.Context, data []byte) (bool, error) {
	changed, err := e.ledger.Changed(ctx, "units", data)
	if err != nil && !errors.IsDegraded(err) {
		return false, err
	}
	if !changed {
		return false, nil
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return false, errors.NewCacheCorruptError("units", err)
	}

	units := make(map[string]struct{}, len(names))
	for _, n := range names {
		units[strings.ToLower(n)] = struct{}{}
	}

	e.mu.Lock()
	e.knownUnits = units
	e.mu.Unlock()

	if err := e.ledger.Record(ctx, "units", data); err != nil {
		e.logger.WithError(err).Warn("Failed to record unit metadata hash")
	}

	e.logger.WithField("units", len(units)).Info("Synced deployable unit metadata")
	return true, nil
}

// unitKnown reports whether the unit may exist. Before the first metadata
// sync everything may exist and probes decide.
func (e *Engine) unitKnown(unit string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.knownUnits == nil {
		return true
	}
	if _, ok := e.knownUnits[UnitBase(unit)]; ok {
		return true
	}
	// Branch-suffixed units keep the suffix verbatim, so fall back to a
	// prefix match against the known base names.
	for base := range e.knownUnits {
		if strings.HasPrefix(unit, base+"-") {
			return true
		}
	}
	return false
}
