// Package breaker tracks per-target failure state so discovery and the
// router stop probing backends that are known to be failing.
package breaker

import (
	"sync"
	"time"

	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// state is the failure bookkeeping for one (target, backend) pair.
type state struct {
	failureCount  int
	lastFailureAt time.Time
	openUntil     time.Time
}

// Breaker is a per (target-identity, backend) circuit breaker. It opens
// after FailureThreshold consecutive failures inside the sliding Window
// and stays open for OpenDuration. There is no half-open state: the first
// attempt after the cool-down is a normal attempt, and a failure re-opens
// immediately. A single success clears the pair's state entirely.
type Breaker struct {
	config domain.BreakerConfig
	logger *logger.Logger

	mu     sync.Mutex
	states map[string]*state

	now func() time.Time
}

// New creates a circuit breaker with the given thresholds.
func New(config domain.BreakerConfig, log *logger.Logger) *Breaker {
	return &Breaker{
		config: config,
		logger: log.BreakerLogger(),
		states: make(map[string]*state),
		now:    time.Now,
	}
}

// IsOpen reports whether attempts against (target, backend) are currently
// blocked.
func (b *Breaker) IsOpen(target string, backend domain.Backend) bool {
	if !b.config.Enabled {
		return false
	}

	key := domain.BreakerKey(target, backend)

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[key]
	if !ok || s.openUntil.IsZero() {
		return false
	}

	if b.now().After(s.openUntil) {
		// Cool-down elapsed; keep the failure history inside the window
		// but allow the next attempt.
		s.openUntil = time.Time{}
		return false
	}
	return true
}

// RecordFailure notes a failed attempt against (target, backend), opening
// the breaker once the threshold is reached within the window.
func (b *Breaker) RecordFailure(target string, backend domain.Backend) {
	if !b.config.Enabled {
		return
	}

	key := domain.BreakerKey(target, backend)
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[key]
	if !ok {
		s = &state{}
		b.states[key] = s
	}

	// Failures outside the sliding window restart the count.
	if !s.lastFailureAt.IsZero() && now.Sub(s.lastFailureAt) > b.config.Window {
		s.failureCount = 0
	}

	s.failureCount++
	s.lastFailureAt = now

	if s.failureCount >= b.config.FailureThreshold {
		s.openUntil = now.Add(b.config.OpenDuration)
		b.logger.WithField("target", key).
			WithField("failures", s.failureCount).
			WithField("open_until", s.openUntil).
			Warn("Circuit breaker opened")
	}
}

// RecordSuccess clears all state for (target, backend). The breaker is
// all-or-nothing, not a leaky bucket.
func (b *Breaker) RecordSuccess(target string, backend domain.Backend) {
	if !b.config.Enabled {
		return
	}

	key := domain.BreakerKey(target, backend)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.states[key]; ok {
		delete(b.states, key)
		b.logger.WithField("target", key).Debug("Circuit breaker state cleared on success")
	}
}

// NextAllowedAt returns when the next attempt against (target, backend)
// is permitted, or the zero time when attempts are allowed now.
func (b *Breaker) NextAllowedAt(target string, backend domain.Backend) time.Time {
	key := domain.BreakerKey(target, backend)

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[key]
	if !ok || s.openUntil.IsZero() || b.now().After(s.openUntil) {
		return time.Time{}
	}
	return s.openUntil
}

// Stats returns a snapshot of open breakers for the health surface.
func (b *Breaker) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	open := make([]string, 0)
	for key, s := range b.states {
		if !s.openUntil.IsZero() && now.Before(s.openUntil) {
			open = append(open, key)
		}
	}

	return map[string]interface{}{
		"enabled":           b.config.Enabled,
		"failure_threshold": b.config.FailureThreshold,
		"open_duration":     b.config.OpenDuration.String(),
		"window":            b.config.Window.String(),
		"tracked_targets":   len(b.states),
		"open_targets":      open,
	}
}
