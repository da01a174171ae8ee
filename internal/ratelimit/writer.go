// Package ratelimit smooths persistent-store writes so the process stays
// under the store's fixed daily write quota.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/store"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// Writer throttles store writes per operation class using an adaptive
// interval: a baseline scaled by how far today's observed write count sits
// from the linear daily budget, clamped to [MinInterval, MaxInterval].
// Below-interval writes are skipped and reported as uncommitted; callers
// treat a skipped write as acceptable data loss for that observation.
type Writer struct {
	kv     store.KV
	config domain.RateWriterConfig
	logger *logger.Logger

	mu        sync.Mutex
	lastWrite map[string]time.Time
	writesDay int       // committed writes since dayStart
	dayStart  time.Time // midnight UTC of the current counting day

	now func() time.Time
}

// NewWriter creates a rate-limited writer in front of kv.
func NewWriter(kv store.KV, config domain.RateWriterConfig, log *logger.Logger) *Writer {
	return &Writer{
		kv:        kv,
		config:    config,
		logger:    log.WriterLogger(),
		lastWrite: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Write commits value to the store unless the operation class wrote more
// recently than the current adaptive interval allows. The returned bool
// reports whether the write was committed; a skip is not an error.
func (w *Writer) Write(ctx context.Context, key string, value []byte, ttl time.Duration, class string) (bool, error) {
	now := w.now()

	w.mu.Lock()
	w.rollDay(now)

	interval := w.intervalLocked(now)
	if last, ok := w.lastWrite[class]; ok && now.Sub(last) < interval {
		w.mu.Unlock()
		w.logger.WithField("class", class).
			WithField("interval", interval.String()).
			Debug("Write skipped by adaptive schedule")
		return false, nil
	}

	// Mark before releasing the lock so concurrent writers in the same
	// class observe the claim; roll back on store failure.
	prev, hadPrev := w.lastWrite[class]
	w.lastWrite[class] = now
	w.writesDay++
	w.mu.Unlock()

	if err := w.kv.Put(ctx, key, value, ttl); err != nil {
		w.mu.Lock()
		if hadPrev {
			w.lastWrite[class] = prev
		} else {
			delete(w.lastWrite, class)
		}
		w.writesDay--
		w.mu.Unlock()
		return false, err
	}

	return true, nil
}

// NextAllowedAt returns when the given class may next commit a write.
func (w *Writer) NextAllowedAt(class string) time.Time {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollDay(now)

	last, ok := w.lastWrite[class]
	if !ok {
		return now
	}
	return last.Add(w.intervalLocked(now))
}

// ObservedWrites returns today's committed write count.
func (w *Writer) ObservedWrites() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollDay(w.now())
	return w.writesDay
}

// intervalLocked computes the current adaptive interval. Callers hold w.mu.
func (w *Writer) intervalLocked(now time.Time) time.Duration {
	elapsed := now.Sub(w.dayStart)
	expected := float64(w.config.TargetDailyWrites) * (elapsed.Seconds() / (24 * time.Hour).Seconds())

	var ratio float64
	if expected > 0 {
		ratio = float64(w.writesDay) / expected
	}

	multiplier := 1.0
	switch {
	case ratio > 1.5:
		multiplier = 4.0
	case ratio > 1.2:
		multiplier = 2.5
	case ratio > 1.0:
		multiplier = 1.5
	case ratio < 0.5:
		multiplier = 0.7
	case ratio < 0.8:
		multiplier = 0.9
	}

	interval := time.Duration(float64(w.config.BaseInterval) * multiplier)
	if interval < w.config.MinInterval {
		interval = w.config.MinInterval
	}
	if interval > w.config.MaxInterval {
		interval = w.config.MaxInterval
	}
	return interval
}

// rollDay resets the observed-write counter at the UTC day boundary.
// Callers hold w.mu.
func (w *Writer) rollDay(now time.Time) {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	if !dayStart.Equal(w.dayStart) {
		w.dayStart = dayStart
		w.writesDay = 0
	}
}

// Stats returns writer statistics for the health surface.
func (w *Writer) Stats() map[string]interface{} {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollDay(now)

	return map[string]interface{}{
		"observed_writes_today": w.writesDay,
		"target_daily_writes":   w.config.TargetDailyWrites,
		"current_interval":      w.intervalLocked(now).String(),
		"tracked_classes":       len(w.lastWrite),
	}
}
