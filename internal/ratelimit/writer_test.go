package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/store"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

func testLogger() *logger.Logger {
	log, _ := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	return log
}

func testWriterConfig() domain.RateWriterConfig {
	return domain.RateWriterConfig{
		BaseInterval:      10 * time.Second,
		MinInterval:       2 * time.Second,
		MaxInterval:       30 * time.Second,
		TargetDailyWrites: 900,
	}
}

func TestWriterCommitsFirstWrite(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	w := NewWriter(mem, testWriterConfig(), testLogger())

	committed, err := w.Write(context.Background(), "k", []byte("v"), 0, "route")
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, 1, mem.PutCount())
}

func TestWriterSkipsBelowInterval(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	w := NewWriter(mem, testWriterConfig(), testLogger())

	current := time.Now()
	w.now = func() time.Time { return current }

	committed, err := w.Write(context.Background(), "k", []byte("v"), 0, "route")
	require.NoError(t, err)
	require.True(t, committed)

	// One second later is well inside every possible interval.
	current = current.Add(time.Second)

	committed, err = w.Write(context.Background(), "k", []byte("v2"), 0, "route")
	require.NoError(t, err)
	assert.False(t, committed, "write inside the interval must be skipped, not blocked")
	assert.Equal(t, 1, mem.PutCount())
}

func TestWriterClassesAreIndependent(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	w := NewWriter(mem, testWriterConfig(), testLogger())

	current := time.Now()
	w.now = func() time.Time { return current }

	committed, err := w.Write(context.Background(), "k1", []byte("v"), 0, "route")
	require.NoError(t, err)
	require.True(t, committed)

	committed, err = w.Write(context.Background(), "k2", []byte("v"), 0, "snapshot")
	require.NoError(t, err)
	assert.True(t, committed, "a fresh class has no last-write timestamp")
}

func TestWriterIntervalClampedAtMax(t *testing.T) {
	t.Parallel()

	cfg := testWriterConfig()
	w := NewWriter(store.NewMemory(), cfg, testLogger())

	// Noon, with observed writes far beyond the linear expectation.
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	noon := dayStart.Add(12 * time.Hour)
	w.now = func() time.Time { return noon }

	w.mu.Lock()
	w.dayStart = dayStart
	w.writesDay = cfg.TargetDailyWrites * 10
	interval := w.intervalLocked(noon)
	w.mu.Unlock()

	assert.Equal(t, cfg.MaxInterval, interval, "extreme overshoot must clamp to MaxInterval")
}

func TestWriterIntervalClampedAtMin(t *testing.T) {
	t.Parallel()

	cfg := testWriterConfig()
	cfg.BaseInterval = 2 * time.Second
	cfg.MinInterval = 2 * time.Second
	w := NewWriter(store.NewMemory(), cfg, testLogger())

	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	noon := dayStart.Add(12 * time.Hour)
	w.now = func() time.Time { return noon }

	// No writes yet: ratio 0 scales the base down, then the floor applies.
	w.mu.Lock()
	w.dayStart = dayStart
	w.writesDay = 0
	interval := w.intervalLocked(noon)
	w.mu.Unlock()

	assert.Equal(t, cfg.MinInterval, interval)
}

func TestWriterMultiplierBands(t *testing.T) {
	t.Parallel()

	cfg := domain.RateWriterConfig{
		BaseInterval:      10 * time.Second,
		MinInterval:       time.Second,
		MaxInterval:       10 * time.Minute,
		TargetDailyWrites: 1000,
	}
	w := NewWriter(store.NewMemory(), cfg, testLogger())

	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	noon := dayStart.Add(12 * time.Hour) // expected at noon: 500 writes
	w.now = func() time.Time { return noon }

	cases := []struct {
		observed int
		want     time.Duration
	}{
		{observed: 800, want: 40 * time.Second}, // ratio 1.6 -> x4
		{observed: 650, want: 25 * time.Second}, // ratio 1.3 -> x2.5
		{observed: 550, want: 15 * time.Second}, // ratio 1.1 -> x1.5
		{observed: 450, want: 10 * time.Second}, // ratio 0.9 -> x1
		{observed: 300, want: 9 * time.Second},  // ratio 0.6 -> x0.9
		{observed: 100, want: 7 * time.Second},  // ratio 0.2 -> x0.7
	}

	for _, tc := range cases {
		w.mu.Lock()
		w.dayStart = dayStart
		w.writesDay = tc.observed
		got := w.intervalLocked(noon)
		w.mu.Unlock()

		assert.Equal(t, tc.want, got, "observed=%d", tc.observed)
	}
}

func TestWriterDayRollover(t *testing.T) {
	t.Parallel()

	w := NewWriter(store.NewMemory(), testWriterConfig(), testLogger())

	current := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return current }

	_, err := w.Write(context.Background(), "k", []byte("v"), 0, "route")
	require.NoError(t, err)
	assert.Equal(t, 1, w.ObservedWrites())

	current = current.Add(2 * time.Minute)
	assert.Equal(t, 0, w.ObservedWrites(), "counter must reset at the UTC day boundary")
}
