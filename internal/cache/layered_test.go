package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/errors"
	"github.com/hostgate/domain-proxy/internal/ratelimit"
	"github.com/hostgate/domain-proxy/internal/store"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

func testLogger() *logger.Logger {
	log, _ := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	return log
}

// openWriter builds an adaptive writer whose schedule never skips, so
// tests exercise suppression in isolation.
func openWriter(kv store.KV) *ratelimit.Writer {
	return ratelimit.NewWriter(kv, domain.RateWriterConfig{
		BaseInterval:      0,
		MinInterval:       0,
		MaxInterval:       time.Nanosecond,
		TargetDailyWrites: 1 << 30,
	}, testLogger())
}

func newTestLayered(mem *store.Memory) *Layered {
	return NewLayered(mem, openWriter(mem), domain.CacheConfig{
		TTL:    time.Hour,
		Prefix: store.KeyPrefixRoute,
	}, "route", testLogger())
}

func TestLayeredWriteSuppression(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestLayered(mem)

	committed, err := c.Put(ctx, "pay.example/", []byte(`{"target":"a"}`))
	require.NoError(t, err)
	assert.True(t, committed)
	require.Equal(t, 1, mem.PutCount())

	// Byte-identical value: the persistent put must be suppressed.
	committed, err = c.Put(ctx, "pay.example/", []byte(`{"target":"a"}`))
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, 1, mem.PutCount(), "unchanged content must never reach the store")

	// Changed value writes again.
	committed, err = c.Put(ctx, "pay.example/", []byte(`{"target":"b"}`))
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, 2, mem.PutCount())
}

func TestLayeredSuppressionAgainstPersistedValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := store.NewMemory()

	// Seed the persistent tier directly, as a previous process would have.
	require.NoError(t, mem.Put(ctx, store.KeyPrefixRoute+"docs.example/", []byte(`{"target":"a"}`), 0))
	baseline := mem.PutCount()

	c := newTestLayered(mem)

	// A fresh process has no memory marker; the put must still recognize
	// the persisted serialization and skip.
	committed, err := c.Put(ctx, "docs.example/", []byte(`{"target":"a"}`))
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, baseline, mem.PutCount())
}

func TestLayeredReadThroughBackfill(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Put(ctx, store.KeyPrefixRoute+"docs.example/", []byte(`{"v":1}`), 0))

	c := newTestLayered(mem)

	data, err := c.Get(ctx, "docs.example/")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), data)
	assert.Equal(t, 1, c.Len(), "persistent hit must backfill the memory tier")
}

func TestLayeredCorruptionRaises(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Put(ctx, store.KeyPrefixRoute+"bad.example/", []byte(`not json at all`), 0))

	c := newTestLayered(mem)

	_, err := GetJSON[domain.RouteEntry](ctx, c, "bad.example/")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCacheCorrupt, errors.GetErrorCode(err))
}

func TestLayeredClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := store.NewMemory()
	c := newTestLayered(mem)

	_, err := c.Put(ctx, "a.example/", []byte(`{"v":1}`))
	require.NoError(t, err)
	_, err = c.Put(ctx, "b.example/", []byte(`{"v":2}`))
	require.NoError(t, err)

	removed, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	data, err := c.Get(ctx, "a.example/")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRoutesRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := store.NewMemory()
	routes := NewRoutes(newTestLayered(mem))

	entry := &domain.RouteEntry{
		TargetURL:   "https://pay.pages.example",
		ServiceType: domain.ServiceType{Subject: domain.SubjectHost, Availability: domain.AvailabilityBoth},
		ResolvedAt:  time.Now().UTC().Truncate(time.Second),
	}

	_, err := routes.PutRoute(ctx, "PAY.Example", "/checkout", entry)
	require.NoError(t, err)

	// Host lookup is case-insensitive via key normalization.
	got, err := routes.GetRoute(ctx, "pay.example", "/checkout")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.TargetURL, got.TargetURL)
	assert.Equal(t, entry.ServiceType, got.ServiceType)

	// Empty path defaults to "/" and is a distinct key.
	got, err = routes.GetRoute(ctx, "pay.example", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, routes.Invalidate(ctx, "pay.example", "/checkout"))
	got, err = routes.GetRoute(ctx, "pay.example", "/checkout")
	require.NoError(t, err)
	assert.Nil(t, got)
}
