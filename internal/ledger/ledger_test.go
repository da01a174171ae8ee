package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostgate/domain-proxy/internal/cache"
	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/ratelimit"
	"github.com/hostgate/domain-proxy/internal/store"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

func testLedger() (*Ledger, *store.Memory) {
	log, _ := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	mem := store.NewMemory()
	writer := ratelimit.NewWriter(mem, domain.RateWriterConfig{
		MaxInterval:       time.Nanosecond,
		TargetDailyWrites: 1 << 30,
	}, log)
	layered := cache.NewLayered(mem, writer, domain.CacheConfig{
		TTL:    time.Hour,
		Prefix: store.KeyPrefixHash,
	}, "hash", log)
	return New(layered, log), mem
}

func TestLedgerFirstSightingIsChanged(t *testing.T) {
	t.Parallel()

	l, _ := testLedger()

	changed, err := l.Changed(context.Background(), "plugins", []byte(`["widgets","gadgets"]`))
	require.NoError(t, err)
	assert.True(t, changed, "absent record must count as changed")
}

func TestLedgerUnchangedAfterRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, _ := testLedger()

	data := []byte(`["widgets","gadgets"]`)
	require.NoError(t, l.Record(ctx, "plugins", data))

	changed, err := l.Changed(ctx, "plugins", data)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = l.Changed(ctx, "plugins", []byte(`["widgets"]`))
	require.NoError(t, err)
	assert.True(t, changed, "different metadata must report changed")
}

func TestLedgerRepeatedRecordSuppressed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l, mem := testLedger()

	data := []byte(`["widgets"]`)
	require.NoError(t, l.Record(ctx, "plugins", data))
	writes := mem.PutCount()

	require.NoError(t, l.Record(ctx, "plugins", data))
	assert.Equal(t, writes, mem.PutCount(), "unchanged hash must not reach the store")
}
