package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutGetDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	v, err := m.Get(ctx, "missing", Text)
	require.NoError(t, err)
	assert.Nil(t, v, "missing key should read as nil")

	require.NoError(t, m.Put(ctx, "k", []byte("value"), 0))

	v, err = m.Get(ctx, "k", Text)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	require.NoError(t, m.Delete(ctx, "k"))
	v, err = m.Get(ctx, "k", Text)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	current := time.Now()
	m.now = func() time.Time { return current }

	require.NoError(t, m.Put(ctx, "k", []byte("v"), time.Minute))

	current = current.Add(2 * time.Minute)

	v, err := m.Get(ctx, "k", Text)
	require.NoError(t, err)
	assert.Nil(t, v, "expired key should read as nil")
}

func TestMemoryList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, KeyPrefixRoute+"a.example/", []byte("1"), 0))
	require.NoError(t, m.Put(ctx, KeyPrefixRoute+"b.example/", []byte("2"), 0))
	require.NoError(t, m.Put(ctx, KeyPrefixSnapshot+"a.example", []byte("3"), 0))

	entries, err := m.List(ctx, KeyPrefixRoute)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestIsQuotaErr(t *testing.T) {
	t.Parallel()

	assert.False(t, isQuotaErr(nil))
	assert.False(t, isQuotaErr(assert.AnError))
	assert.True(t, isQuotaErr(errQuota("daily request quota exceeded")))
	assert.True(t, isQuotaErr(errQuota("ERR max requests limit exceeded")))
	assert.True(t, isQuotaErr(errQuota("OOM command not allowed when used memory > 'maxmemory'")))
}

type errQuota string

func (e errQuota) Error() string { return string(e) }
