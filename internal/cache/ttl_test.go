package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLGetSet(t *testing.T) {
	t.Parallel()

	c := NewTTL[string](time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok, "empty cache should miss")

	c.Set("k", "v", 0)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTTLExpiry(t *testing.T) {
	t.Parallel()

	c := NewTTL[int](time.Minute)

	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("k", 42, 10*time.Second)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	// Advance past the entry TTL; the read must miss and lazily evict.
	current = current.Add(11 * time.Second)

	_, ok = c.Get("k")
	assert.False(t, ok, "expired entry should be absent on read")
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted by the read")
}

func TestTTLHashMarker(t *testing.T) {
	t.Parallel()

	c := NewTTL[string](time.Minute)

	c.SetWithHash("k", "v", 0, "abc123")

	h, ok := c.Hash("k")
	assert.True(t, ok)
	assert.Equal(t, "abc123", h)

	// A plain Set clears the marker.
	c.Set("k", "v2", 0)
	h, ok = c.Hash("k")
	assert.True(t, ok)
	assert.Empty(t, h)
}

func TestTTLDeletePrefix(t *testing.T) {
	t.Parallel()

	c := NewTTL[string](time.Minute)
	c.Set("route:a.example/", "x", 0)
	c.Set("route:b.example/", "y", 0)
	c.Set("snapshot:a.example", "z", 0)

	removed := c.DeletePrefix("route:")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("snapshot:a.example")
	assert.True(t, ok, "unrelated prefix should survive")
}

func TestTTLConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := NewTTL[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", n, 0)
				c.Get("shared")
				c.Delete("other")
			}
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("shared")
	assert.True(t, ok)
}
