package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/hostgate/domain-proxy/internal/domain"
	"github.com/hostgate/domain-proxy/internal/errors"
	"github.com/hostgate/domain-proxy/internal/ratelimit"
	"github.com/hostgate/domain-proxy/internal/store"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// Layered is a two-tier cache: an in-process TTL tier backed, best-effort,
// by the persistent store. Its central purpose is write suppression - the
// wrapped store has a hard external write quota, so a put whose content
// hash matches the last persisted serialization never reaches the store.
type Layered struct {
	memory *TTL[[]byte]
	writer *ratelimit.Writer
	kv     store.KV
	config domain.CacheConfig
	class  string
	logger *logger.Logger
}

// NewLayered creates a layered cache over kv, persisting through writer
// under the given operation class.
func NewLayered(kv store.KV, writer *ratelimit.Writer, config domain.CacheConfig, class string, log *logger.Logger) *Layered {
	return &Layered{
		memory: NewTTL[[]byte](config.TTL),
		writer: writer,
		kv:     kv,
		config: config,
		class:  class,
		logger: log.CacheLogger(class),
	}
}

// ContentHash is the hash used for write suppression and the
// change-detection ledger.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Get returns the cached bytes for key. The in-process tier is checked
// first; on a miss the persistent tier is read and backfills memory.
// A nil result with a nil error is a miss.
func (c *Layered) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.memory.Get(c.storeKey(key)); ok {
		return data, nil
	}

	data, err := c.kv.Get(ctx, c.storeKey(key), store.JSON)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	// Backfill with the persisted hash so an identical re-put suppresses.
	c.memory.SetWithHash(c.storeKey(key), data, 0, ContentHash(data))
	return data, nil
}

// Put caches value under key. The memory tier always updates; the
// persistent put is suppressed when the content is unchanged and may be
// skipped by the adaptive write schedule. The returned bool reports
// whether the persistent tier committed.
func (c *Layered) Put(ctx context.Context, key string, value []byte) (bool, error) {
	sk := c.storeKey(key)
	hash := ContentHash(value)

	if prev, ok := c.memory.Hash(sk); ok && prev == hash {
		c.memory.SetWithHash(sk, value, 0, hash)
		return false, nil
	}

	// No usable memory marker: compare against the persisted serialization
	// before spending a write.
	if _, ok := c.memory.Hash(sk); !ok {
		persisted, err := c.kv.Get(ctx, sk, store.JSON)
		if err == nil && persisted != nil && bytes.Equal(persisted, value) {
			c.memory.SetWithHash(sk, value, 0, hash)
			return false, nil
		}
	}

	committed, err := c.writer.Write(ctx, sk, value, c.config.TTL, c.class)
	if err != nil {
		c.memory.Set(sk, value, 0)
		return false, err
	}

	if committed {
		c.memory.SetWithHash(sk, value, 0, hash)
	} else {
		// Skipped by the write schedule: keep serving from memory and
		// leave the marker clear so the next put retries persistence.
		c.memory.Set(sk, value, 0)
	}
	return committed, nil
}

// Delete removes key from both tiers.
func (c *Layered) Delete(ctx context.Context, key string) error {
	sk := c.storeKey(key)
	c.memory.Delete(sk)
	return c.kv.Delete(ctx, sk)
}

// Clear removes every entry of this cache domain from both tiers and
// returns the number of persistent keys removed.
func (c *Layered) Clear(ctx context.Context) (int, error) {
	c.memory.DeletePrefix(c.config.Prefix)

	entries, err := c.kv.List(ctx, c.config.Prefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if err := c.kv.Delete(ctx, e.Name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Len returns the size of the in-process tier.
func (c *Layered) Len() int {
	return c.memory.Len()
}

func (c *Layered) storeKey(key string) string {
	return c.config.Prefix + key
}

// GetJSON reads key and decodes it into T. A value of an unexpected shape
// raises a cache-corruption error; silently trusting malformed cached
// data is worse than a visible failure.
func GetJSON[T any](ctx context.Context, c *Layered, key string) (*T, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, errors.NewCacheCorruptError(key, err)
	}
	return &value, nil
}

// PutJSON encodes value and caches it under key.
func PutJSON[T any](ctx context.Context, c *Layered, key string, value *T) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return c.Put(ctx, key, data)
}
