// Package store defines the narrow key-value interface the caches persist
// through, with a Redis-backed adapter and an in-memory double for tests.
package store

import (
	"context"
	"time"
)

// ValueKind selects how a stored value is decoded on read.
type ValueKind int

const (
	// Text reads the raw stored bytes
	Text ValueKind = iota
	// JSON reads the stored bytes for JSON decoding by the caller
	JSON
)

// Entry is one listed key.
type Entry struct {
	Name string `json:"name"`
}

// KV is the persistent store collaborator. Implementations map
// quota/rate-limit conditions to a degraded result (nil value, no error,
// logged) rather than propagating them; all other failures propagate.
//
// A nil value with a nil error on Get means the key is absent or the
// store is degraded - callers treat both as a miss.
type KV interface {
	Get(ctx context.Context, key string, kind ValueKind) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
}
