// Package ledger hashes externally-sourced metadata so expensive
// rediscovery runs only when the source material actually changed.
package ledger

import (
	"context"

	"github.com/hostgate/domain-proxy/internal/cache"
	"github.com/hostgate/domain-proxy/pkg/logger"
)

// Ledger records content hashes per metadata key (for example the list of
// known deployable units) in the layered cache, so the record itself is
// subject to the same write suppression as everything else.
type Ledger struct {
	cache  *cache.Layered
	logger *logger.Logger
}

// New creates a ledger persisting through the given cache domain.
func New(c *cache.Layered, log *logger.Logger) *Ledger {
	return &Ledger{
		cache:  c,
		logger: log.CacheLogger("ledger"),
	}
}

// Changed reports whether data differs from the hash last recorded for
// key. An absent record counts as changed so first sightings always
// trigger discovery.
func (l *Ledger) Changed(ctx context.Context, key string, data []byte) (bool, error) {
	stored, err := l.cache.Get(ctx, key)
	if err != nil {
		return true, err
	}
	if stored == nil {
		return true, nil
	}
	return string(stored) != cache.ContentHash(data), nil
}

// Record stores the hash of data for key. Unchanged hashes are suppressed
// by the layered cache, so recording after every discovery run is cheap.
func (l *Ledger) Record(ctx context.Context, key string, data []byte) error {
	_, err := l.cache.Put(ctx, key, []byte(cache.ContentHash(data)))
	return err
}
