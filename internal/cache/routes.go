package cache

import (
	"context"

	"github.com/hostgate/domain-proxy/internal/domain"
)

// Routes is the route-resolution variant of the layered cache: resolved
// backend targets keyed by normalized hostname+path. Query strings never
// enter the key; callers reattach them after a hit.
type Routes struct {
	layered *Layered
}

// NewRoutes wraps a layered cache with route-keyed accessors.
func NewRoutes(layered *Layered) *Routes {
	return &Routes{layered: layered}
}

// GetRoute returns the cached route entry for host+path, or nil on a miss.
func (r *Routes) GetRoute(ctx context.Context, host, path string) (*domain.RouteEntry, error) {
	return GetJSON[domain.RouteEntry](ctx, r.layered, domain.LookupKey(host, path))
}

// PutRoute caches a resolved route entry for host+path.
func (r *Routes) PutRoute(ctx context.Context, host, path string, entry *domain.RouteEntry) (bool, error) {
	return PutJSON(ctx, r.layered, domain.LookupKey(host, path), entry)
}

// Invalidate removes the cached entry for host+path from both tiers.
func (r *Routes) Invalidate(ctx context.Context, host, path string) error {
	return r.layered.Delete(ctx, domain.LookupKey(host, path))
}

// Clear removes every cached route from both tiers.
func (r *Routes) Clear(ctx context.Context) (int, error) {
	return r.layered.Clear(ctx)
}

// Len returns the size of the in-process tier.
func (r *Routes) Len() int {
	return r.layered.Len()
}
