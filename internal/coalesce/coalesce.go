// Package coalesce deduplicates concurrent discovery calls for the same
// lookup key so N simultaneous requests trigger one discovery run.
package coalesce

import (
	"golang.org/x/sync/singleflight"
)

// Group runs at most one producer per key at a time; concurrent callers
// for the same key share the settled result. The in-flight registration
// is removed once the producer settles, success or failure, so a
// subsequent call starts fresh - a failing producer can never wedge its
// key in an in-flight state.
type Group[T any] struct {
	sf singleflight.Group
}

// New creates an empty coalescing group.
func New[T any]() *Group[T] {
	return &Group[T]{}
}

// Do invokes producer for key unless a call for the same key is already
// in flight, in which case the caller waits for that call's result.
// Shared reports whether the result was produced by another caller.
func (g *Group[T]) Do(key string, producer func() (T, error)) (value T, shared bool, err error) {
	v, err, shared := g.sf.Do(key, func() (interface{}, error) {
		return producer()
	})
	if err != nil {
		var zero T
		return zero, shared, err
	}
	return v.(T), shared, nil
}

// Forget removes any in-flight registration for key so the next call runs
// its own producer. Used when a caller bypasses caches with a refresh
// directive.
func (g *Group[T]) Forget(key string) {
	g.sf.Forget(key)
}
