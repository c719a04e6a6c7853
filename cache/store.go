// Package cache provides the process-lifetime lookup memo used by the matching
// engine and the ATC resolver. Entries never expire: substance names are
// assumed stable for the lifetime of a mapper.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Store memoizes lookups by key. A hit never calls the loader; a miss calls it
// at most once per key, even under concurrent callers, and stores whatever it
// returns, negative results included.
type Store[V any] struct {
	name   string
	mu     sync.RWMutex
	items  map[string]V
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a point-in-time snapshot of a store.
type Stats struct {
	Name   string `json:"name"`
	Size   int    `json:"size"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
}

// NewStore creates an empty store. The name labels metrics and stats.
func NewStore[V any](name string) *Store[V] {
	return &Store[V]{
		name:  name,
		items: make(map[string]V),
	}
}

// Get returns the cached value for key, if any.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores a value unconditionally.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// GetOrLoad returns the cached value for key or populates it with load.
// The boolean reports whether the value came from the cache.
//
// load runs detached from ctx cancellation, so the value it stores is never
// the product of an abandoned caller. A caller whose ctx ends first gets the
// zero value and ctx.Err() while the load completes for the others.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) V) (V, bool, error) {
	var zero V
	if v, ok := s.Get(key); ok {
		s.hits.Add(1)
		return v, true, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		// Another caller may have filled the key between Get and DoChan.
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		s.misses.Add(1)
		v := load(loadCtx)
		s.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val.(V), false, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Len returns the number of cached keys.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Stats returns the current size and hit/miss counters.
func (s *Store[V]) Stats() Stats {
	return Stats{
		Name:   s.name,
		Size:   s.Len(),
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// Name returns the store label.
func (s *Store[V]) Name() string {
	return s.name
}
