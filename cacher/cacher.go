// Package cacher provides read-through caches with stampede protection. The
// chat server keeps its roster replies here so a burst of roster requests
// costs one registry scan.
package cacher

import (
	"context"
	"time"
)

// FetchFunc produces the value for a key on a cache miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher is a read-through cache. Implementations are safe for concurrent
// use and run at most one FetchFunc per key at a time.
type Cacher[T any] interface {
	// GetOrFetch returns the cached value for key, or calls fetchFn, stores
	// its result for ttl and returns it.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - key: The cache key to retrieve or set
	//   - ttl: Time-to-live duration for the fetched value
	//   - fetchFn: Function to fetch the value if not in cache
	//
	// Returns:
	//   - The cached or fetched value of type T
	//   - An error if retrieval or fetching fails
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Delete removes a key from the cache. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
