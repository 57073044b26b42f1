package cacher

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// MemoryCacher is an in-process Cacher built on go-cache. Concurrent misses
// for the same key are collapsed into one fetch with singleflight.
type MemoryCacher[T any] struct {
	cache *cache.Cache
	group singleflight.Group
}

// NewMemoryCacher creates an in-memory cache.
//
// Parameters:
//   - defaultExpiration: Default TTL for cached items (cache.NoExpiration for none)
//   - cleanupInterval: Interval at which expired items are purged
//
// Returns:
//   - A new MemoryCacher as a Cacher
func NewMemoryCacher[T any](defaultExpiration, cleanupInterval time.Duration) Cacher[T] {
	return &MemoryCacher[T]{
		cache: cache.New(defaultExpiration, cleanupInterval),
	}
}

// GetOrFetch implements Cacher.
func (c *MemoryCacher[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error) {
	var zero T

	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		// another caller may have filled the key while we waited for the group
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		fetched, err := fetchFn(ctx)
		if err != nil {
			return zero, err
		}

		c.cache.Set(key, fetched, ttl)
		return fetched, nil
	})
	if err != nil {
		return zero, err
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type in cache for key %s", key)
	}

	return typed, nil
}

func (c *MemoryCacher[T]) lookup(key string) (T, bool) {
	var zero T
	raw, found := c.cache.Get(key)
	if !found {
		return zero, false
	}

	v, ok := raw.(T)
	return v, ok
}

// Delete implements Cacher.
func (c *MemoryCacher[T]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.cache.Delete(key)
	return nil
}
