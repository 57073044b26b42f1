package cacher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisLockTTL     = 5 * time.Second
	redisWaitTimeout = 5 * time.Second
)

// releaseLockScript deletes the lock only if we still own it.
var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisCacher is a Cacher storing JSON-encoded values in Redis. Every key is
// placed under a namespace so several servers, or other applications, can
// share one database. A short-lived lock key keeps concurrent misses from
// fetching the same value more than once.
type RedisCacher[T any] struct {
	client    redis.UniversalClient
	namespace string
}

// NewRedisCacher creates a Redis-backed Cacher.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	rosters := NewRedisCacher[[]string](client, "chat")
//
// Parameters:
//   - client: Any go-redis client (single node, sentinel or cluster)
//   - namespace: Prefix prepended to every key as "namespace:key"; may be empty
func NewRedisCacher[T any](client redis.UniversalClient, namespace string) Cacher[T] {
	return &RedisCacher[T]{client: client, namespace: namespace}
}

func (c *RedisCacher[T]) key(k string) string {
	if c.namespace == "" {
		return k
	}

	return c.namespace + ":" + k
}

// GetOrFetch implements Cacher.
func (c *RedisCacher[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error) {
	var zero T
	fullKey := c.key(key)

	v, found, err := c.get(ctx, fullKey)
	if err != nil || found {
		return v, err
	}

	lockKey := fullKey + ":lock"
	lockValue := strconv.FormatInt(time.Now().UnixNano(), 10)
	acquired, err := c.client.SetNX(ctx, lockKey, lockValue, redisLockTTL).Result()
	if err != nil {
		return zero, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired {
		return c.waitForValue(ctx, fullKey, lockKey)
	}

	defer releaseLockScript.Run(context.Background(), c.client, []string{lockKey}, lockValue)

	result, err := fetchFn(ctx)
	if err != nil {
		return zero, fmt.Errorf("fetch function failed: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		return zero, fmt.Errorf("failed to cache result: %w", err)
	}

	return result, nil
}

func (c *RedisCacher[T]) get(ctx context.Context, fullKey string) (T, bool, error) {
	var zero T

	raw, err := c.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}

	if err != nil {
		return zero, false, fmt.Errorf("redis get error: %w", err)
	}

	var result T
	if err := json.Unmarshal(raw, &result); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return result, true, nil
}

// waitForValue polls with exponential backoff until the lock holder has
// stored the value, the lock disappears, or the wait times out.
func (c *RedisCacher[T]) waitForValue(ctx context.Context, fullKey, lockKey string) (T, error) {
	var zero T
	backoff := 10 * time.Millisecond
	deadline := time.Now().Add(redisWaitTimeout)

	for time.Now().Before(deadline) {
		v, found, err := c.get(ctx, fullKey)
		if err != nil || found {
			return v, err
		}

		exists, err := c.client.Exists(ctx, lockKey).Result()
		if err != nil {
			return zero, fmt.Errorf("failed to check lock existence: %w", err)
		}

		if exists == 0 {
			if v, found, err := c.get(ctx, fullKey); err != nil || found {
				return v, err
			}

			return zero, errors.New("fetch operation failed or cache not populated")
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, 250*time.Millisecond)
	}

	return zero, errors.New("timeout waiting for cache")
}

// Delete implements Cacher.
func (c *RedisCacher[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}
