package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/redis/go-redis/v9"
)

// Cache is a key-value cache with expiring entries.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
	Delete(ctx context.Context, key string) error
}

// MemoryCache is a Cache in process memory.
type MemoryCache[V any] struct {
	cache *ristretto.Cache[string, V]
	ttl   time.Duration
}

// NewMemoryCache creates a MemoryCache which holds about maxEntries entries.
// A ttl of zero means that entries don't expire.
func NewMemoryCache[V any](maxEntries int64, ttl time.Duration) (*MemoryCache[V], error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryCache[V]{
		cache: cache,
		ttl:   ttl,
	}, nil
}

func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool, error) {
	value, ok := c.cache.Get(key)
	return value, ok, nil
}

// Set adds an entry and waits until it is visible.
func (c *MemoryCache[V]) Set(_ context.Context, key string, value V) error {
	c.cache.SetWithTTL(key, value, 1, c.ttl)
	c.cache.Wait()
	return nil
}

func (c *MemoryCache[V]) Delete(_ context.Context, key string) error {
	c.cache.Del(key)
	return nil
}

func (c *MemoryCache[V]) Close() {
	c.cache.Close()
}

// RedisCache is a Cache in Redis. Values are stored as JSON.
type RedisCache[V any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisCache[V any](client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache[V] {
	return &RedisCache[V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var value V
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false, nil
	}
	if err != nil {
		return value, false, err
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, err
	}
	return value, true, nil
}

func (c *RedisCache[V]) Set(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

func (c *RedisCache[V]) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}
