// Package kvcache is a thin, namespaced TTL key-value store over Redis, shared by the
// embedding query cache and the search result cache. Neither caller knows Redis is
// underneath; both just get/set bytes under a key.
package kvcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bobinette/research/errors"
)

// Cache is a namespaced view over a single Redis client. Two Caches sharing a Client but
// constructed with different namespaces never collide on keys.
type Cache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// New connects to redisURL (a redis:// URL as accepted by redis.ParseURL) and returns a
// Cache under namespace, with entries expiring after ttl.
func New(redisURL, namespace string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.New("parse redis url", errors.WithCause(err))
	}

	client := redis.NewClient(opts)
	return &Cache{client: client, namespace: namespace, ttl: ttl}, nil
}

// Ping checks connectivity, used by the /search/health endpoint.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.CacheFailure("redis ping", err)
	}
	return nil
}

// Get returns the raw bytes stored at key, and false if the key is absent or expired. A
// cache miss is never an error; only a transport failure is.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.namespace+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.CacheFailure("get cache key", err)
	}
	return val, true, nil
}

// Set stores val under key with the cache's configured TTL.
func (c *Cache) Set(ctx context.Context, key string, val []byte) error {
	if err := c.client.Set(ctx, c.namespace+key, val, c.ttl).Err(); err != nil {
		return errors.CacheFailure("set cache key", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
