// Package cache memoises total row counts of filtered queries
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces count entries in a shared Redis
const KeyPrefix = "filterable:count:"

// CountCache stores total row counts by statement key
type CountCache interface {
	// Get returns the cached total; found is false on a miss
	Get(ctx context.Context, key string) (total int64, found bool, err error)
	Set(ctx context.Context, key string, total int64) error
}

// Key derives the cache key of a count statement and its bind arguments
func Key(sql string, args []interface{}) (string, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode count arguments: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(sql))
	h.Write([]byte{0})
	h.Write(encoded)
	return KeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// RedisCountCache keeps totals in Redis with a fixed TTL
type RedisCountCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCountCache wraps an existing client
func NewRedisCountCache(client redis.UniversalClient, ttl time.Duration) *RedisCountCache {
	return &RedisCountCache{client: client, ttl: ttl}
}

// ConnectRedis parses a redis:// URL, pings the server and returns a cache
func ConnectRedis(ctx context.Context, url string, ttl time.Duration) (*RedisCountCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisCountCache(client, ttl), nil
}

// Get returns the cached total for key
func (r *RedisCountCache) Get(ctx context.Context, key string) (int64, bool, error) {
	total, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return total, true, nil
}

// Set stores total for key until the TTL expires
func (r *RedisCountCache) Set(ctx context.Context, key string, total int64) error {
	return r.client.Set(ctx, key, strconv.FormatInt(total, 10), r.ttl).Err()
}

// Close releases the Redis connection
func (r *RedisCountCache) Close() error {
	return r.client.Close()
}
