package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the minimal key/value surface the cache-aside wrapper needs.
// Production uses Redis; tests substitute an in-memory fake.
type Store interface {
	// Get returns the raw value for key, or found=false when absent
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes value under key with the given TTL
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisStore backs Store with Redis. Values are stored as plain strings;
// callers own the encoding.
type RedisStore struct {
	redis *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store backed by the given Redis client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

// Get reads a key from Redis. A missing key is not an error.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set writes a key to Redis with a TTL
func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
