package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/XavierBriggs/Argus/internal/metrics"
)

// Aside wraps a Store with the cache-aside pattern: read first, compute on a
// miss, write the result back. The store is allowed to be slow, corrupt, or
// entirely down; every failure degrades to a direct compute so the caller
// always gets a value when compute succeeds. The trade-off is duplicate
// upstream calls during cache outages, which is fine for idempotent reads.
type Aside[T any] struct {
	store  Store
	logger *slog.Logger
}

// NewAside creates a cache-aside wrapper around store. A nil logger falls
// back to slog.Default().
func NewAside[T any](store Store, logger *slog.Logger) *Aside[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aside[T]{
		store:  store,
		logger: logger,
	}
}

// GetOrCompute returns the cached value for key when present, otherwise runs
// compute exactly once and writes the result back with the given TTL.
// Read errors and corrupt entries are treated as misses; write-back failures
// are logged and swallowed, never blocking the computed value.
func (a *Aside[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, found, err := a.store.Get(ctx, key)
	if err != nil {
		a.logger.Warn("cache read failed, computing directly", "key", key, "error", err)
	} else if found {
		var cached T
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			metrics.CacheHits.Inc()
			return cached, nil
		}
		// Corrupt entry, treat as a miss
		a.logger.Warn("cache entry corrupt, computing directly", "key", key)
	}
	metrics.CacheMisses.Inc()

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		a.logger.Warn("cache write-back skipped, marshal failed", "key", key, "error", err)
		return value, nil
	}
	if err := a.store.Set(ctx, key, string(data), ttl); err != nil {
		metrics.CacheWriteErrors.Inc()
		a.logger.Warn("cache write-back failed", "key", key, "error", err)
	}

	return value, nil
}
