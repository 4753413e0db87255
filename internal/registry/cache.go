package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gx-tool/gx/internal/slogctx"
)

type cacheEntry[V any] struct {
	val V
	err error
}

// Cache is a concurrency-safe, map-based memoizer for registry lookups
// that are expensive (a round trip to GitHub) but idempotent within a
// single run (a tag list for a given action doesn't change mid-command).
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]cacheEntry[V]
}

// Do returns the cached result for key, calling thunk and storing its
// result (including any error) on a miss.
func (c *Cache[K, V]) Do(ctx context.Context, key K, thunk func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[K]cacheEntry[V])
	}
	if e, found := c.entries[key]; found {
		slogctx.Debug(ctx, "registry: cache hit", slog.Any("key", key))
		return e.val, e.err
	}
	slogctx.Debug(ctx, "registry: cache miss", slog.Any("key", key))
	val, err := thunk()
	c.entries[key] = cacheEntry[V]{val, err}
	return val, err
}
