// Package cache provides a bounded loader cache that evicts in insertion order and
// coalesces concurrent loads for the same key with singleflight.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// FIFOCache is a capacity-bounded cache whose eviction victim is always the
// oldest-inserted entry. Reads never change an entry's position: the backing
// LRU is only touched through Peek and PeekOrAdd, which do not update recency.
// The LRU's internal lock keeps the size bound and evicts exactly one entry per
// insertion beyond capacity, also under concurrent access.
type FIFOCache[K comparable, V any] struct {
	entries     *lru.Cache[K, V]
	group       singleflight.Group
	keyToString func(K) string
}

// NewFIFOCache creates a cache holding at most capacity entries. onEvict may be nil;
// when set it is called once per evicted entry.
func NewFIFOCache[K comparable, V any](
	capacity int, keyToString func(K) string, onEvict func(K, V),
) (*FIFOCache[K, V], error) {
	var (
		entries *lru.Cache[K, V]
		err     error
	)

	if onEvict != nil {
		entries, err = lru.NewWithEvict[K, V](capacity, onEvict)
	} else {
		entries, err = lru.New[K, V](capacity)
	}

	if err != nil {
		return nil, fmt.Errorf("create fifo cache: %w", err)
	}

	return &FIFOCache[K, V]{
		entries:     entries,
		keyToString: keyToString,
	}, nil
}

// Get returns the cached value for key, or runs load on a miss and stores the result.
// hit reports whether the value was served from the cache. Concurrent misses for the
// same key share one load; a failed load is not cached. The shared load keeps ctx's
// values but not its cancellation, so one caller leaving does not fail the others;
// each caller still returns early when its own ctx is done.
func (c *FIFOCache[K, V]) Get(
	ctx context.Context, key K, load func(context.Context, K) (V, error),
) (value V, hit bool, err error) {
	if v, ok := c.entries.Peek(key); ok {
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(c.keyToString(key), func() (any, error) {
		loaded, loadErr := load(loadCtx, key)
		if loadErr != nil {
			return zero[V](), loadErr
		}

		// Another writer may have inserted the key between Peek and here; keep the first value.
		if previous, exists, _ := c.entries.PeekOrAdd(key, loaded); exists {
			return previous, nil
		}

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero[V](), false, fmt.Errorf("wait for load: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero[V](), false, res.Err
		}

		return res.Val.(V), false, nil
	}
}

// Peek returns the value for key without loading.
func (c *FIFOCache[K, V]) Peek(key K) (V, bool) {
	return c.entries.Peek(key)
}

// Add inserts key when absent and reports whether it was inserted.
// An existing entry keeps both its value and its position.
func (c *FIFOCache[K, V]) Add(key K, value V) bool {
	_, exists, _ := c.entries.PeekOrAdd(key, value)

	return !exists
}

// Keys returns the cached keys from oldest to newest insertion.
func (c *FIFOCache[K, V]) Keys() []K {
	return c.entries.Keys()
}

// Len returns the number of entries in the cache.
func (c *FIFOCache[K, V]) Len() int {
	return c.entries.Len()
}

func zero[V any]() (z V) { return z }
