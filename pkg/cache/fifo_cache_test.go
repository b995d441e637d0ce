package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(s string) string { return s }

func TestFIFOCache_Get_miss_then_hit(t *testing.T) {
	loads := atomic.Int32{}

	c, err := NewFIFOCache[string, string](10, identity, nil)
	require.NoError(t, err)

	ctx := context.Background()
	load := func(_ context.Context, key string) (string, error) {
		loads.Add(1)

		return "v-" + key, nil
	}

	v, hit, err := c.Get(ctx, "a", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "v-a", v)

	v, hit, err = c.Get(ctx, "a", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v-a", v)
	assert.Equal(t, int32(1), loads.Load())
}

func TestFIFOCache_evicts_oldest_inserted_first(t *testing.T) {
	var evicted []string

	c, err := NewFIFOCache[string, int](3, identity, func(k string, _ int) {
		evicted = append(evicted, k)
	})
	require.NoError(t, err)

	ctx := context.Background()
	load := func(_ context.Context, key string) (int, error) { return len(key), nil }

	for _, k := range []string{"a", "b", "c"} {
		_, _, err := c.Get(ctx, k, load)
		require.NoError(t, err)
	}

	// A hit on "a" must not protect it: eviction follows insertion order, not recency.
	_, hit, err := c.Get(ctx, "a", load)
	require.NoError(t, err)
	require.True(t, hit)

	_, _, err = c.Get(ctx, "d", load)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, evicted)
	assert.Equal(t, []string{"b", "c", "d"}, c.Keys())
	assert.Equal(t, 3, c.Len())
}

func TestFIFOCache_Add_keeps_existing_position(t *testing.T) {
	c, err := NewFIFOCache[string, int](2, identity, nil)
	require.NoError(t, err)

	assert.True(t, c.Add("a", 1))
	assert.True(t, c.Add("b", 2))
	assert.False(t, c.Add("a", 99))

	v, ok := c.Peek("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	assert.True(t, c.Add("c", 3))
	assert.Equal(t, []string{"b", "c"}, c.Keys())
}

func TestFIFOCache_concurrent_inserts_respect_capacity(t *testing.T) {
	const (
		capacity = 16
		inserts  = 200
	)

	var evictions atomic.Int32

	c, err := NewFIFOCache[string, int](capacity, identity, func(string, int) {
		evictions.Add(1)
	})
	require.NoError(t, err)

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range inserts {
		wg.Go(func() {
			_, _, err := c.Get(ctx, "q-"+strconv.Itoa(i), func(_ context.Context, _ string) (int, error) {
				return i, nil
			})
			if err != nil {
				t.Error(err)
			}

			if n := c.Len(); n > capacity {
				t.Errorf("Len = %d exceeds capacity %d", n, capacity)
			}
		})
	}

	wg.Wait()

	assert.Equal(t, capacity, c.Len())
	assert.Equal(t, int32(inserts-capacity), evictions.Load())
}

func TestFIFOCache_Get_singleflight(t *testing.T) {
	loads := atomic.Int32{}

	c, err := NewFIFOCache[string, int](10, identity, nil)
	require.NoError(t, err)

	ctx := context.Background()
	release := make(chan struct{})
	load := func(_ context.Context, _ string) (int, error) {
		loads.Add(1)
		<-release

		return 42, nil
	}

	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)

	started.Add(10)

	for range 10 {
		wg.Go(func() {
			started.Done()

			val, _, err := c.Get(ctx, "x", load)
			if err != nil {
				t.Error(err)

				return
			}

			if val != 42 {
				t.Errorf("got %d", val)
			}
		})
	}

	started.Wait()
	close(release)
	wg.Wait()

	// Goroutines that reached Get after the first load finished see a hit, so at most
	// one load runs per overlapping window; with a single key that is always >= 1.
	n := loads.Load()
	assert.GreaterOrEqual(t, n, int32(1))
	assert.LessOrEqual(t, n, int32(10))
	assert.Equal(t, 1, c.Len())
}

func TestFIFOCache_Get_cancelled_caller_does_not_fail_shared_load(t *testing.T) {
	loads := atomic.Int32{}

	c, err := NewFIFOCache[string, int](10, identity, nil)
	require.NoError(t, err)

	loadStarted := make(chan struct{})
	release := make(chan struct{})
	loadCtxErr := make(chan error, 1)
	load := func(ctx context.Context, _ string) (int, error) {
		loads.Add(1)
		close(loadStarted)
		<-release
		loadCtxErr <- ctx.Err()

		return 7, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)

	go func() {
		_, _, err := c.Get(firstCtx, "q", load)
		firstErr <- err
	}()

	<-loadStarted

	type result struct {
		val int
		err error
	}

	second := make(chan result, 1)

	go func() {
		val, _, err := c.Get(context.Background(), "q", load)
		second <- result{val, err}
	}()

	cancelFirst()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 7, got.val)
	require.NoError(t, <-loadCtxErr)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, 1, c.Len())
}

func TestFIFOCache_Get_load_error_not_cached(t *testing.T) {
	c, err := NewFIFOCache[string, string](10, identity, nil)
	require.NoError(t, err)

	loadErr := errors.New("upstream down")

	_, _, err = c.Get(context.Background(), "a", func(_ context.Context, _ string) (string, error) {
		return "", loadErr
	})
	require.ErrorIs(t, err, loadErr)
	assert.Equal(t, 0, c.Len())
}

func TestNewFIFOCache_rejects_non_positive_capacity(t *testing.T) {
	_, err := NewFIFOCache[string, int](0, identity, nil)
	assert.Error(t, err)
}
