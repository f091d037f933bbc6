package cache_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"codearena/internal/common/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	return c
}

func intCacheArgs() (func(int) bool, func(int) string, func(string) (int, error)) {
	isEmpty := func(v int) bool { return v == 0 }
	marshal := func(v int) string { return strconv.Itoa(v) }
	unmarshal := func(s string) (int, error) { return strconv.Atoi(s) }
	return isEmpty, marshal, unmarshal
}

func TestGetWithCachedLoadsOnce(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	isEmpty, marshal, unmarshal := intCacheArgs()

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetWithCached(context.Background(), c, "k", time.Minute, time.Minute, isEmpty, marshal, unmarshal, load)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != 42 {
			t.Fatalf("got %d, want 42", got)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}
}

func TestGetWithCachedNullValue(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	isEmpty, marshal, unmarshal := intCacheArgs()

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	}

	for i := 0; i < 2; i++ {
		got, err := cache.GetWithCached(context.Background(), c, "missing", time.Minute, time.Minute, isEmpty, marshal, unmarshal, load)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != 0 {
			t.Fatalf("got %d, want zero", got)
		}
	}
	// The absence marker absorbs the second lookup.
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}
}

func TestGetWithCachedLoaderError(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	isEmpty, marshal, unmarshal := intCacheArgs()

	boom := errors.New("db down")
	_, err := cache.GetWithCached(context.Background(), c, "k", time.Minute, time.Minute, isEmpty, marshal, unmarshal,
		func(ctx context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want loader error", err)
	}

	// Errors must not be cached.
	got, err := cache.GetWithCached(context.Background(), c, "k", time.Minute, time.Minute, isEmpty, marshal, unmarshal,
		func(ctx context.Context) (int, error) { return 7, nil })
	if err != nil {
		t.Fatalf("get after error: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestUpdateCachedInvalidates(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)
	isEmpty, marshal, unmarshal := intCacheArgs()

	value := 1
	load := func(ctx context.Context) (int, error) { return value, nil }

	if _, err := cache.GetWithCached(context.Background(), c, "k", time.Minute, time.Minute, isEmpty, marshal, unmarshal, load); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	value = 2
	err := cache.UpdateCached(context.Background(), c, "k", func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := cache.GetWithCached(context.Background(), c, "k", time.Minute, time.Minute, isEmpty, marshal, unmarshal, load)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got != 2 {
		t.Fatalf("got %d, want refreshed value 2", got)
	}
}

func TestUpdateCachedKeepsCacheOnError(t *testing.T) {
	t.Parallel()
	c := newTestCache(t)

	if err := c.Set(context.Background(), "k", "1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	boom := errors.New("update failed")
	err := cache.UpdateCached(context.Background(), c, "k", func(ctx context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want update error", err)
	}
	if got, err := c.Get(context.Background(), "k"); err != nil || got != "1" {
		t.Fatalf("cache entry lost: %q %v", got, err)
	}
}

func TestJitterTTL(t *testing.T) {
	t.Parallel()
	base := 10 * time.Minute
	for i := 0; i < 50; i++ {
		got := cache.JitterTTL(base)
		if got < base || got > base+base/10 {
			t.Fatalf("jittered ttl %s outside [%s, %s]", got, base, base+base/10)
		}
	}
	if got := cache.JitterTTL(0); got != 0 {
		t.Fatalf("zero ttl changed: %s", got)
	}
}
