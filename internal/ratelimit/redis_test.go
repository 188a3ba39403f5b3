package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

// Ключ истекает по PEXPIREAT, поэтому часы лимитера должны идти от текущего времени.
func newRedisLimiter(store Store) (*Limiter, *clock) {
	l, c := newTestLimiter(store)
	c.t = time.Now().Truncate(time.Second)
	return l, c
}

func TestRedisStore_LoginWindow(t *testing.T) {
	store, mr := setupRedisStore(t)
	l, c := newRedisLimiter(store)
	ctx := context.Background()

	for range 5 {
		ok, err := l.CheckAndConsume(ctx, "ann@example.com", ActionLogin)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.CheckAndConsume(ctx, "ann@example.com", ActionLogin)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "5", mr.HGet("ratelimit:login:ann@example.com", "count"))

	c.Advance(16 * time.Minute)
	ok, err = l.CheckAndConsume(ctx, "ann@example.com", ActionLogin)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", mr.HGet("ratelimit:login:ann@example.com", "count"))
}

func TestRedisStore_KeyExpiresAtResetAt(t *testing.T) {
	store, mr := setupRedisStore(t)
	l, _ := newRedisLimiter(store)

	_, err := l.CheckAndConsume(context.Background(), "10.0.0.1", ActionRegister)
	require.NoError(t, err)

	ttl := mr.TTL("ratelimit:register:10.0.0.1")
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)

	mr.FastForward(time.Hour + time.Second)
	assert.False(t, mr.Exists("ratelimit:register:10.0.0.1"))
}

func TestRedisStore_ConcurrentAttemptsNeverExceedMax(t *testing.T) {
	store, _ := setupRedisStore(t)
	l, _ := newRedisLimiter(store)
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.CheckAndConsume(ctx, "10.0.0.1", ActionRegister)
			if err == nil && ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, allowed.Load(), int32(3))
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	l, _ := newRedisLimiter(NewRedisStore(client))

	ok, err := l.CheckAndConsume(context.Background(), "ann@example.com", ActionLogin)
	require.NoError(t, err)
	assert.False(t, ok)
}
