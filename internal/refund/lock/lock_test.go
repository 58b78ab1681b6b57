package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"travyy/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, time.Minute, logger.NewDiscardLogger()), mr
}

func TestAcquire_SingleOwner(t *testing.T) {
	l, _ := setupTestRedis(t)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "rf-1", "admin-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "rf-1", "admin-b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Acquire(ctx, "rf-2", "admin-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRelease_OnlyByOwner(t *testing.T) {
	l, _ := setupTestRedis(t)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "rf-1", "admin-a")
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, "rf-1", "admin-b"))
	held, err := l.Held(ctx, "rf-1")
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, l.Release(ctx, "rf-1", "admin-a"))
	held, err = l.Held(ctx, "rf-1")
	require.NoError(t, err)
	assert.False(t, held)

	// releasing twice is harmless
	assert.NoError(t, l.Release(ctx, "rf-1", "admin-a"))
}

func TestAcquire_ExpiresAfterTTL(t *testing.T) {
	l, mr := setupTestRedis(t)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "rf-1", "admin-a")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	ok, err := l.Acquire(ctx, "rf-1", "admin-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquire_Concurrent(t *testing.T) {
	l, _ := setupTestRedis(t)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(owner int) {
			defer wg.Done()
			ok, err := l.Acquire(ctx, "rf-race", string(rune('a'+owner)))
			if err == nil && ok {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}
