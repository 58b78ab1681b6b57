package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"travyy/internal/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestOTP_IssueAndVerify(t *testing.T) {
	_, client := newRedis(t)
	store := auth.NewOTPStore(client, 5*time.Minute, 0, 5)
	ctx := context.Background()

	code, expiresAt, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.True(t, expiresAt.After(time.Now()))

	require.NoError(t, store.Verify(ctx, "0901234567", code))

	// consumed
	assert.ErrorIs(t, store.Verify(ctx, "0901234567", code), auth.ErrOTPInvalid)
}

func TestOTP_ExpiresWithTTL(t *testing.T) {
	mr, client := newRedis(t)
	store := auth.NewOTPStore(client, 5*time.Minute, 0, 5)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)

	mr.FastForward(5*time.Minute + time.Second)
	assert.ErrorIs(t, store.Verify(ctx, "0901234567", code), auth.ErrOTPInvalid)
}

func TestOTP_Cooldown(t *testing.T) {
	mr, client := newRedis(t)
	store := auth.NewOTPStore(client, 5*time.Minute, time.Minute, 5)
	ctx := context.Background()

	_, _, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)

	_, _, err = store.Issue(ctx, "0901234567")
	assert.ErrorIs(t, err, auth.ErrOTPCooldown)

	_, _, err = store.Issue(ctx, "0907654321")
	assert.NoError(t, err, "cooldown is per phone")

	mr.FastForward(time.Minute + time.Second)
	_, _, err = store.Issue(ctx, "0901234567")
	assert.NoError(t, err)
}

func TestOTP_MaxAttempts(t *testing.T) {
	_, client := newRedis(t)
	store := auth.NewOTPStore(client, 5*time.Minute, 0, 3)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, store.Verify(ctx, "0901234567", "000000x"), auth.ErrOTPInvalid)
	}
	assert.ErrorIs(t, store.Verify(ctx, "0901234567", code), auth.ErrOTPAttempts)
	assert.ErrorIs(t, store.Verify(ctx, "0901234567", code), auth.ErrOTPInvalid, "code is discarded after lockout")
}

func TestOTP_ReissueResetsAttempts(t *testing.T) {
	_, client := newRedis(t)
	store := auth.NewOTPStore(client, 5*time.Minute, 0, 2)
	ctx := context.Background()

	_, _, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)
	assert.ErrorIs(t, store.Verify(ctx, "0901234567", "bad"), auth.ErrOTPInvalid)
	assert.ErrorIs(t, store.Verify(ctx, "0901234567", "bad"), auth.ErrOTPInvalid)

	code, _, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)
	assert.NoError(t, store.Verify(ctx, "0901234567", code))
}

func TestOTP_ConcurrentCorrectCodesSucceedOnce(t *testing.T) {
	_, client := newRedis(t)
	store := auth.NewOTPStore(client, 5*time.Minute, 0, 10)
	ctx := context.Background()

	code, _, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		ok int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Verify(ctx, "0901234567", code) == nil {
				atomic.AddInt32(&ok, 1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ok))
}

func TestRevocationList(t *testing.T) {
	mr, client := newRedis(t)
	list := auth.NewRevocationList(client)
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = list.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(time.Hour + time.Second)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestOTPRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	store := auth.NewOTPStore(client, 2*time.Second, 0, 5)
	code, _, err := store.Issue(ctx, "0901234567")
	require.NoError(t, err)

	ttl, err := client.TTL(ctx, "otp:code:0901234567").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= 2*time.Second)

	require.NoError(t, store.Verify(ctx, "0901234567", code))
}
