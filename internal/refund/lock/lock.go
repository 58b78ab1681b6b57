package lock

import (
	"context"
	"fmt"
	"time"

	"travyy/internal/logger"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "refund_lock:"

// Only the owner that took the lock may delete it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis guards a refund while its gateway call is in flight.
type Redis struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Redis{Client: client, TTL: ttl, Logger: log}
}

// Acquire reports false when another owner holds the lock.
func (r *Redis) Acquire(ctx context.Context, refundID, owner string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, keyPrefix+refundID, owner, r.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("lock refund %s: %w", refundID, err)
	}
	if !ok && r.Logger != nil {
		r.Logger.Debug("REDIS", fmt.Sprintf("refund %s already locked", refundID))
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, refundID, owner string) error {
	err := releaseScript.Run(ctx, r.Client, []string{keyPrefix + refundID}, owner).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("unlock refund %s: %w", refundID, err)
	}
	return nil
}

// Held reports whether any owner currently holds the lock.
func (r *Redis) Held(ctx context.Context, refundID string) (bool, error) {
	n, err := r.Client.Exists(ctx, keyPrefix+refundID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
