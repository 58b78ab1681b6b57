package auth

import (
	"context"
	"fmt"
	"time"

	"travyy/internal/utils"

	"github.com/go-redis/redis/v8"
)

const (
	otpKeyPrefix      = "otp:code:"
	otpAttemptsPrefix = "otp:attempts:"
	otpCooldownPrefix = "otp:cooldown:"
	otpDigits         = 6
)

// OTPStore keeps one-time codes in Redis so they survive restarts and are
// shared across instances. Expiry is enforced by key TTL.
type OTPStore struct {
	client      *redis.Client
	ttl         time.Duration
	cooldown    time.Duration
	maxAttempts int
}

func NewOTPStore(client *redis.Client, ttl, cooldown time.Duration, maxAttempts int) *OTPStore {
	return &OTPStore{
		client:      client,
		ttl:         ttl,
		cooldown:    cooldown,
		maxAttempts: maxAttempts,
	}
}

// Issue generates and stores a fresh code for phone, replacing any previous one.
func (s *OTPStore) Issue(ctx context.Context, phone string) (string, time.Time, error) {
	if s.cooldown > 0 {
		ok, err := s.client.SetNX(ctx, otpCooldownPrefix+phone, "1", s.cooldown).Result()
		if err != nil {
			return "", time.Time{}, fmt.Errorf("otp cooldown: %w", err)
		}
		if !ok {
			return "", time.Time{}, ErrOTPCooldown
		}
	}

	code, err := utils.GenerateOTP(otpDigits)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, otpKeyPrefix+phone, code, s.ttl)
	pipe.Del(ctx, otpAttemptsPrefix+phone)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", time.Time{}, fmt.Errorf("store otp: %w", err)
	}
	return code, time.Now().Add(s.ttl), nil
}

// verifyScript checks and consumes a code in one step.
// KEYS: code, attempts. ARGV: submitted code, max attempts, attempts TTL (ms).
// Returns 1 on a match, 0 on a miss, -1 once attempts are exhausted.
var verifyScript = redis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
	return 0
end
local attempts = redis.call("INCR", KEYS[2])
if attempts == 1 and tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[2], ARGV[3])
end
if attempts > tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1], KEYS[2])
	return -1
end
if stored ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1], KEYS[2])
return 1
`)

// Verify consumes the code on success. Wrong guesses count toward maxAttempts,
// after which the code is discarded.
func (s *OTPStore) Verify(ctx context.Context, phone, code string) error {
	res, err := verifyScript.Run(ctx, s.client,
		[]string{otpKeyPrefix + phone, otpAttemptsPrefix + phone},
		code, s.maxAttempts, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	switch res {
	case 1:
		return nil
	case -1:
		return ErrOTPAttempts
	default:
		return ErrOTPInvalid
	}
}
