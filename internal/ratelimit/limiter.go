package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts failures per key in Redis and locks the key out once too
// many accumulate within a window.
type Limiter struct {
	client          redis.UniversalClient
	window          time.Duration // Time window for counting failures
	maxFailures     int           // Failures allowed in window
	lockoutDuration time.Duration // How long to block after exceeding limit
}

// NewLimiter creates a new failure limiter
func NewLimiter(client redis.UniversalClient, window time.Duration, maxFailures int, lockoutDuration time.Duration) *Limiter {
	return &Limiter{
		client:          client,
		window:          window,
		maxFailures:     maxFailures,
		lockoutDuration: lockoutDuration,
	}
}

// FailureKey returns the Redis key counting failures for key
func FailureKey(key string) string {
	return fmt.Sprintf("ratelimit:refresh:%s", key)
}

// LockoutKey returns the Redis key marking key as locked out
func LockoutKey(key string) string {
	return fmt.Sprintf("ratelimit:lockout:%s", key)
}

// Allow reports whether another attempt for key may proceed. Crossing the
// failure limit starts a lockout.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	lockoutKey := LockoutKey(key)

	ttl, err := l.client.TTL(ctx, lockoutKey).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check lockout status: %w", err)
	}
	if ttl > 0 {
		return false, nil
	}

	failureKey := FailureKey(key)
	count, err := l.client.Get(ctx, failureKey).Int()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to get failure count: %w", err)
	}

	if count >= l.maxFailures {
		pipe := l.client.TxPipeline()
		pipe.Set(ctx, lockoutKey, "1", l.lockoutDuration)
		pipe.Del(ctx, failureKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return false, fmt.Errorf("failed to set lockout: %w", err)
		}
		return false, nil
	}

	return true, nil
}

// RecordFailure counts a failed attempt for key
func (l *Limiter) RecordFailure(ctx context.Context, key string) error {
	failureKey := FailureKey(key)

	count, err := l.client.Incr(ctx, failureKey).Result()
	if err != nil {
		return fmt.Errorf("failed to increment failure counter: %w", err)
	}

	// Set expiry on first failure
	if count == 1 {
		if err := l.client.Expire(ctx, failureKey, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set expiry: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter and any lockout for key
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, FailureKey(key), LockoutKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset limiter: %w", err)
	}
	return nil
}
