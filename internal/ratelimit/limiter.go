package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter throttles login attempts using Redis. Attempts are counted per
// email/IP pair inside a rolling window; exceeding the budget locks the pair
// out for a fixed duration.
type Limiter struct {
	client          *redis.Client
	window          time.Duration
	maxAttempts     int
	lockoutDuration time.Duration
}

// NewLimiter creates a new rate limiter
func NewLimiter(client *redis.Client, window time.Duration, maxAttempts int, lockoutDuration time.Duration) *Limiter {
	return &Limiter{
		client:          client,
		window:          window,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
	}
}

func (l *Limiter) attemptKey(email, ipAddress string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ipAddress, email)
}

func (l *Limiter) lockoutKey(email, ipAddress string) string {
	return fmt.Sprintf("ratelimit:lockout:%s:%s", ipAddress, email)
}

// CheckLoginAttempt checks if a login attempt is allowed.
// Returns: allowed, remaining attempts, lockout remaining, error.
func (l *Limiter) CheckLoginAttempt(ctx context.Context, email, ipAddress string) (bool, int, time.Duration, error) {
	lockoutKey := l.lockoutKey(email, ipAddress)

	ttl, err := l.client.TTL(ctx, lockoutKey).Result()
	if err != nil && err != redis.Nil {
		return false, 0, 0, fmt.Errorf("failed to check lockout status: %w", err)
	}
	if ttl > 0 {
		return false, 0, ttl, nil
	}

	attemptKey := l.attemptKey(email, ipAddress)
	count, err := l.client.Get(ctx, attemptKey).Int()
	if err != nil && err != redis.Nil {
		return false, 0, 0, fmt.Errorf("failed to get attempt count: %w", err)
	}

	remaining := l.maxAttempts - count
	if remaining <= 0 {
		// Budget exhausted; start the lockout and reset the counter.
		if err := l.client.Set(ctx, lockoutKey, "1", l.lockoutDuration).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("failed to set lockout: %w", err)
		}
		if err := l.client.Del(ctx, attemptKey).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("failed to clear attempt counter: %w", err)
		}
		return false, 0, l.lockoutDuration, nil
	}

	return true, remaining, 0, nil
}

// RecordFailedAttempt increments the failure counter, creating it with the
// window TTL on first failure.
func (l *Limiter) RecordFailedAttempt(ctx context.Context, email, ipAddress string) error {
	key := l.attemptKey(email, ipAddress)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set attempt window: %w", err)
		}
	}
	return nil
}

// RecordSuccessfulAttempt resets the failure counter.
func (l *Limiter) RecordSuccessfulAttempt(ctx context.Context, email, ipAddress string) error {
	if err := l.client.Del(ctx, l.attemptKey(email, ipAddress)).Err(); err != nil {
		return fmt.Errorf("failed to reset attempt counter: %w", err)
	}
	return nil
}
