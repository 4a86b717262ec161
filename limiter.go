package signon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles the mail-sending operations per email address. Allow
// returns nil when the attempt is admitted, ErrRateLimited when the window is
// exhausted, and an ErrUnavailable wrap when the backend cannot be reached.
type RateLimiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) error
}

// redisRateLimiter counts attempts in a fixed window: INCR on the key, TTL
// set on the first hit. The window never slides; a burst at a window boundary
// can see up to 2x max sends.
type redisRateLimiter struct {
	redis  *redis.Client
	prefix string
}

func newRedisRateLimiter(client *redis.Client) *redisRateLimiter {
	return &redisRateLimiter{
		redis:  client,
		prefix: "sgn:rl",
	}
}

func (l *redisRateLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	full := l.prefix + ":" + key

	count, err := l.redis.Incr(ctx, full).Result()
	if err != nil {
		return fmt.Errorf("%w: rate limiter incr: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, full, window).Err(); err != nil {
			return fmt.Errorf("%w: rate limiter expire: %v", ErrUnavailable, err)
		}
	}
	if count > int64(max) {
		return ErrRateLimited
	}
	return nil
}

// allowSend enforces cfg against the engine's limiter. A disabled config or
// an engine built without a limiter admits everything.
func (e *Engine) allowSend(ctx context.Context, cfg RateLimitConfig, op, email string) error {
	if !cfg.Enabled || e.limiter == nil {
		return nil
	}
	if err := e.limiter.Allow(ctx, op+":"+email, cfg.MaxSends, cfg.Window); err != nil {
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricRateLimited)
		}
		return err
	}
	return nil
}
