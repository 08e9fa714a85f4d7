package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Haleralex/walletledger/internal/application/ports"
)

var _ ports.RateLimiter = (*RedisLimiter)(nil)

// RedisLimiter is a fixed-window counter shared by all instances. One INCR
// plus an EXPIRE on the first hit of the window; the caller fails open on
// backend errors.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter allows `limit` requests per `window` per key across the
// fleet.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := l.now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, windowStart)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit backend: %w", err)
	}

	return count.Val() <= l.limit, nil
}

// Healthy pings the backend. Feeds the readiness probe.
func (l *RedisLimiter) Healthy(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
