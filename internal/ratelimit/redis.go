package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps the per-identity counters in Redis so the ceiling
// holds across horizontally scaled instances. INCR is the atomic
// increment; the window TTL is attached on first use and Redis expiry
// replaces the sweep.
type RedisLimiter struct {
	rdb         *redis.Client
	maxRequests int
	window      time.Duration
	prefix      string
}

type RedisOption func(*RedisLimiter)

func WithPrefix(prefix string) RedisOption {
	return func(l *RedisLimiter) { l.prefix = prefix }
}

func NewRedis(rdb *redis.Client, maxRequests int, window time.Duration, opts ...RedisOption) *RedisLimiter {
	l := &RedisLimiter{
		rdb:         rdb,
		maxRequests: maxRequests,
		window:      window,
		prefix:      "ratelimit:",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLimiter) key(identity string) string {
	return l.prefix + identity
}

func (l *RedisLimiter) TryConsume(ctx context.Context, identity string) (Result, error) {
	if l.maxRequests <= 0 {
		return Result{}, nil
	}

	key := l.key(identity)

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the TTL anchored to the window's first consumption.
	pipe.ExpireNX(ctx, key, l.window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := incr.Val()
	resetAt := resetFromTTL(ttl.Val(), l.window)

	if count > int64(l.maxRequests) {
		return Result{ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Remaining: l.maxRequests - int(count), ResetAt: resetAt}, nil
}

func (l *RedisLimiter) Peek(ctx context.Context, identity string) (Result, error) {
	if l.maxRequests <= 0 {
		return Result{}, nil
	}

	key := l.key(identity)

	pipe := l.rdb.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return Result{}, err
	}

	if get.Err() == redis.Nil {
		return Result{Allowed: true, Remaining: l.maxRequests - 1}, nil
	}
	count, err := strconv.ParseInt(get.Val(), 10, 64)
	if err != nil {
		return Result{}, err
	}

	resetAt := resetFromTTL(ttl.Val(), l.window)
	if count >= int64(l.maxRequests) {
		return Result{ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Remaining: l.maxRequests - int(count) - 1, ResetAt: resetAt}, nil
}

// SweepExpired is a no-op: Redis drops expired windows itself.
func (l *RedisLimiter) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func resetFromTTL(ttl, window time.Duration) time.Time {
	if ttl <= 0 {
		ttl = window
	}
	return time.Now().Add(ttl)
}
