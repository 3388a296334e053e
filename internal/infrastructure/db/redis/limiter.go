package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding-window rate limiter backed by a Redis sorted set per
// key. It implements ports.RateLimiter and is the shared-store alternative
// to the in-memory limiter: multiple instances of the service see the same
// counters.
//
// Key format: ratelimit:<identity key>; member score = unix nanos.
type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewLimiter creates a Limiter admitting at most max submissions per key
// within window.
func NewLimiter(client *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{client: client, max: max, window: window}
}

// Allow trims expired entries, counts the live ones, and records the
// submission when admitted. The three steps run in one pipeline round-trip
// plus a conditional ZADD; concurrent callers may overcount and throttle a
// request early, never late.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	rkey := "ratelimit:" + key
	now := time.Now()
	cutoff := now.Add(-l.window).UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(cutoff, 10))
	countCmd := pipe.ZCard(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit check: %w", err)
	}

	if countCmd.Val() >= int64(l.max) {
		return false, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	pipe = l.client.Pipeline()
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, rkey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit record: %w", err)
	}
	return true, nil
}
