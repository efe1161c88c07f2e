package redis

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// RateLimiter keeps a sliding window per key in a Redis sorted set, so
// every process sharing an odds API key draws from one budget.
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter on c.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{
		rdb:    c.rdb,
		script: redis.NewScript(slidingWindowLua),
		now:    time.Now,
	}
}

// rateLimitKey namespaces key unless the caller already did.
func rateLimitKey(key string) string {
	if strings.HasPrefix(key, "ratelimit:") {
		return key
	}
	return "ratelimit:" + key
}

// take admits one request for key or reports how long until a slot frees.
func (rl *RateLimiter) take(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	res, err := rl.script.Run(ctx, rl.rdb, []string{rateLimitKey(key)},
		rl.now().UnixMicro(), window.Microseconds(), limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("redis: rate limit %s: script returned %d values", key, len(res))
	}
	return res[0] == 1, time.Duration(res[1]) * time.Microsecond, nil
}

// Allow admits and counts one request for key when fewer than limit were
// admitted in the trailing window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ok, _, err := rl.take(ctx, key, limit, window)
	return ok, err
}

// Wait blocks until a request for key is admitted, sleeping until the
// oldest entry leaves the window between attempts.
func (rl *RateLimiter) Wait(ctx context.Context, key string, limit int, window time.Duration) error {
	for {
		ok, wait, err := rl.take(ctx, key, limit, window)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-t.C:
		}
	}
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
