package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// releaseScript deletes a lock only while it still holds the owner's token,
// so an expired holder cannot release a lock someone else took over.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

const releaseTimeout = 5 * time.Second

// LockManager hands out expiring single-holder locks. The scan loop uses
// it so only one process scans per interval.
type LockManager struct {
	rdb *redis.Client
}

// NewLockManager creates a LockManager on c.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{rdb: c.rdb}
}

// lockKey namespaces key unless the caller already did.
func lockKey(key string) string {
	if strings.HasPrefix(key, "lock:") {
		return key
	}
	return "lock:" + key
}

// Acquire takes key for ttl. When another holder has it the error wraps
// domain.ErrLockHeld and says how long that hold has left. The returned
// release func is idempotent and ignores the caller's context.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	k := lockKey(key)
	token := uuid.NewString()

	err := lm.rdb.SetArgs(ctx, k, token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		left, _ := lm.rdb.PTTL(ctx, k).Result()
		return nil, fmt.Errorf("redis: lock %s (expires in %s): %w", key, left.Round(time.Second), domain.ErrLockHeld)
	case err != nil:
		return nil, fmt.Errorf("redis: lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			_ = releaseScript.Run(rctx, lm.rdb, []string{k}, token).Err()
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
