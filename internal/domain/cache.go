package domain

import (
	"context"
	"time"
)

// MarketCache caches prediction-market records keyed by slug.
type MarketCache interface {
	GetBySlug(ctx context.Context, slug string) (Market, error)
	SetBySlug(ctx context.Context, slug string, market Market) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub for live opportunity and trade events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Signal bus channels.
const (
	ChannelOpportunity = "ch:opportunity"
	ChannelTrade       = "ch:trade"
	ChannelScan        = "ch:scan"
)
