package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// DefaultMarketTTL bounds how long a resolved slug is trusted. Prices move,
// so entries are short-lived.
const DefaultMarketTTL = 2 * time.Minute

// MarketCache implements domain.MarketCache with JSON-encoded markets under
// market:slug:{slug}.
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client. A
// non-positive ttl selects DefaultMarketTTL.
func NewMarketCache(c *Client, ttl time.Duration) *MarketCache {
	if ttl <= 0 {
		ttl = DefaultMarketTTL
	}
	return &MarketCache{rdb: c.rdb, ttl: ttl}
}

func marketSlugKey(slug string) string { return "market:slug:" + slug }

// SetBySlug stores a market under slug.
func (mc *MarketCache) SetBySlug(ctx context.Context, slug string, market domain.Market) error {
	data, err := json.Marshal(market)
	if err != nil {
		return fmt.Errorf("redis: marshal market %s: %w", market.ID, err)
	}
	if err := mc.rdb.Set(ctx, marketSlugKey(slug), data, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", slug, err)
	}
	return nil
}

// GetBySlug returns the cached market for slug or domain.ErrNotFound.
func (mc *MarketCache) GetBySlug(ctx context.Context, slug string) (domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketSlugKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", slug, err)
	}

	var market domain.Market
	if err := json.Unmarshal(data, &market); err != nil {
		return domain.Market{}, fmt.Errorf("redis: unmarshal market %s: %w", slug, err)
	}
	return market, nil
}

var _ domain.MarketCache = (*MarketCache)(nil)
