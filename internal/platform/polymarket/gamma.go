package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// GammaClient looks markets up on the public Gamma API.
type GammaClient struct {
	rest rest
}

// NewGammaClient creates a Gamma client rooted at baseURL, e.g.
// "https://gamma-api.polymarket.com". timeout <= 0 uses 30s.
func NewGammaClient(baseURL string, timeout time.Duration) *GammaClient {
	return &GammaClient{rest: newREST(baseURL, timeout)}
}

// GetMarketBySlug returns the market carrying slug. When Gamma has none
// the error wraps domain.ErrNotFound.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	markets, err := g.markets(ctx, url.Values{"slug": {slug}})
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: slug %s: %w", slug, err)
	}
	if len(markets) == 0 {
		return domain.Market{}, fmt.Errorf("polymarket/gamma: slug %s: %w", slug, domain.ErrNotFound)
	}
	return markets[0], nil
}

// ListMarkets pages through all markets.
func (g *GammaClient) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	markets, err := g.markets(ctx, url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	})
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list markets: %w", err)
	}
	return markets, nil
}

func (g *GammaClient) markets(ctx context.Context, q url.Values) ([]domain.Market, error) {
	var raw []APIMarket
	if err := g.rest.do(ctx, call{method: http.MethodGet, path: "/markets", query: q}, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Market, len(raw))
	for i := range raw {
		out[i] = raw[i].ToDomainMarket()
	}
	return out, nil
}

var _ domain.MarketSource = (*GammaClient)(nil)
