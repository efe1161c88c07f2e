package domain

import "context"

// OddsFeed returns current games for the requested sports.
type OddsFeed interface {
	FetchGames(ctx context.Context, sportKeys []string) ([]Game, error)
}

// MarketSource resolves prediction markets. GetMarketBySlug returns
// ErrNotFound when no market carries the slug.
type MarketSource interface {
	GetMarketBySlug(ctx context.Context, slug string) (Market, error)
	ListMarkets(ctx context.Context, limit, offset int) ([]Market, error)
}

// OrderExecutor places an order on the prediction market.
type OrderExecutor interface {
	Place(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// PositionSource lists an account's open prediction-market positions.
type PositionSource interface {
	GetPositions(ctx context.Context, user string) ([]Position, error)
}
