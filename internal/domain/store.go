package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeStats summarises trades created since a point in time.
type TradeStats struct {
	Trades      int
	Settled     int
	Wins        int
	TotalStake  float64
	TotalProfit float64
	AvgEdge     float64
}

// TradeStore persists executed trades.
type TradeStore interface {
	// Record inserts the trade and marks the opportunity with the given hash
	// as traded in one transaction.
	Record(ctx context.Context, rec TradeRecord, oppHash string) error
	UpdateStatus(ctx context.Context, tradeID string, status TradeStatus) error
	Settle(ctx context.Context, tradeID string, actualProfit float64) error
	List(ctx context.Context, opts ListOpts) ([]TradeRecord, error)
	ListActive(ctx context.Context) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	HasRecent(ctx context.Context, marketID, outcome string, since time.Time) (bool, error)
	StakeBetween(ctx context.Context, from, to time.Time) (float64, error)
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
	DailyPerformance(ctx context.Context, since time.Time) ([]DailyPerformance, error)
	Stats(ctx context.Context, since time.Time) (TradeStats, error)
	Count(ctx context.Context) (int64, error)
}

// OpportunityStore tracks which opportunities have been seen or traded.
type OpportunityStore interface {
	MarkSeen(ctx context.Context, rec OpportunityRecord) error
	IsDuplicate(ctx context.Context, hash string) (bool, error)
	RecentHashes(ctx context.Context, since time.Time) ([]string, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// AuditStore appends settlement, cleanup and archive events to an audit
// log. A "trade_id" key in detail links the entry to a trade.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
}
