package domain

import "time"

// TradeStatus is the lifecycle state of an executed trade.
type TradeStatus string

const (
	TradeStatusExecuted TradeStatus = "EXECUTED"
	TradeStatusFailed   TradeStatus = "FAILED"
	TradeStatusBlocked  TradeStatus = "BLOCKED"
	TradeStatusSettled  TradeStatus = "SETTLED"
)

// TradeRequest is the executor's input, derived from an Opportunity.
type TradeRequest struct {
	MarketID        string
	Slug            string
	GameID          string
	Outcome         string
	PolymarketPrice float64
	OddsPrice       float64
	Edge            float64
	Action          Action
	Stake           float64
	ExpectedProfit  float64
}

// TradeResult is the outcome of a single execution attempt.
type TradeResult struct {
	TradeID        string      `json:"trade_id"`
	Success        bool        `json:"success"`
	OrderID        string      `json:"order_id,omitempty"`
	ExecutedStake  float64     `json:"executed_stake"`
	ExpectedProfit float64     `json:"expected_profit"`
	Status         TradeStatus `json:"status"`
	ErrorMessage   string      `json:"error,omitempty"`
	ExecutedAt     time.Time   `json:"executed_at"`
}

// TradeRecord is a persisted trade row.
type TradeRecord struct {
	ID              int64       `json:"id"`
	TradeID         string      `json:"trade_id"`
	MarketID        string      `json:"polymarket_market_id"`
	Slug            string      `json:"polymarket_slug"`
	GameID          string      `json:"odds_game_id"`
	Outcome         string      `json:"outcome"`
	PolymarketPrice float64     `json:"polymarket_price"`
	OddsPrice       float64     `json:"odds_price"`
	Edge            float64     `json:"edge"`
	Action          Action      `json:"recommended_action"`
	Stake           float64     `json:"stake_amount"`
	ExpectedProfit  float64     `json:"expected_profit"`
	OrderID         string      `json:"polymarket_order_id"`
	Status          TradeStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	ExecutedAt      *time.Time  `json:"executed_at,omitempty"`
	ActualProfit    *float64    `json:"actual_profit,omitempty"`
}

// DailyPerformance aggregates trades for one UTC calendar day.
type DailyPerformance struct {
	Date          string  `json:"date"`
	TradesCount   int     `json:"trades_count"`
	TotalStake    float64 `json:"total_stake"`
	WinningTrades int     `json:"winning_trades"`
	TotalProfit   float64 `json:"total_profit"`
	AvgEdge       float64 `json:"avg_edge"`
	WinRate       float64 `json:"win_rate"`
}
