package domain

// Position is an open holding reported by the Polymarket Data API.
type Position struct {
	MarketID     string  `json:"market_id"`
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	Outcome      string  `json:"outcome"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	InitialValue float64 `json:"initial_value"`
	CurrentValue float64 `json:"current_value"`
	CashPnL      float64 `json:"cash_pnl"`
}
