package domain

// OrderSide is the side submitted to the order executor.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderRequest is what the order executor needs to place an order.
type OrderRequest struct {
	MarketSlug string    `json:"market_slug"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Outcome    string    `json:"outcome"`
	Side       OrderSide `json:"side"`
}

// OrderResult is the executor's reply.
type OrderResult struct {
	Success      bool   `json:"success"`
	OrderID      string `json:"orderId"`
	ErrorMessage string `json:"errorMsg"`
}
