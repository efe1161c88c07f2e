package domain

import "time"

// Action names the side an opportunity recommends acting on.
type Action string

const (
	ActionBuyPolymarket Action = "BUY_POLYMARKET"
	ActionBuyOdds       Action = "BUY_ODDS"
)

// MatchedPair joins a prediction market to an odds-feed game. It carries no
// identity beyond the two source ids.
type MatchedPair struct {
	MarketID string `json:"market_id"`
	GameID   string `json:"game_id"`
}

// Opportunity is one matched outcome with its computed edge and sizing.
// It is never mutated after the assembler creates it.
type Opportunity struct {
	MarketID           string    `json:"polymarket_id"`
	Slug               string    `json:"polymarket_slug"`
	GameID             string    `json:"odds_id"`
	GameLabel          string    `json:"odds_game"`
	Outcome            string    `json:"outcome"`
	Bookmaker          string    `json:"bookmaker"`
	PolymarketPrice    float64   `json:"polymarket_price"`
	OddsPrice          float64   `json:"odds_price"`
	Edge               float64   `json:"edge"`
	ImpliedProbability float64   `json:"implied_probability"`
	Action             Action    `json:"recommended_action"`
	Stake              float64   `json:"recommended_stake"`
	DetectedAt         time.Time `json:"detected_at"`
}

// OpportunityStatus tracks an opportunity through the trade service.
type OpportunityStatus string

const (
	OpportunityActive  OpportunityStatus = "ACTIVE"
	OpportunityTraded  OpportunityStatus = "TRADED"
	OpportunityExpired OpportunityStatus = "EXPIRED"
)

// OpportunityRecord is the persisted form of an opportunity, keyed by its
// dedup hash.
type OpportunityRecord struct {
	Hash      string
	MarketID  string
	GameID    string
	Outcome   string
	Edge      float64
	Status    OpportunityStatus
	FirstSeen time.Time
	LastSeen  time.Time
}
