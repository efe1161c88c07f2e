package domain

import "time"

// MarketKeyH2H is the odds-feed market key for head-to-head (moneyline)
// prices. It is the only market type the edge engine consumes.
const MarketKeyH2H = "h2h"

// Game is one scheduled fixture from the sports-odds feed together with the
// bookmaker quotes captured in the same poll.
type Game struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title,omitempty"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Label returns the human-readable "Away @ Home" form used in reports.
func (g Game) Label() string {
	return g.AwayTeam + " @ " + g.HomeTeam
}

// Bookmaker is a single sportsbook's quotes for a game.
type Bookmaker struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	LastUpdate time.Time    `json:"last_update"`
	Markets    []BookMarket `json:"markets"`
}

// Market returns the bookmaker's market with the given key.
func (b Bookmaker) Market(key string) (BookMarket, bool) {
	for _, m := range b.Markets {
		if m.Key == key {
			return m, true
		}
	}
	return BookMarket{}, false
}

// BookMarket is a bookmaker market such as h2h, spreads or totals.
type BookMarket struct {
	Key      string        `json:"key"`
	Outcomes []BookOutcome `json:"outcomes"`
}

// BookOutcome holds one outcome's price in decimal odds. Point is only set
// for spread and total markets.
type BookOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}
