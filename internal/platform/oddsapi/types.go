package oddsapi

import (
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// APIGame is one event as returned by GET /v4/sports/{sport}/odds.
type APIGame struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime string         `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []APIBookmaker `json:"bookmakers"`
}

// APIBookmaker is a sportsbook entry inside an APIGame.
type APIBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate string      `json:"last_update"`
	Markets    []APIMarket `json:"markets"`
}

// APIMarket is a bookmaker market (h2h, spreads, totals).
type APIMarket struct {
	Key        string       `json:"key"`
	LastUpdate string       `json:"last_update"`
	Outcomes   []APIOutcome `json:"outcomes"`
}

// APIOutcome is a single priced outcome. Price is decimal or American
// depending on the oddsFormat requested.
type APIOutcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// ToDomainGame converts an APIGame to a domain.Game. An unparseable
// commence time leaves CommenceTime zero, which later yields no slug.
// convert, when non-nil, is applied to every outcome price.
func (g *APIGame) ToDomainGame(convert func(float64) float64) domain.Game {
	dg := domain.Game{
		ID:         g.ID,
		SportKey:   g.SportKey,
		SportTitle: g.SportTitle,
		HomeTeam:   g.HomeTeam,
		AwayTeam:   g.AwayTeam,
		Bookmakers: make([]domain.Bookmaker, 0, len(g.Bookmakers)),
	}
	if t, err := time.Parse(time.RFC3339, g.CommenceTime); err == nil {
		dg.CommenceTime = t.UTC()
	}

	for _, b := range g.Bookmakers {
		db := domain.Bookmaker{
			Key:     b.Key,
			Title:   b.Title,
			Markets: make([]domain.BookMarket, 0, len(b.Markets)),
		}
		if t, err := time.Parse(time.RFC3339, b.LastUpdate); err == nil {
			db.LastUpdate = t.UTC()
		}
		for _, m := range b.Markets {
			dm := domain.BookMarket{
				Key:      m.Key,
				Outcomes: make([]domain.BookOutcome, 0, len(m.Outcomes)),
			}
			for _, o := range m.Outcomes {
				price := o.Price
				if convert != nil {
					price = convert(price)
				}
				dm.Outcomes = append(dm.Outcomes, domain.BookOutcome{
					Name:  o.Name,
					Price: price,
					Point: o.Point,
				})
			}
			db.Markets = append(db.Markets, dm)
		}
		dg.Bookmakers = append(dg.Bookmakers, db)
	}
	return dg
}
