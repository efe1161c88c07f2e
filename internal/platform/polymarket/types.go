package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexString accepts a JSON string or number and keeps the text form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket is a market as returned by the Gamma API.
type APIMarket struct {
	ID            string     `json:"id"`
	Question      string     `json:"question"`
	ConditionID   string     `json:"conditionId"`
	Slug          string     `json:"slug"`
	Active        flexBool   `json:"active"`
	Closed        flexBool   `json:"closed"`
	Outcomes      string     `json:"outcomes"`      // JSON-encoded: "[\"Suns\",\"Kings\"]"
	OutcomePrices string     `json:"outcomePrices"` // JSON-encoded: "[\"0.62\",\"0.38\"]"
	Volume        flexString `json:"volume"`
	EndDate       string     `json:"endDate"`
	EndDateISO    string     `json:"end_date_iso"`
	GameStartTime string     `json:"gameStartTime"`
}

// ToDomainMarket converts an APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:            m.ID,
		Question:      m.Question,
		Slug:          m.Slug,
		ConditionID:   m.ConditionID,
		Outcomes:      m.Outcomes,
		OutcomePrices: m.OutcomePrices,
		Active:        bool(m.Active),
		Closed:        bool(m.Closed),
	}
	if v, err := strconv.ParseFloat(string(m.Volume), 64); err == nil {
		dm.Volume = v
	}
	for _, s := range []string{m.EndDate, m.EndDateISO} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			dm.EndDate = t.UTC()
			break
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			dm.EndDate = t
			break
		}
	}
	return dm
}

// --------------------------------------------------------------------------
// Data API DTOs
// --------------------------------------------------------------------------

// APIPosition is an open position as returned by the Data API.
type APIPosition struct {
	ProxyWallet  string  `json:"proxyWallet"`
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	CashPnL      float64 `json:"cashPnl"`
	PercentPnL   float64 `json:"percentPnl"`
	CurPrice     float64 `json:"curPrice"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Outcome      string  `json:"outcome"`
	EndDate      string  `json:"endDate"`
}

// ToDomainPosition converts an APIPosition to a domain.Position.
func (p *APIPosition) ToDomainPosition() domain.Position {
	return domain.Position{
		MarketID:     p.ConditionID,
		Slug:         p.Slug,
		Title:        p.Title,
		Outcome:      p.Outcome,
		Size:         p.Size,
		AvgPrice:     p.AvgPrice,
		CurrentPrice: p.CurPrice,
		InitialValue: p.InitialValue,
		CurrentValue: p.CurrentValue,
		CashPnL:      p.CashPnL,
	}
}

// APIValue is one entry of the Data API /value response.
type APIValue struct {
	User  string  `json:"user"`
	Value float64 `json:"value"`
}
