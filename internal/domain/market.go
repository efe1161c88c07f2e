package domain

import "time"

// Market is a prediction-market record as returned by the Gamma API.
// Outcomes and OutcomePrices keep the platform's JSON-encoded array strings,
// e.g. `["Suns","Kings"]` and `["0.62","0.38"]`; they are decoded at the
// point of use.
type Market struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Slug          string    `json:"slug"`
	ConditionID   string    `json:"condition_id,omitempty"`
	Outcomes      string    `json:"outcomes"`
	OutcomePrices string    `json:"outcome_prices"`
	Active        bool      `json:"active"`
	Closed        bool      `json:"closed"`
	EndDate       time.Time `json:"end_date"`
	Volume        float64   `json:"volume"`
}
