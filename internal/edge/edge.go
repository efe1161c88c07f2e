// Package edge converts prices from the two sources into implied
// probabilities, measures the gap between them and sizes a stake.
package edge

import (
	"math"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// ImpliedProbability converts decimal odds to a probability. Odds at or
// below 1, and non-finite odds, carry no information and yield 0.
func ImpliedProbability(decimalOdds float64) float64 {
	if !finite(decimalOdds) || decimalOdds <= 1 {
		return 0
	}
	return 1 / decimalOdds
}

// PolymarketProbability returns a Polymarket price as a probability. Prices
// are already quoted in [0,1].
func PolymarketProbability(price float64) float64 {
	return price
}

// Edge is the relative gap |p1-p2| / min(p1,p2). It is 0 unless both
// probabilities are finite and strictly positive, and symmetric in its
// arguments.
func Edge(p1, p2 float64) float64 {
	if !finite(p1) || !finite(p2) || p1 <= 0 || p2 <= 0 {
		return 0
	}
	return math.Abs(p1-p2) / math.Min(p1, p2)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RecommendedAction picks the Polymarket side only when its probability is
// strictly higher; ties go to the bookmaker side.
func RecommendedAction(polyProb, oddsProb float64) domain.Action {
	if polyProb > oddsProb {
		return domain.ActionBuyPolymarket
	}
	return domain.ActionBuyOdds
}

// AmericanToDecimal converts American odds (+240, -303) to decimal odds.
// Zero is not a valid American price and yields 0.
func AmericanToDecimal(american float64) float64 {
	switch {
	case american > 0:
		return 1 + american/100
	case american < 0:
		return 1 + 100/math.Abs(american)
	default:
		return 0
	}
}

// Evaluation is the edge engine's view of one outcome pair.
type Evaluation struct {
	PolyProb float64
	OddsProb float64
	Edge     float64
	// Combined is the sum of both implied probabilities. It is diagnostic
	// only and never gates an opportunity.
	Combined float64
	Action   domain.Action
}

// Evaluate runs the full calculation for a Polymarket price and a bookmaker
// decimal price.
func Evaluate(polyPrice, decimalOdds float64) Evaluation {
	pp := PolymarketProbability(polyPrice)
	op := ImpliedProbability(decimalOdds)
	return Evaluation{
		PolyProb: pp,
		OddsProb: op,
		Edge:     Edge(pp, op),
		Combined: pp + op,
		Action:   RecommendedAction(pp, op),
	}
}
