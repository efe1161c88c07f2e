package edge

import (
	"math"

	"github.com/shopspring/decimal"
)

// Sizing policy constants. Stakes scale with edge at quarter-Kelly, never
// exceed 5% of bankroll, and never drop below $10 once there is any edge.
const (
	KellyFraction   = 0.25
	MaxFraction     = 0.05
	MinStake        = 10.0
	DefaultBankroll = 10000.0
)

var (
	kellyFraction = decimal.NewFromFloat(KellyFraction)
	maxFraction   = decimal.NewFromFloat(MaxFraction)
	minStake      = decimal.NewFromFloat(MinStake)
)

// Sizer sizes stakes against a fixed bankroll.
type Sizer struct {
	bankroll decimal.Decimal
}

// NewSizer returns a Sizer for bankroll. A non-positive bankroll falls back
// to DefaultBankroll.
func NewSizer(bankroll float64) *Sizer {
	if bankroll <= 0 {
		bankroll = DefaultBankroll
	}
	return &Sizer{bankroll: decimal.NewFromFloat(bankroll)}
}

// Bankroll returns the bankroll the sizer was built with.
func (s *Sizer) Bankroll() float64 {
	return s.bankroll.InexactFloat64()
}

// Stake returns the recommended stake in dollars, rounded to cents.
func (s *Sizer) Stake(e float64) float64 {
	f := fraction(e)
	if f.IsZero() {
		return 0
	}
	stake := s.bankroll.Mul(f)
	if stake.LessThan(minStake) {
		stake = minStake
	}
	return stake.Round(2).InexactFloat64()
}

func fraction(e float64) decimal.Decimal {
	if !(e > 0) {
		return decimal.Zero
	}
	if math.IsInf(e, 1) {
		return maxFraction
	}
	f := decimal.NewFromFloat(e).Mul(kellyFraction)
	if f.GreaterThan(maxFraction) {
		f = maxFraction
	}
	return f
}
