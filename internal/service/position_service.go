package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// PositionSummary totals the account's open positions.
type PositionSummary struct {
	Positions    []domain.Position `json:"positions"`
	InitialValue float64           `json:"initial_value"`
	CurrentValue float64           `json:"current_value"`
	CashPnL      float64           `json:"cash_pnl"`
	// PortfolioValue is the Data API's valuation of the wallet, zero when
	// the source cannot report one.
	PortfolioValue float64 `json:"portfolio_value"`
}

// valueSource is implemented by position sources that can value the whole
// wallet in one call.
type valueSource interface {
	GetPortfolioValue(ctx context.Context, user string) (float64, error)
}

// PositionService reads the wallet's live Polymarket positions.
type PositionService struct {
	source  domain.PositionSource
	address string
	logger  *slog.Logger
}

// NewPositionService creates a PositionService for the wallet address.
func NewPositionService(source domain.PositionSource, address string, logger *slog.Logger) *PositionService {
	return &PositionService{source: source, address: address, logger: logger.With(slog.String("component", "position"))}
}

// Summary fetches open positions and totals their value and PnL.
func (s *PositionService) Summary(ctx context.Context) (PositionSummary, error) {
	if s == nil || s.source == nil {
		return PositionSummary{}, fmt.Errorf("position_service: %w", domain.ErrMissingKey)
	}

	positions, err := s.source.GetPositions(ctx, s.address)
	if err != nil {
		return PositionSummary{}, fmt.Errorf("position_service: get positions: %w", err)
	}

	var initial, current, pnl decimal.Decimal
	for _, p := range positions {
		initial = initial.Add(decimal.NewFromFloat(p.InitialValue))
		current = current.Add(decimal.NewFromFloat(p.CurrentValue))
		pnl = pnl.Add(decimal.NewFromFloat(p.CashPnL))
	}

	s.logger.DebugContext(ctx, "positions loaded", slog.Int("count", len(positions)))
	sum := PositionSummary{
		Positions:    positions,
		InitialValue: initial.Round(2).InexactFloat64(),
		CurrentValue: current.Round(2).InexactFloat64(),
		CashPnL:      pnl.Round(2).InexactFloat64(),
	}
	if vs, ok := s.source.(valueSource); ok {
		v, err := vs.GetPortfolioValue(ctx, s.address)
		if err != nil {
			s.logger.WarnContext(ctx, "portfolio value unavailable", slog.String("error", err.Error()))
		} else {
			sum.PortfolioValue = v
		}
	}
	return sum, nil
}
