package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

func TestPreTradeCheck(t *testing.T) {
	loss := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		cfg  RiskConfig
		rows []domain.TradeRecord
		want error
	}{
		{
			name: "no limits",
			cfg:  RiskConfig{Bankroll: 10000},
			rows: []domain.TradeRecord{{Stake: 100, CreatedAt: fixedNow}},
		},
		{
			name: "under daily cap",
			cfg:  RiskConfig{Bankroll: 10000, MaxDailyTrades: 2},
			rows: []domain.TradeRecord{{Stake: 100, CreatedAt: fixedNow}},
		},
		{
			name: "daily cap reached",
			cfg:  RiskConfig{Bankroll: 10000, MaxDailyTrades: 2},
			rows: []domain.TradeRecord{{Stake: 100, CreatedAt: fixedNow}, {Stake: 100, CreatedAt: fixedNow}},
			want: domain.ErrRiskRejected,
		},
		{
			name: "yesterday does not count",
			cfg:  RiskConfig{Bankroll: 10000, MaxDailyTrades: 1},
			rows: []domain.TradeRecord{{Stake: 100, CreatedAt: fixedNow.Add(-24 * time.Hour)}},
		},
		{
			name: "circuit breaker tripped",
			cfg:  RiskConfig{Bankroll: 10000, MaxDrawdown: 0.05, CircuitBreakerEnabled: true},
			rows: []domain.TradeRecord{{Stake: 500, ActualProfit: loss(-500), Status: domain.TradeStatusSettled, CreatedAt: fixedNow}},
			want: domain.ErrRiskRejected,
		},
		{
			name: "circuit breaker disabled",
			cfg:  RiskConfig{Bankroll: 10000, MaxDrawdown: 0.05},
			rows: []domain.TradeRecord{{Stake: 500, ActualProfit: loss(-500), Status: domain.TradeStatusSettled, CreatedAt: fixedNow}},
		},
		{
			name: "loss within drawdown",
			cfg:  RiskConfig{Bankroll: 10000, MaxDrawdown: 0.05, CircuitBreakerEnabled: true},
			rows: []domain.TradeRecord{{Stake: 500, ActualProfit: loss(-499), Status: domain.TradeStatusSettled, CreatedAt: fixedNow}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memTradeStore{rows: tt.rows}
			r := NewRiskService(store, tt.cfg, discardLogger())
			r.now = func() time.Time { return fixedNow }

			err := r.PreTradeCheck(context.Background())
			if tt.want == nil {
				if err != nil {
					t.Fatalf("PreTradeCheck() = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("PreTradeCheck() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRiskBlocksTradeService(t *testing.T) {
	h := newTradeHarness(t)
	h.trades.rows = []domain.TradeRecord{{TradeID: "x", MarketID: "other", Stake: 10, CreatedAt: fixedNow}}
	r := NewRiskService(h.trades, RiskConfig{Bankroll: 10000, MaxDailyTrades: 1}, discardLogger())
	r.now = func() time.Time { return fixedNow }
	h.svc.SetRisk(r)

	res, err := h.svc.ExecuteOpportunity(context.Background(), opportunity("Suns", domain.ActionBuyPolymarket, 0.62, 0.1, 250))
	if err != nil {
		t.Fatalf("ExecuteOpportunity failed: %v", err)
	}
	if res.Status != domain.TradeStatusBlocked {
		t.Errorf("status = %s, want BLOCKED", res.Status)
	}
}

type fakePositions struct {
	user      string
	positions []domain.Position
	err       error
}

func (f *fakePositions) GetPositions(ctx context.Context, user string) ([]domain.Position, error) {
	f.user = user
	return f.positions, f.err
}

func TestPositionSummary(t *testing.T) {
	src := &fakePositions{positions: []domain.Position{
		{Slug: "nba-phx-sac-2025-01-15", Outcome: "Phoenix Suns", InitialValue: 100.10, CurrentValue: 120.20, CashPnL: 20.10},
		{Slug: "nhl-tor-bos-2025-01-16", Outcome: "Boston Bruins", InitialValue: 50.05, CurrentValue: 40.00, CashPnL: -10.05},
	}}
	s := NewPositionService(src, "0xwallet", discardLogger())

	sum, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if src.user != "0xwallet" {
		t.Errorf("queried user %q", src.user)
	}
	if sum.InitialValue != 150.15 || sum.CurrentValue != 160.20 || sum.CashPnL != 10.05 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Positions) != 2 {
		t.Errorf("positions = %d", len(sum.Positions))
	}
}

type valuedPositions struct {
	fakePositions
	value float64
	err   error
}

func (f *valuedPositions) GetPortfolioValue(ctx context.Context, user string) (float64, error) {
	return f.value, f.err
}

func TestPositionSummaryPortfolioValue(t *testing.T) {
	src := &valuedPositions{value: 812.5}
	sum, err := NewPositionService(src, "0xwallet", discardLogger()).Summary(context.Background())
	if err != nil || sum.PortfolioValue != 812.5 {
		t.Errorf("portfolio value = %v, %v", sum.PortfolioValue, err)
	}

	src = &valuedPositions{err: domain.ErrRateLimited}
	sum, err = NewPositionService(src, "0xwallet", discardLogger()).Summary(context.Background())
	if err != nil {
		t.Fatalf("value failure should not fail the summary: %v", err)
	}
	if sum.PortfolioValue != 0 {
		t.Errorf("portfolio value = %v, want 0", sum.PortfolioValue)
	}
}

func TestPositionSummaryErrors(t *testing.T) {
	var nilSvc *PositionService
	if _, err := nilSvc.Summary(context.Background()); !errors.Is(err, domain.ErrMissingKey) {
		t.Errorf("nil service err = %v", err)
	}

	s := NewPositionService(&fakePositions{err: domain.ErrRateLimited}, "0xwallet", discardLogger())
	if _, err := s.Summary(context.Background()); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("source error = %v", err)
	}
}
