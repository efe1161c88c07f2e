package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// RiskConfig holds account-level limits applied on top of per-trade sizing.
type RiskConfig struct {
	Bankroll              float64
	MaxDailyTrades        int     // 0 disables
	MaxDrawdown           float64 // fraction of bankroll lost today
	CircuitBreakerEnabled bool
}

// RiskService rejects trades once the day's trade count or realised loss
// crosses its limits.
type RiskService struct {
	trades domain.TradeStore
	cfg    RiskConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRiskService creates a RiskService.
func NewRiskService(trades domain.TradeStore, cfg RiskConfig, logger *slog.Logger) *RiskService {
	return &RiskService{
		trades: trades,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "risk")),
		now:    time.Now,
	}
}

// PreTradeCheck returns an error wrapping domain.ErrRiskRejected when a new
// trade would breach a limit.
func (s *RiskService) PreTradeCheck(ctx context.Context) error {
	start, end := utcDay(s.now())

	if s.cfg.MaxDailyTrades > 0 {
		n, err := s.trades.CountBetween(ctx, start, end)
		if err != nil {
			return fmt.Errorf("risk_service: count trades: %w", err)
		}
		if n >= s.cfg.MaxDailyTrades {
			s.logger.WarnContext(ctx, "daily trade cap reached",
				slog.Int("trades", n),
				slog.Int("max", s.cfg.MaxDailyTrades),
			)
			return fmt.Errorf("%w: %d trades today (max %d)", domain.ErrRiskRejected, n, s.cfg.MaxDailyTrades)
		}
	}

	if s.cfg.CircuitBreakerEnabled && s.cfg.MaxDrawdown > 0 && s.cfg.Bankroll > 0 {
		st, err := s.trades.Stats(ctx, start)
		if err != nil {
			return fmt.Errorf("risk_service: trade stats: %w", err)
		}
		limit := -s.cfg.MaxDrawdown * s.cfg.Bankroll
		if st.TotalProfit <= limit {
			s.logger.WarnContext(ctx, "circuit breaker tripped",
				slog.Float64("profit_today", st.TotalProfit),
				slog.Float64("limit", limit),
			)
			return fmt.Errorf("%w: circuit breaker tripped at %.2f (limit %.2f)", domain.ErrRiskRejected, st.TotalProfit, limit)
		}
	}
	return nil
}

// utcDay returns [start, end) of the UTC day containing t.
func utcDay(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
