package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/executor"
	"github.com/alanyoungcy/sportsedge/internal/notify"
)

// TradeConfig holds the trade service's thresholds.
type TradeConfig struct {
	MinEdge      float64
	RecentWindow time.Duration
}

// PoolStats is a snapshot of database pool usage for Status.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// TradeStatus is the snapshot reported by Status.
type TradeStatus struct {
	TotalTrades      int64      `json:"total_trades"`
	Opportunities    int64      `json:"tracked_opportunities"`
	ActiveTrades     int        `json:"active_trades"`
	TradesToday      int        `json:"trades_today"`
	DailyStakeUsed   float64    `json:"daily_stake_used"`
	DailyStakeLimit  float64    `json:"daily_stake_limit"`
	MaxStakePerTrade float64    `json:"max_stake_per_trade"`
	Pool             *PoolStats `json:"pool,omitempty"`
}

// CleanupReport counts what Cleanup removed.
type CleanupReport struct {
	Cutoff               time.Time `json:"cutoff"`
	Archived             int64     `json:"archived"`
	DeletedTrades        int64     `json:"deleted_trades"`
	DeletedOpportunities int64     `json:"deleted_opportunities"`
}

// TradeService gates opportunities through dedup and risk checks, executes
// them and keeps the trade history.
type TradeService struct {
	trades   domain.TradeStore
	opps     domain.OpportunityStore
	exec     *executor.Executor
	cfg      TradeConfig
	logger   *slog.Logger
	now      func() time.Time
	risk     *RiskService
	archiver domain.Archiver
	bus      domain.SignalBus
	notifier *notify.Notifier
	audit    domain.AuditStore
	pool     func() PoolStats
}

// NewTradeService creates a TradeService with its required dependencies.
func NewTradeService(
	trades domain.TradeStore,
	opps domain.OpportunityStore,
	exec *executor.Executor,
	cfg TradeConfig,
	logger *slog.Logger,
) *TradeService {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = executor.DefaultRecentWindow
	}
	if cfg.MinEdge <= 0 {
		cfg.MinEdge = exec.Limits().MinEdge
	}
	return &TradeService{
		trades: trades,
		opps:   opps,
		exec:   exec,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "trade")),
		now:    time.Now,
	}
}

// SetRisk enables account-level risk checks.
func (s *TradeService) SetRisk(r *RiskService) { s.risk = r }

// SetArchiver makes Cleanup archive trades before deleting them.
func (s *TradeService) SetArchiver(a domain.Archiver) { s.archiver = a }

// SetSignalBus publishes trade results on domain.ChannelTrade.
func (s *TradeService) SetSignalBus(b domain.SignalBus) { s.bus = b }

// SetNotifier sends trade_executed and trade_failed alerts.
func (s *TradeService) SetNotifier(n *notify.Notifier) { s.notifier = n }

// SetAudit records settlements and cleanups in the audit log.
func (s *TradeService) SetAudit(a domain.AuditStore) { s.audit = a }

// SetPoolStats adds database pool usage to Status.
func (s *TradeService) SetPoolStats(fn func() PoolStats) { s.pool = fn }

// OpportunityHash identifies an opportunity for dedup:
// marketId|gameId|outcome|YYYY-MM-DD of the detection date in UTC.
func OpportunityHash(o domain.Opportunity) string {
	return o.MarketID + "|" + o.GameID + "|" + o.Outcome + "|" + o.DetectedAt.UTC().Format("2006-01-02")
}

// CanExecute returns nil when the opportunity may be traded, otherwise an
// error wrapping domain.ErrDuplicate or domain.ErrRiskRejected, or a store
// error.
func (s *TradeService) CanExecute(ctx context.Context, o domain.Opportunity) error {
	dup, err := s.opps.IsDuplicate(ctx, OpportunityHash(o))
	if err != nil {
		return fmt.Errorf("trade_service: dedup check: %w", err)
	}
	if dup {
		return fmt.Errorf("%w: %s already traded", domain.ErrDuplicate, OpportunityHash(o))
	}

	now := s.now().UTC()
	recent, err := s.trades.HasRecent(ctx, o.MarketID, o.Outcome, now.Add(-s.cfg.RecentWindow))
	if err != nil {
		return fmt.Errorf("trade_service: recent trade check: %w", err)
	}
	if recent {
		return fmt.Errorf("%w: %s/%s traded within %s", domain.ErrDuplicate, o.MarketID, o.Outcome, s.cfg.RecentWindow)
	}

	limits := s.exec.Limits()
	used, err := s.DailyStakeUsed(ctx, now)
	if err != nil {
		return err
	}
	if used+o.Stake > limits.MaxDailyStake {
		return fmt.Errorf("%w: daily stake %.2f + %.2f exceeds %.2f", domain.ErrRiskRejected, used, o.Stake, limits.MaxDailyStake)
	}
	if o.Edge < s.cfg.MinEdge {
		return fmt.Errorf("%w: edge %.4f below %.4f", domain.ErrRiskRejected, o.Edge, s.cfg.MinEdge)
	}
	if o.Stake > limits.MaxStakePerTrade {
		return fmt.Errorf("%w: stake %.2f exceeds per-trade max %.2f", domain.ErrRiskRejected, o.Stake, limits.MaxStakePerTrade)
	}

	if s.risk != nil {
		if err := s.risk.PreTradeCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteOpportunity trades a single opportunity. A blocked opportunity
// comes back with status BLOCKED and is not sent to the executor.
func (s *TradeService) ExecuteOpportunity(ctx context.Context, o domain.Opportunity) (domain.TradeResult, error) {
	if err := s.CanExecute(ctx, o); err != nil {
		if !isBlock(err) {
			return domain.TradeResult{}, err
		}
		return s.blocked(o, err), nil
	}

	results, err := s.execute(ctx, []domain.Opportunity{o})
	if err != nil {
		return domain.TradeResult{}, err
	}
	if len(results) == 0 {
		return domain.TradeResult{}, fmt.Errorf("trade_service: execute: %w", ctx.Err())
	}
	return results[0], nil
}

// ExecuteOpportunities drops blocked opportunities, then executes the rest
// as one paced batch. Results cover only the opportunities sent to the
// executor, in input order.
func (s *TradeService) ExecuteOpportunities(ctx context.Context, opps []domain.Opportunity) ([]domain.TradeResult, error) {
	var allowed []domain.Opportunity
	for _, o := range opps {
		err := s.CanExecute(ctx, o)
		if err == nil {
			allowed = append(allowed, o)
			continue
		}
		if !isBlock(err) {
			return nil, err
		}
		s.logger.InfoContext(ctx, "opportunity blocked",
			slog.String("hash", OpportunityHash(o)),
			slog.String("reason", err.Error()),
		)
	}

	if len(allowed) == 0 {
		return nil, nil
	}
	s.logger.InfoContext(ctx, "executing batch",
		slog.Int("candidates", len(opps)),
		slog.Int("allowed", len(allowed)),
	)
	return s.execute(ctx, allowed)
}

func isBlock(err error) bool {
	return errors.Is(err, domain.ErrDuplicate) || errors.Is(err, domain.ErrRiskRejected)
}

func (s *TradeService) blocked(o domain.Opportunity, reason error) domain.TradeResult {
	now := s.now().UTC()
	return domain.TradeResult{
		TradeID:      executor.TradeID(executor.FromOpportunity(o), now),
		Status:       domain.TradeStatusBlocked,
		ErrorMessage: reason.Error(),
		ExecutedAt:   now,
	}
}

// execute marks every opportunity seen, then runs the batch. Each success
// is recorded together with flipping its opportunity to TRADED.
func (s *TradeService) execute(ctx context.Context, opps []domain.Opportunity) ([]domain.TradeResult, error) {
	hashes := make(map[string]string, len(opps))
	reqs := make([]domain.TradeRequest, 0, len(opps))
	now := s.now().UTC()

	for _, o := range opps {
		h := OpportunityHash(o)
		err := s.opps.MarkSeen(ctx, domain.OpportunityRecord{
			Hash:     h,
			MarketID: o.MarketID,
			GameID:   o.GameID,
			Outcome:  o.Outcome,
			Edge:     o.Edge,
			Status:   domain.OpportunityActive,
			LastSeen: now,
		})
		if err != nil {
			return nil, fmt.Errorf("trade_service: mark seen: %w", err)
		}
		req := executor.FromOpportunity(o)
		hashes[req.MarketID+"|"+req.GameID+"|"+req.Outcome] = h
		reqs = append(reqs, req)
	}

	results := s.exec.ExecuteBatch(ctx, reqs, func(req domain.TradeRequest, res domain.TradeResult) {
		if res.Success {
			s.record(ctx, req, res, hashes[req.MarketID+"|"+req.GameID+"|"+req.Outcome])
		}
		s.announce(ctx, req, res)
	})
	return results, nil
}

func (s *TradeService) record(ctx context.Context, req domain.TradeRequest, res domain.TradeResult, hash string) {
	executedAt := res.ExecutedAt
	rec := domain.TradeRecord{
		TradeID:         res.TradeID,
		MarketID:        req.MarketID,
		Slug:            req.Slug,
		GameID:          req.GameID,
		Outcome:         req.Outcome,
		PolymarketPrice: req.PolymarketPrice,
		OddsPrice:       req.OddsPrice,
		Edge:            req.Edge,
		Action:          req.Action,
		Stake:           res.ExecutedStake,
		ExpectedProfit:  res.ExpectedProfit,
		OrderID:         res.OrderID,
		Status:          res.Status,
		CreatedAt:       res.ExecutedAt,
		ExecutedAt:      &executedAt,
	}
	if err := s.trades.Record(ctx, rec, hash); err != nil {
		// The order is live; losing the row must be loud.
		s.logger.ErrorContext(ctx, "record trade failed",
			slog.String("trade_id", res.TradeID),
			slog.String("order_id", res.OrderID),
			slog.String("error", err.Error()),
		)
		_ = s.notifier.Notify(ctx, notify.EventError, "Trade not recorded",
			fmt.Sprintf("%s (order %s): %v", res.TradeID, res.OrderID, err))
	}
}

func (s *TradeService) announce(ctx context.Context, req domain.TradeRequest, res domain.TradeResult) {
	if s.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"event":   "trade",
			"trade":   res,
			"slug":    req.Slug,
			"outcome": req.Outcome,
			"edge":    req.Edge,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "encode trade event failed",
				slog.String("trade_id", res.TradeID),
				slog.String("error", err.Error()),
			)
		} else if err := s.bus.Publish(ctx, domain.ChannelTrade, payload); err != nil {
			s.logger.WarnContext(ctx, "publish trade failed",
				slog.String("trade_id", res.TradeID),
				slog.String("error", err.Error()),
			)
		}
	}
	event, title, msg := notify.TradeMessage(req, res)
	_ = s.notifier.Notify(ctx, event, title, msg)
}

// History returns trades newest first.
func (s *TradeService) History(ctx context.Context, limit, offset int) ([]domain.TradeRecord, error) {
	trades, err := s.trades.List(ctx, domain.ListOpts{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("trade_service: history: %w", err)
	}
	return trades, nil
}

// ActiveTrades returns executed trades that have not been settled.
func (s *TradeService) ActiveTrades(ctx context.Context) ([]domain.TradeRecord, error) {
	trades, err := s.trades.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("trade_service: active trades: %w", err)
	}
	return trades, nil
}

// since returns the start of the UTC day days-1 days ago. days <= 0 means
// all time.
func (s *TradeService) since(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	start, _ := utcDay(s.now())
	return start.AddDate(0, 0, -(days - 1))
}

// DailyPerformance returns per-day aggregates for the last days days.
func (s *TradeService) DailyPerformance(ctx context.Context, days int) ([]domain.DailyPerformance, error) {
	perf, err := s.trades.DailyPerformance(ctx, s.since(days))
	if err != nil {
		return nil, fmt.Errorf("trade_service: daily performance: %w", err)
	}
	return perf, nil
}

func (s *TradeService) stats(ctx context.Context, days int) (domain.TradeStats, error) {
	st, err := s.trades.Stats(ctx, s.since(days))
	if err != nil {
		return domain.TradeStats{}, fmt.Errorf("trade_service: stats: %w", err)
	}
	return st, nil
}

// TotalProfit sums realised profit over all settled trades.
func (s *TradeService) TotalProfit(ctx context.Context) (float64, error) {
	st, err := s.stats(ctx, 0)
	if err != nil {
		return 0, err
	}
	return st.TotalProfit, nil
}

// WinRate is winning settled trades over settled trades.
func (s *TradeService) WinRate(ctx context.Context, days int) (float64, error) {
	st, err := s.stats(ctx, days)
	if err != nil || st.Settled == 0 {
		return 0, err
	}
	return float64(st.Wins) / float64(st.Settled), nil
}

// ROI is realised profit over total stake.
func (s *TradeService) ROI(ctx context.Context, days int) (float64, error) {
	st, err := s.stats(ctx, days)
	if err != nil || st.TotalStake == 0 {
		return 0, err
	}
	return decimal.NewFromFloat(st.TotalProfit).
		Div(decimal.NewFromFloat(st.TotalStake)).
		Round(4).InexactFloat64(), nil
}

// AverageEdge is the mean edge of trades taken.
func (s *TradeService) AverageEdge(ctx context.Context, days int) (float64, error) {
	st, err := s.stats(ctx, days)
	if err != nil {
		return 0, err
	}
	return st.AvgEdge, nil
}

// DailyStakeUsed sums the stake committed on date's UTC day.
func (s *TradeService) DailyStakeUsed(ctx context.Context, date time.Time) (float64, error) {
	start, end := utcDay(date)
	used, err := s.trades.StakeBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("trade_service: daily stake: %w", err)
	}
	return used, nil
}

// TradeCount counts trades on date's UTC day.
func (s *TradeService) TradeCount(ctx context.Context, date time.Time) (int, error) {
	start, end := utcDay(date)
	n, err := s.trades.CountBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("trade_service: trade count: %w", err)
	}
	return n, nil
}

// UpdateStatus changes a trade's status.
func (s *TradeService) UpdateStatus(ctx context.Context, tradeID string, status domain.TradeStatus) error {
	if err := s.trades.UpdateStatus(ctx, tradeID, status); err != nil {
		return fmt.Errorf("trade_service: update status: %w", err)
	}
	return nil
}

// SettleTrade records a trade's realised profit.
func (s *TradeService) SettleTrade(ctx context.Context, tradeID string, actualProfit float64) error {
	if err := s.trades.Settle(ctx, tradeID, actualProfit); err != nil {
		return fmt.Errorf("trade_service: settle: %w", err)
	}
	s.auditLog(ctx, "trade.settled", map[string]any{
		"trade_id":      tradeID,
		"actual_profit": actualProfit,
	})
	return nil
}

// Cleanup removes trades and opportunities older than daysToKeep. With an
// archiver configured, trades are uploaded first and nothing is deleted if
// the upload fails.
func (s *TradeService) Cleanup(ctx context.Context, daysToKeep int) (CleanupReport, error) {
	if daysToKeep <= 0 {
		return CleanupReport{}, fmt.Errorf("trade_service: cleanup: days to keep must be positive, got %d", daysToKeep)
	}
	start, _ := utcDay(s.now())
	rep := CleanupReport{Cutoff: start.AddDate(0, 0, -daysToKeep)}

	if s.archiver != nil {
		n, err := s.archiver.ArchiveTrades(ctx, rep.Cutoff)
		if err != nil {
			return rep, fmt.Errorf("trade_service: archive: %w", err)
		}
		rep.Archived = n
	}

	var err error
	if rep.DeletedTrades, err = s.trades.DeleteBefore(ctx, rep.Cutoff); err != nil {
		return rep, fmt.Errorf("trade_service: delete trades: %w", err)
	}
	if rep.DeletedOpportunities, err = s.opps.DeleteBefore(ctx, rep.Cutoff); err != nil {
		return rep, fmt.Errorf("trade_service: delete opportunities: %w", err)
	}

	s.logger.InfoContext(ctx, "cleanup complete",
		slog.Time("cutoff", rep.Cutoff),
		slog.Int64("archived", rep.Archived),
		slog.Int64("trades", rep.DeletedTrades),
		slog.Int64("opportunities", rep.DeletedOpportunities),
	)
	s.auditLog(ctx, "trade.cleanup", map[string]any{
		"cutoff":        rep.Cutoff.Format(time.RFC3339),
		"archived":      rep.Archived,
		"trades":        rep.DeletedTrades,
		"opportunities": rep.DeletedOpportunities,
	})
	return rep, nil
}

// Status reports table sizes, today's usage and pool stats.
func (s *TradeService) Status(ctx context.Context) (TradeStatus, error) {
	var st TradeStatus
	var err error

	if st.TotalTrades, err = s.trades.Count(ctx); err != nil {
		return st, fmt.Errorf("trade_service: status: %w", err)
	}
	if st.Opportunities, err = s.opps.Count(ctx); err != nil {
		return st, fmt.Errorf("trade_service: status: %w", err)
	}
	active, err := s.ActiveTrades(ctx)
	if err != nil {
		return st, err
	}
	st.ActiveTrades = len(active)

	now := s.now()
	if st.TradesToday, err = s.TradeCount(ctx, now); err != nil {
		return st, err
	}
	if st.DailyStakeUsed, err = s.DailyStakeUsed(ctx, now); err != nil {
		return st, err
	}
	limits := s.exec.Limits()
	st.DailyStakeLimit = limits.MaxDailyStake
	st.MaxStakePerTrade = limits.MaxStakePerTrade
	if s.pool != nil {
		p := s.pool()
		st.Pool = &p
	}
	return st, nil
}

func (s *TradeService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
