// Package executor validates trade requests against bankroll limits and
// places them through the order executor.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/metrics"
)

// Defaults for limits and pacing.
const (
	DefaultMinEdge          = 0.03
	DefaultPerTradePct      = 0.05
	DefaultDailyPct         = 0.20
	DefaultBatchDelay       = 200 * time.Millisecond
	DefaultRecentWindow     = 24 * time.Hour
	rateLimitedRetryBackoff = 500 * time.Millisecond
)

// StakeUsage reports how much stake has already been committed in a window.
type StakeUsage interface {
	StakeBetween(ctx context.Context, from, to time.Time) (float64, error)
}

// Limits bound what a single trade and a single UTC day may commit.
type Limits struct {
	MinEdge          float64
	MaxStakePerTrade float64
	MaxDailyStake    float64
}

// LimitsFromBankroll derives dollar limits from bankroll percentages,
// rounded to cents. Non-positive inputs fall back to the defaults.
func LimitsFromBankroll(bankroll, minEdge, perTradePct, dailyPct float64) Limits {
	if minEdge <= 0 {
		minEdge = DefaultMinEdge
	}
	if perTradePct <= 0 {
		perTradePct = DefaultPerTradePct
	}
	if dailyPct <= 0 {
		dailyPct = DefaultDailyPct
	}
	b := decimal.NewFromFloat(bankroll)
	return Limits{
		MinEdge:          minEdge,
		MaxStakePerTrade: b.Mul(decimal.NewFromFloat(perTradePct)).Round(2).InexactFloat64(),
		MaxDailyStake:    b.Mul(decimal.NewFromFloat(dailyPct)).Round(2).InexactFloat64(),
	}
}

// Option configures an Executor.
type Option func(*Executor)

// WithBatchDelay sets the pause between trades in a batch.
func WithBatchDelay(d time.Duration) Option {
	return func(e *Executor) {
		if d >= 0 {
			e.batchDelay = d
		}
	}
}

// WithRecentWindow sets how long an executed market/outcome stays blocked.
func WithRecentWindow(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.dedup = NewDedup(d)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics records trade attempts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// Executor turns trade requests into orders.
type Executor struct {
	placer     domain.OrderExecutor
	usage      StakeUsage
	limits     Limits
	batchDelay time.Duration
	dedup      *Dedup
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New creates an Executor. usage may be nil, in which case only the current
// batch counts against the daily limit.
func New(placer domain.OrderExecutor, usage StakeUsage, limits Limits, opts ...Option) *Executor {
	e := &Executor{
		placer:     placer,
		usage:      usage,
		limits:     limits,
		batchDelay: DefaultBatchDelay,
		dedup:      NewDedup(DefaultRecentWindow),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.dedup.now = e.now
	e.logger = e.logger.With(slog.String("component", "executor"))
	return e
}

// Limits returns the limits in force.
func (e *Executor) Limits() Limits {
	return e.limits
}

// FromOpportunity builds a trade request. Expected profit is stake times edge.
func FromOpportunity(o domain.Opportunity) domain.TradeRequest {
	return domain.TradeRequest{
		MarketID:        o.MarketID,
		Slug:            o.Slug,
		GameID:          o.GameID,
		Outcome:         o.Outcome,
		PolymarketPrice: o.PolymarketPrice,
		OddsPrice:       o.OddsPrice,
		Edge:            o.Edge,
		Action:          o.Action,
		Stake:           o.Stake,
		ExpectedProfit:  decimal.NewFromFloat(o.Stake).Mul(decimal.NewFromFloat(o.Edge)).Round(2).InexactFloat64(),
	}
}

// ValidateRequest checks a request against limits. Errors wrap
// domain.ErrInvalidTrade.
func ValidateRequest(req domain.TradeRequest, limits Limits) error {
	switch {
	case req.MarketID == "" || req.Slug == "" || req.GameID == "" || req.Outcome == "":
		return fmt.Errorf("%w: missing market, slug, game or outcome", domain.ErrInvalidTrade)
	case !(req.Stake > 0):
		return fmt.Errorf("%w: stake %.2f must be positive", domain.ErrInvalidTrade, req.Stake)
	case limits.MaxStakePerTrade > 0 && req.Stake > limits.MaxStakePerTrade:
		return fmt.Errorf("%w: stake %.2f exceeds per-trade limit %.2f", domain.ErrInvalidTrade, req.Stake, limits.MaxStakePerTrade)
	case math.IsNaN(req.Edge) || math.IsInf(req.Edge, 0):
		return fmt.Errorf("%w: edge %v is not finite", domain.ErrInvalidTrade, req.Edge)
	case req.Edge < limits.MinEdge:
		return fmt.Errorf("%w: edge %.4f below minimum %.4f", domain.ErrInvalidTrade, req.Edge, limits.MinEdge)
	case !(req.PolymarketPrice > 0 && req.PolymarketPrice <= 1):
		return fmt.Errorf("%w: polymarket price %v outside (0,1]", domain.ErrInvalidTrade, req.PolymarketPrice)
	case !(req.OddsPrice > 0) || math.IsInf(req.OddsPrice, 0):
		return fmt.Errorf("%w: odds price %v must be positive and finite", domain.ErrInvalidTrade, req.OddsPrice)
	}
	return nil
}

// TradeID formats trade_<unixms>_<marketId[:8]>_<outcome>.
func TradeID(req domain.TradeRequest, at time.Time) string {
	id := req.MarketID
	if len(id) > 8 {
		id = id[:8]
	}
	return "trade_" + strconv.FormatInt(at.UnixMilli(), 10) + "_" + id + "_" + req.Outcome
}

// OrderFor maps a request to an order. BUY_POLYMARKET buys the outcome at
// its price; anything else sells at the complement.
func OrderFor(req domain.TradeRequest) domain.OrderRequest {
	o := domain.OrderRequest{
		MarketSlug: req.Slug,
		Size:       req.Stake,
		Outcome:    req.Outcome,
	}
	if req.Action == domain.ActionBuyPolymarket {
		o.Side = domain.OrderSideBuy
		o.Price = req.PolymarketPrice
	} else {
		o.Side = domain.OrderSideSell
		o.Price = decimal.NewFromInt(1).Sub(decimal.NewFromFloat(req.PolymarketPrice)).InexactFloat64()
	}
	return o
}

func recentKey(req domain.TradeRequest) string {
	return req.MarketID + "|" + req.Outcome
}

// dayBounds returns the UTC day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// Execute validates and places one trade.
func (e *Executor) Execute(ctx context.Context, req domain.TradeRequest) domain.TradeResult {
	return e.execute(ctx, req, 0)
}

func (e *Executor) execute(ctx context.Context, req domain.TradeRequest, pending float64) domain.TradeResult {
	now := e.now().UTC()
	res := domain.TradeResult{
		TradeID:    TradeID(req, now),
		Status:     domain.TradeStatusFailed,
		ExecutedAt: now,
	}
	log := e.logger.With(
		slog.String("trade_id", res.TradeID),
		slog.String("market_id", req.MarketID),
		slog.String("outcome", req.Outcome),
	)

	defer func() {
		e.metrics.ObserveTrade(string(res.Status), res.ExecutedStake)
	}()

	if err := ValidateRequest(req, e.limits); err != nil {
		log.WarnContext(ctx, "trade rejected", slog.String("error", err.Error()))
		res.ErrorMessage = err.Error()
		return res
	}

	if e.dedup.Recent(recentKey(req)) {
		res.Status = domain.TradeStatusBlocked
		res.ErrorMessage = "market outcome executed recently"
		log.InfoContext(ctx, "trade blocked", slog.String("reason", res.ErrorMessage))
		return res
	}

	if e.limits.MaxDailyStake > 0 {
		used := pending
		if e.usage != nil {
			from, to := dayBounds(now)
			stored, err := e.usage.StakeBetween(ctx, from, to)
			if err != nil {
				res.ErrorMessage = fmt.Sprintf("daily stake lookup: %v", err)
				log.ErrorContext(ctx, "daily stake lookup failed", slog.String("error", err.Error()))
				return res
			}
			used += stored
		}
		if used+req.Stake > e.limits.MaxDailyStake {
			res.ErrorMessage = fmt.Sprintf("daily stake limit exceeded: %.2f used of %.2f", used, e.limits.MaxDailyStake)
			log.WarnContext(ctx, "trade rejected", slog.String("reason", res.ErrorMessage))
			return res
		}
	}

	order := OrderFor(req)
	out, err := e.place(ctx, order, log)
	if err != nil {
		res.ErrorMessage = fmt.Sprintf("order placement: %v", err)
		log.ErrorContext(ctx, "order placement failed", slog.String("error", err.Error()))
		return res
	}
	if !out.Success {
		res.ErrorMessage = "order rejected: " + out.ErrorMessage
		log.WarnContext(ctx, "order rejected", slog.String("message", out.ErrorMessage))
		return res
	}

	e.dedup.Mark(recentKey(req))
	res.Success = true
	res.Status = domain.TradeStatusExecuted
	res.OrderID = out.OrderID
	res.ExecutedStake = req.Stake
	res.ExpectedProfit = req.ExpectedProfit
	log.InfoContext(ctx, "trade executed",
		slog.String("order_id", out.OrderID),
		slog.String("side", string(order.Side)),
		slog.Float64("price", order.Price),
		slog.Float64("stake", req.Stake),
	)
	return res
}

// place submits the order and retries once after a short pause when the
// executor reports rate limiting.
func (e *Executor) place(ctx context.Context, order domain.OrderRequest, log *slog.Logger) (domain.OrderResult, error) {
	out, err := e.placer.Place(ctx, order)
	if err == nil || !errors.Is(err, domain.ErrRateLimited) {
		return out, err
	}

	log.WarnContext(ctx, "order rate limited, retrying once")
	select {
	case <-ctx.Done():
		return domain.OrderResult{}, ctx.Err()
	case <-time.After(rateLimitedRetryBackoff):
	}
	return e.placer.Place(ctx, order)
}

// ExecuteBatch executes requests in order with the batch delay between them.
// after, when non-nil, runs once per result before the next trade starts.
// Requests not reached because ctx ended are omitted from the results.
func (e *Executor) ExecuteBatch(ctx context.Context, reqs []domain.TradeRequest, after func(domain.TradeRequest, domain.TradeResult)) []domain.TradeResult {
	e.dedup.Cleanup()

	results := make([]domain.TradeResult, 0, len(reqs))
	var committed float64
	for i, req := range reqs {
		if i > 0 && e.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(e.batchDelay):
			}
		}
		if ctx.Err() != nil {
			return results
		}

		// With a store the committed stake is visible once after() records
		// it; without one, count it here.
		pending := 0.0
		if e.usage == nil {
			pending = committed
		}
		res := e.execute(ctx, req, pending)
		if res.Success {
			committed += res.ExecutedStake
		}
		results = append(results, res)
		if after != nil {
			after(req, res)
		}
	}
	return results
}
