package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/matcher"
	"github.com/alanyoungcy/sportsedge/internal/metrics"
	"github.com/alanyoungcy/sportsedge/internal/notify"
)

// Scan defaults.
const (
	DefaultScanInterval = 300 * time.Second
	DefaultScanMinEdge  = 0.02
	scanLockKey         = "lock:scan"
)

// ScanConfig controls a scan pass.
type ScanConfig struct {
	Sports   []string
	MinEdge  float64
	Interval time.Duration
	DryRun   bool
}

// ScanResult is the outcome of one pass, kept for the HTTP API.
type ScanResult struct {
	ID            string               `json:"id"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
	Games         int                  `json:"games"`
	Match         matcher.MatchStats   `json:"match"`
	Opportunities []domain.Opportunity `json:"opportunities"`
	Trades        []domain.TradeResult `json:"trades,omitempty"`
	DryRun        bool                 `json:"dry_run"`
	Error         string               `json:"error,omitempty"`
}

// ScanService runs fetch, match, assemble and filter, then hands the
// surviving opportunities to the trade service.
type ScanService struct {
	feed      domain.OddsFeed
	matcher   *matcher.Matcher
	assembler *matcher.Assembler
	cfg       ScanConfig
	logger    *slog.Logger

	trader   *TradeService
	locks    domain.LockManager
	bus      domain.SignalBus
	notifier *notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
	seq      func() string

	mu   sync.RWMutex
	last *ScanResult
}

// NewScanService creates a ScanService. trader may be nil, which behaves
// like dry-run.
func NewScanService(
	feed domain.OddsFeed,
	m *matcher.Matcher,
	a *matcher.Assembler,
	trader *TradeService,
	cfg ScanConfig,
	logger *slog.Logger,
) *ScanService {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultScanInterval
	}
	if cfg.MinEdge <= 0 {
		cfg.MinEdge = DefaultScanMinEdge
	}
	return &ScanService{
		feed:      feed,
		matcher:   m,
		assembler: a,
		trader:    trader,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "scan")),
		now:       time.Now,
		seq:       func() string { return uuid.NewString()[:8] },
	}
}

// SetLockManager serialises scans across replicas.
func (s *ScanService) SetLockManager(l domain.LockManager) { s.locks = l }

// SetSignalBus publishes opportunities and scan summaries.
func (s *ScanService) SetSignalBus(b domain.SignalBus) { s.bus = b }

// SetNotifier sends opportunity_detected and error alerts.
func (s *ScanService) SetNotifier(n *notify.Notifier) { s.notifier = n }

// SetMetrics records scan metrics.
func (s *ScanService) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Interval returns the loop interval.
func (s *ScanService) Interval() time.Duration { return s.cfg.Interval }

// Last returns the most recent completed scan.
func (s *ScanService) Last() (ScanResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return ScanResult{}, false
	}
	return *s.last, true
}

// ScanOnce runs one pass. When another replica holds the scan lock it
// returns an error wrapping domain.ErrLockHeld and does nothing.
func (s *ScanService) ScanOnce(ctx context.Context) (ScanResult, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, scanLockKey, s.cfg.Interval)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.InfoContext(ctx, "scan skipped, lock held elsewhere")
				s.metrics.ObserveScan("skipped", 0)
			}
			return ScanResult{}, fmt.Errorf("scan: %w", err)
		}
		defer unlock()
	}

	res := ScanResult{
		ID:        s.seq(),
		StartedAt: s.now().UTC(),
		DryRun:    s.cfg.DryRun || s.trader == nil,
	}
	log := s.logger.With(slog.String("scan_id", res.ID))

	err := s.scan(ctx, &res, log)
	res.FinishedAt = s.now().UTC()
	if err != nil {
		res.Error = err.Error()
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()

	result := "ok"
	if err != nil {
		result = "error"
		_ = s.notifier.Notify(ctx, notify.EventError, "Scan failed", err.Error())
	}
	s.metrics.ObserveScan(result, res.FinishedAt.Sub(res.StartedAt))
	s.publish(ctx, domain.ChannelScan, map[string]any{
		"event":         "scan",
		"id":            res.ID,
		"games":         res.Games,
		"matched":       res.Match.Matched,
		"opportunities": len(res.Opportunities),
		"trades":        len(res.Trades),
		"error":         res.Error,
	})

	log.InfoContext(ctx, "scan complete",
		slog.Int("games", res.Games),
		slog.Int("matched", res.Match.Matched),
		slog.Int("opportunities", len(res.Opportunities)),
		slog.Int("trades", len(res.Trades)),
		slog.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, err
}

func (s *ScanService) scan(ctx context.Context, res *ScanResult, log *slog.Logger) error {
	games, err := s.feed.FetchGames(ctx, s.cfg.Sports)
	if err != nil {
		return fmt.Errorf("fetch games: %w", err)
	}
	res.Games = len(games)

	pairs, stats := s.matcher.Match(ctx, games)
	res.Match = stats
	s.metrics.ObserveMatch(stats.Matched, stats.NoSlug, stats.NoMarket)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	all := s.assembler.AssembleAll(ctx, pairs, games)
	res.Opportunities = matcher.FilterByMinEdge(all, s.cfg.MinEdge)
	log.DebugContext(ctx, "opportunities assembled",
		slog.Int("pairs", len(pairs)),
		slog.Int("assembled", len(all)),
		slog.Int("above_min_edge", len(res.Opportunities)),
	)

	for _, o := range res.Opportunities {
		s.metrics.ObserveOpportunity(string(o.Action), o.Edge)
		s.publish(ctx, domain.ChannelOpportunity, o)
	}
	if len(res.Opportunities) > 0 {
		title, msg := notify.OpportunityMessage(res.Opportunities)
		_ = s.notifier.Notify(ctx, notify.EventOpportunity, title, msg)
	}

	if res.DryRun || len(res.Opportunities) == 0 {
		return nil
	}
	trades, err := s.trader.ExecuteOpportunities(ctx, res.Opportunities)
	res.Trades = trades
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	return nil
}

func (s *ScanService) publish(ctx context.Context, channel string, v any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnContext(ctx, "encode event failed", slog.String("channel", channel), slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// Run scans immediately and then every interval until ctx is done. Failed
// passes are logged; the loop keeps going.
func (s *ScanService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scan loop started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Bool("dry_run", s.cfg.DryRun),
	)
	defer s.logger.Info("scan loop stopped")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.ScanOnce(ctx); err != nil && !errors.Is(err, domain.ErrLockHeld) && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "scan failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
