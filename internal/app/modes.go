package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/sportsedge/internal/dashboard"
	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/edge"
	"github.com/alanyoungcy/sportsedge/internal/executor"
	"github.com/alanyoungcy/sportsedge/internal/matcher"
	"github.com/alanyoungcy/sportsedge/internal/server"
	"github.com/alanyoungcy/sportsedge/internal/server/handler"
	"github.com/alanyoungcy/sportsedge/internal/server/ws"
	"github.com/alanyoungcy/sportsedge/internal/service"
)

const apiRateWindow = time.Minute

// services holds the domain services shared by the modes.
type services struct {
	trades   *service.TradeService
	risk     *service.RiskService
	scan     *service.ScanService
	position *service.PositionService
}

func (a *App) buildServices(deps *Dependencies) *services {
	cfg := a.cfg

	sizer := edge.NewSizer(cfg.Trading.Bankroll)
	limits := executor.LimitsFromBankroll(
		sizer.Bankroll(),
		cfg.Trading.MinEdge,
		cfg.Trading.MaxStakePerTradePct,
		cfg.Trading.MaxDailyStakePct,
	)
	exec := executor.New(deps.Orders, deps.TradeStore, limits,
		executor.WithBatchDelay(cfg.Trading.BatchDelay.Duration),
		executor.WithRecentWindow(cfg.Trading.RecentTradeWindow.Duration),
		executor.WithLogger(a.logger),
		executor.WithMetrics(deps.Metrics),
	)

	risk := service.NewRiskService(deps.TradeStore, service.RiskConfig{
		Bankroll:              sizer.Bankroll(),
		MaxDailyTrades:        cfg.Risk.MaxDailyTrades,
		MaxDrawdown:           cfg.Risk.MaxDrawdown,
		CircuitBreakerEnabled: cfg.Risk.CircuitBreakerEnabled,
	}, a.logger)

	trades := service.NewTradeService(deps.TradeStore, deps.OpportunityStore, exec, service.TradeConfig{
		MinEdge:      cfg.Trading.MinEdge,
		RecentWindow: cfg.Trading.RecentTradeWindow.Duration,
	}, a.logger)
	trades.SetRisk(risk)
	trades.SetNotifier(deps.Notifier)
	trades.SetAudit(deps.AuditStore)
	trades.SetPoolStats(deps.PoolStats)
	if deps.Archiver != nil {
		trades.SetArchiver(deps.Archiver)
	}
	if deps.SignalBus != nil {
		trades.SetSignalBus(deps.SignalBus)
	}

	lookup := matcher.NewLookup(deps.Markets, deps.MarketCache, deps.Metrics, a.logger)
	m := matcher.NewMatcher(lookup, cfg.Matching.Concurrency, a.logger)
	asm := matcher.NewAssembler(lookup.Fresh(), sizer, cfg.Matching.SharpBooks, a.logger)

	scan := service.NewScanService(deps.Odds, m, asm, trades, service.ScanConfig{
		Sports:   cfg.Matching.Sports,
		MinEdge:  cfg.Trading.ScanMinEdge,
		Interval: cfg.Scan.Interval.Duration,
		DryRun:   cfg.Trading.DryRun,
	}, a.logger)
	scan.SetNotifier(deps.Notifier)
	scan.SetMetrics(deps.Metrics)
	if deps.LockManager != nil {
		scan.SetLockManager(deps.LockManager)
	}
	if deps.SignalBus != nil {
		scan.SetSignalBus(deps.SignalBus)
	}

	svc := &services{trades: trades, risk: risk, scan: scan}
	if deps.Positions != nil {
		svc.position = service.NewPositionService(deps.Positions, deps.Account.Address, a.logger)
	}
	return svc
}

// ScanMode runs the scan loop and, when enabled, periodic archive and
// retention cleanup.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Duration("interval", svc.scan.Interval()),
		slog.Int("sports", len(a.cfg.Matching.Sports)),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.scan.Run(ctx)
	})
	a.startMaintenance(ctx, g, svc)
	return g.Wait()
}

// DashboardMode runs the interactive dashboard on the app's input.
func (a *App) DashboardMode(ctx context.Context, _ *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting dashboard mode")
	return a.newDashboard(svc).Interactive(ctx, a.in)
}

// ReportMode prints the full dashboard once.
func (a *App) ReportMode(ctx context.Context, _ *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting report mode")
	a.newDashboard(svc).Full(ctx)
	return nil
}

// ServerMode serves the HTTP API and websocket hub only.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting server mode", slog.Int("port", a.cfg.Server.Port))

	g, ctx := errgroup.WithContext(ctx)
	a.startServer(ctx, g, deps, svc)
	return g.Wait()
}

// FullMode runs the scan loop, maintenance and the HTTP API together.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, svc *services) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Duration("interval", svc.scan.Interval()),
		slog.Int("port", a.cfg.Server.Port),
	)

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startServer(ctx, g, deps, svc)
	}
	g.Go(func() error {
		return svc.scan.Run(ctx)
	})
	a.startMaintenance(ctx, g, svc)
	return g.Wait()
}

func (a *App) newDashboard(svc *services) *dashboard.Dashboard {
	var positions dashboard.PositionReader
	if svc.position != nil {
		positions = svc.position
	}
	d := dashboard.New(svc.trades, positions, a.out, a.logger)
	d.SetColor(a.out == os.Stdout && os.Getenv("NO_COLOR") == "")
	return d
}

func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svc *services) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.cfg.Server.CORSOrigins, a.logger)
	if deps.SignalBus == nil {
		// Without Redis the services push straight into the hub.
		local := hubBus{hub: hub}
		svc.scan.SetSignalBus(local)
		svc.trades.SetSignalBus(local)
	}

	trades := handler.NewTradeHandler(svc.trades, a.cfg.Mode, a.cfg.Trading.DryRun, a.logger)
	trades.SetClients(hub.ClientCount)

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: apiRateWindow,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(time.Now().UTC(), deps.Probes),
		Trades:  trades,
		Scan:    handler.NewScanHandler(svc.scan, a.logger),
		Metrics: deps.Metrics.Handler(),
		Hub:     hub,
	}, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})
}

// startMaintenance archives and prunes old trades every backup interval
// when backups are enabled.
func (a *App) startMaintenance(ctx context.Context, g *errgroup.Group, svc *services) {
	db := a.cfg.Database
	if !db.BackupEnabled || db.RetentionDays <= 0 || db.BackupInterval.Duration <= 0 {
		return
	}
	g.Go(func() error {
		ticker := time.NewTicker(db.BackupInterval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
			rep, err := svc.trades.Cleanup(ctx, db.RetentionDays)
			if err != nil {
				a.logger.ErrorContext(ctx, "maintenance: cleanup failed", slog.String("error", err.Error()))
				continue
			}
			a.logger.InfoContext(ctx, "maintenance: cleanup complete",
				slog.Time("cutoff", rep.Cutoff),
				slog.Int64("archived", rep.Archived),
				slog.Int64("deleted_trades", rep.DeletedTrades),
				slog.Int64("deleted_opportunities", rep.DeletedOpportunities),
			)
		}
	})
}

// hubBus publishes directly to websocket clients.
type hubBus struct {
	hub *ws.Hub
}

func (b hubBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.hub.Publish(ctx, channel, payload)
	return nil
}

func (b hubBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("app: local bus does not support subscribe")
}

var _ domain.SignalBus = hubBus{}
