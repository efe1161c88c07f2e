// Package app wires the sportsedge dependencies and runs one of the modes:
// the scan loop, the dashboard, a one-shot report, the HTTP API, or the
// scan loop and API together.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alanyoungcy/sportsedge/internal/config"
)

type modeFunc func(a *App, ctx context.Context, deps *Dependencies, svc *services) error

// modes maps config.Mode values to their entry points.
var modes = map[string]modeFunc{
	"scan":      (*App).ScanMode,
	"dashboard": (*App).DashboardMode,
	"report":    (*App).ReportMode,
	"server":    (*App).ServerMode,
	"full":      (*App).FullMode,
}

// App owns the configuration, the dashboard's terminal streams and the
// teardown functions registered while wiring.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	closers []func()
}

// New creates an App on stdin and stdout.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		in:     os.Stdin,
		out:    os.Stdout,
	}
}

// Run wires dependencies, then blocks in the configured mode until it
// returns or ctx is cancelled. Resources stay open until Close.
func (a *App) Run(ctx context.Context) error {
	mode := strings.ToLower(a.cfg.Mode)
	run, ok := modes[mode]
	if !ok {
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.logger.InfoContext(ctx, "running",
		slog.String("mode", mode),
		slog.Bool("dry_run", a.cfg.Trading.DryRun),
		slog.Bool("redis", deps.SignalBus != nil),
		slog.Bool("archive", deps.Archiver != nil),
	)
	return run(a, ctx, deps, a.buildServices(deps))
}

// Close runs the teardown functions newest first. Later calls do nothing.
func (a *App) Close() {
	if len(a.closers) == 0 {
		return
	}
	a.logger.Info("releasing resources")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
