// Package server exposes the REST API, Prometheus metrics and the live
// websocket feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/server/handler"
	"github.com/alanyoungcy/sportsedge/internal/server/middleware"
	"github.com/alanyoungcy/sportsedge/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication

	// Per-client request budget, enforced only with a RateLimiter.
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates the route handlers. Nil fields leave their routes
// unregistered.
type Handlers struct {
	Health  *handler.HealthHandler
	Trades  *handler.TradeHandler
	Scan    *handler.ScanHandler
	Metrics http.Handler
	Hub     *ws.Hub
}

// Server is the HTTP + websocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// publicPaths are served without an API key.
var publicPaths = []string{"/api/health", "/metrics"}

// NewServer registers routes and wraps them in CORS, logging, rate limit
// and auth middleware, outermost first. limiter may be nil.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewHandler(cfg, handlers, limiter, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 3 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(cfg Config, handlers Handlers, limiter domain.RateLimiter, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	if handlers.Health != nil {
		mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	}
	if handlers.Trades != nil {
		mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)
		mux.HandleFunc("GET /api/trades/active", handlers.Trades.ActiveTrades)
		mux.HandleFunc("GET /api/performance", handlers.Trades.Performance)
		mux.HandleFunc("GET /api/status", handlers.Trades.Status)
	}
	if handlers.Scan != nil {
		mux.HandleFunc("GET /api/opportunities", handlers.Scan.Opportunities)
		mux.HandleFunc("POST /api/scan", handlers.Scan.TriggerScan)
	}
	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}
	if handlers.Hub != nil {
		mux.HandleFunc("GET /ws", handlers.Hub.HandleWS)
	}

	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}

	return middleware.Chain(mux,
		middleware.CORS(cfg.CORSOrigins),
		middleware.AccessLog(logger),
		middleware.RateLimit(limiter, cfg.RateLimit, window, logger),
		middleware.Auth(cfg.APIKey, publicPaths...),
	)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.logger.Info("server: starting", slog.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-errCh
}
