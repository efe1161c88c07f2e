package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/service"
)

// TradeService is the part of the trade service the handlers read.
type TradeService interface {
	History(ctx context.Context, limit, offset int) ([]domain.TradeRecord, error)
	ActiveTrades(ctx context.Context) ([]domain.TradeRecord, error)
	DailyPerformance(ctx context.Context, days int) ([]domain.DailyPerformance, error)
	TotalProfit(ctx context.Context) (float64, error)
	WinRate(ctx context.Context, days int) (float64, error)
	ROI(ctx context.Context, days int) (float64, error)
	AverageEdge(ctx context.Context, days int) (float64, error)
	Status(ctx context.Context) (service.TradeStatus, error)
}

// TradeHandler serves trade history, performance and status.
type TradeHandler struct {
	trades  TradeService
	mode    string
	dryRun  bool
	clients func() int
	logger  *slog.Logger
}

// NewTradeHandler creates a TradeHandler. mode and dryRun are echoed by
// the status endpoint.
func NewTradeHandler(trades TradeService, mode string, dryRun bool, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, mode: mode, dryRun: dryRun, logger: logger}
}

// SetClients reports the connected websocket client count in status.
func (h *TradeHandler) SetClients(fn func() int) {
	h.clients = fn
}

type listTradesResponse struct {
	Trades []domain.TradeRecord `json:"trades"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListTrades returns trades newest first.
// GET /api/trades?limit=&offset=
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	trades, err := h.trades.History(r.Context(), opts.Limit, opts.Offset)
	if err != nil {
		h.fail(w, r, "list trades", err)
		return
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades, Limit: opts.Limit, Offset: opts.Offset})
}

// ActiveTrades returns executed trades awaiting settlement.
// GET /api/trades/active
func (h *TradeHandler) ActiveTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.ActiveTrades(r.Context())
	if err != nil {
		h.fail(w, r, "active trades", err)
		return
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

type performanceResponse struct {
	Days        int                       `json:"days"`
	TotalProfit float64                   `json:"total_profit"`
	WinRate     float64                   `json:"win_rate"`
	ROI         float64                   `json:"roi"`
	AverageEdge float64                   `json:"average_edge"`
	Daily       []domain.DailyPerformance `json:"daily"`
}

// Performance returns aggregate and per-day performance.
// GET /api/performance?days=30
func (h *TradeHandler) Performance(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 30)
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
		return
	}

	ctx := r.Context()
	resp := performanceResponse{Days: days}
	if resp.TotalProfit, err = h.trades.TotalProfit(ctx); err != nil {
		h.fail(w, r, "performance", err)
		return
	}
	if resp.WinRate, err = h.trades.WinRate(ctx, days); err != nil {
		h.fail(w, r, "performance", err)
		return
	}
	if resp.ROI, err = h.trades.ROI(ctx, days); err != nil {
		h.fail(w, r, "performance", err)
		return
	}
	if resp.AverageEdge, err = h.trades.AverageEdge(ctx, days); err != nil {
		h.fail(w, r, "performance", err)
		return
	}
	if resp.Daily, err = h.trades.DailyPerformance(ctx, days); err != nil {
		h.fail(w, r, "performance", err)
		return
	}
	if resp.Daily == nil {
		resp.Daily = []domain.DailyPerformance{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status returns trade counts, today's stake usage and pool stats.
// GET /api/status
func (h *TradeHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.trades.Status(r.Context())
	if err != nil {
		h.fail(w, r, "status", err)
		return
	}
	resp := map[string]any{
		"mode":    h.mode,
		"dry_run": h.dryRun,
		"trading": st,
	}
	if h.clients != nil {
		resp["ws_clients"] = h.clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TradeHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "handler: "+op+" failed", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, op+" failed")
}
