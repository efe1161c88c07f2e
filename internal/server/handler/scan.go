package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/sportsedge/internal/domain"
	"github.com/alanyoungcy/sportsedge/internal/matcher"
	"github.com/alanyoungcy/sportsedge/internal/service"
)

// scanTimeout bounds a scan triggered over HTTP.
const scanTimeout = 2 * time.Minute

// Scanner runs scans and keeps the latest result.
type Scanner interface {
	ScanOnce(ctx context.Context) (service.ScanResult, error)
	Last() (service.ScanResult, bool)
}

// ScanHandler serves the latest opportunities and manual scan triggers.
type ScanHandler struct {
	scanner Scanner
	logger  *slog.Logger
}

// NewScanHandler creates a ScanHandler.
func NewScanHandler(scanner Scanner, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{scanner: scanner, logger: logger}
}

type opportunitiesResponse struct {
	ScanID        string               `json:"scan_id,omitempty"`
	ScannedAt     *time.Time           `json:"scanned_at,omitempty"`
	MinEdge       float64              `json:"min_edge"`
	Opportunities []domain.Opportunity `json:"opportunities"`
}

// Opportunities returns the last scan's opportunities at or above min_edge.
// GET /api/opportunities?min_edge=0.05
func (h *ScanHandler) Opportunities(w http.ResponseWriter, r *http.Request) {
	var minEdge float64
	if v := r.URL.Query().Get("min_edge"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			writeError(w, http.StatusBadRequest, "min_edge must be a non-negative number")
			return
		}
		minEdge = f
	}

	resp := opportunitiesResponse{MinEdge: minEdge, Opportunities: []domain.Opportunity{}}
	if last, ok := h.scanner.Last(); ok {
		resp.ScanID = last.ID
		resp.ScannedAt = &last.FinishedAt
		resp.Opportunities = append(resp.Opportunities, matcher.FilterByMinEdge(last.Opportunities, minEdge)...)
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerScan runs a scan and returns its result. The scan is not tied to
// the client connection, so a disconnect does not abort a trade batch.
// POST /api/scan
func (h *ScanHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), scanTimeout)
	defer cancel()

	res, err := h.scanner.ScanOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusConflict, "a scan is already running")
	case err != nil && res.ID == "":
		h.logger.ErrorContext(r.Context(), "handler: scan failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "scan failed")
	case err != nil:
		writeJSON(w, http.StatusBadGateway, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}
