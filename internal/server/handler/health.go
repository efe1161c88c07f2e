package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// probeTimeout bounds each dependency check.
const probeTimeout = 2 * time.Second

// Probe checks one backing service.
type Probe func(ctx context.Context) error

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	startedAt time.Time
	probes    map[string]Probe
}

// NewHealthHandler creates a HealthHandler. probes may be nil.
func NewHealthHandler(startedAt time.Time, probes map[string]Probe) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, probes: probes}
}

type healthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// HealthCheck runs the probes concurrently and answers 200 "ok" when all
// pass, 503 "degraded" otherwise.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}
	status := http.StatusOK
	if len(h.probes) > 0 {
		resp.Checks = h.runProbes(r.Context())
		for _, result := range resp.Checks {
			if result != "ok" {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
	}
	writeJSON(w, status, resp)
}

func (h *HealthHandler) runProbes(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = "ok"
			if err := h.probes[name](ctx); err != nil {
				results[i] = err.Error()
			}
		}()
	}
	wg.Wait()

	out := make(map[string]string, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}
