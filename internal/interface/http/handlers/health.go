package handlers

import (
	"context"
	"net/http"
	"time"
)

// PingFunc checks one backing store.
type PingFunc func(ctx context.Context) error

// HealthHandler serves GET /healthz: process liveness plus one ping per
// registered store.
type HealthHandler struct {
	checks  map[string]PingFunc
	timeout time.Duration
	version string
}

// NewHealthHandler creates the handler. checks maps store name to ping.
func NewHealthHandler(checks map[string]PingFunc, version string) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 5 * time.Second, version: version}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// Healthz answers 200 when every store pings, 503 otherwise. Individual
// results are always reported so operators can see which store is down.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{
		Status:  "ok",
		Version: h.version,
		Checks:  make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}
