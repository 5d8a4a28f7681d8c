package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"marketsim-server/internal/shared/response"
)

// Pinger is a dependency whose liveness the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies"`
}

type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler reports each named dependency; a nil entry is reported as disabled.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	deps := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if dep == nil {
			deps[name] = "disabled"
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			logger.Warn("Dependency ping failed", "dependency", name, "error", err)
			deps[name] = "disconnected"
			status = "degraded"
			continue
		}
		deps[name] = "connected"
	}

	resp := HealthResponse{
		Status:       status,
		Timestamp:    time.Now().Format(time.RFC3339),
		Dependencies: deps,
	}

	response.Success(w, http.StatusOK, resp)
}
