package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultHealthCheckTimeout = 5 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ActiveCounter reports the number of in-flight debates.
type ActiveCounter interface {
	Active() int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store   Pinger
	active  ActiveCounter
	timeout time.Duration
}

// NewHealthHandler creates a health handler. active may be nil.
func NewHealthHandler(store Pinger, active ActiveCounter, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = defaultHealthCheckTimeout
	}
	return &HealthHandler{store: store, active: active, timeout: timeout}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["leaderboard"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["leaderboard"] = "ok"
	}
	if h.active != nil {
		status["activeConversations"] = h.active.Active()
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
