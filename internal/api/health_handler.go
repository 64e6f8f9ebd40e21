package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/product-catalog-api/internal/api/shared"
	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
	"github.com/phrazzld/product-catalog-api/internal/redact"
)

// ReadinessChecker reports whether the service's dependencies are reachable.
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checker ReadinessChecker
	logger  *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checker ReadinessChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		checker: checker,
		logger:  logger.With(slog.String("component", "health_handler")),
	}
}

// Ready handles GET /health. It returns 503 when the store cannot be
// reached within the checker's timeout.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.Check(r.Context()); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("readiness check failed",
			slog.String("error", redact.Error(err)))
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// Live handles GET /health/live; it only shows the process is serving.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}
