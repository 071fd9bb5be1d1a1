package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/carwatch/pkg/database"
	"github.com/wonny/carwatch/pkg/logger"
)

// DatabaseChecker reports the health of the metrics database
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) database.HealthStatus
}

// HealthHandler serves /health
type HealthHandler struct {
	db     DatabaseChecker
	logger *logger.Logger
}

// NewHealthHandler creates a health handler. db may be nil when the
// database is disabled.
func NewHealthHandler(db DatabaseChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log,
	}
}

// Check returns service health, including the database when configured
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  "ok",
		"service": "carwatch",
	}
	if h.db == nil {
		respondJSON(w, http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := h.db.HealthCheck(ctx)
	body["database"] = status
	if !status.Healthy {
		h.logger.WithField("error", status.Error).Warn("Database health check failed")
		body["status"] = "degraded"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	respondJSON(w, http.StatusOK, body)
}
