package handlers

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/wonny/carwatch/internal/pipeline"
	"github.com/wonny/carwatch/internal/snapshot"
	"github.com/wonny/carwatch/pkg/logger"
	"github.com/wonny/carwatch/pkg/redis"
)

// LastRunSource remembers the most recent in-process run
type LastRunSource interface {
	LastResult() *pipeline.RunResult
}

// RunHandler serves pipeline runs and their dated outputs
// ⭐ SSOT: 실행 결과 API는 이 핸들러에서만
type RunHandler struct {
	repo   *snapshot.Repository
	cache  *redis.Cache
	source LastRunSource
	logger *logger.Logger
}

// NewRunHandler creates a new run handler. cache and source may be nil.
func NewRunHandler(repo *snapshot.Repository, cache *redis.Cache, source LastRunSource, log *logger.Logger) *RunHandler {
	return &RunHandler{
		repo:   repo,
		cache:  cache,
		source: source,
		logger: log,
	}
}

// GetLatestRun returns the last run result
// GET /api/runs/latest
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var res pipeline.RunResult
		found, err := h.cache.Get(r.Context(), redis.LatestRunKey(), &res)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to read latest run from cache")
		}
		if found {
			respondJSON(w, http.StatusOK, res)
			return
		}
	}

	if h.source != nil {
		if res := h.source.LastResult(); res != nil {
			respondJSON(w, http.StatusOK, res)
			return
		}
	}

	respondError(w, http.StatusNotFound, "No pipeline run recorded yet")
}

// ListSnapshots returns the stored date keys, ascending
// GET /api/snapshots
func (h *RunHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	dates, err := h.repo.Dates()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}
	if dates == nil {
		dates = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dates": dates,
	})
}

// GetReport streams one CSV report of a date
// GET /api/snapshots/{date}/reports/{name}
func (h *RunHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	date, name := vars["date"], vars["name"]

	if snapshot.ValidateDateKey(date) != nil || snapshot.ValidateDateKey(name) != nil {
		respondError(w, http.StatusBadRequest, "Invalid date or report name")
		return
	}

	data, err := os.ReadFile(h.repo.ReportPath(date, name))
	if os.IsNotExist(err) {
		respondError(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to read report")
		respondError(w, http.StatusInternalServerError, "Failed to read report")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
