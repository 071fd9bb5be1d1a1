package handlers

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/wonny/carwatch/internal/scheduler"
	"github.com/wonny/carwatch/pkg/logger"
)

// JobScheduler is the part of the scheduler exposed over HTTP
type JobScheduler interface {
	GetJobStats() map[string]scheduler.JobStats
	RunJob(jobName string) error
}

// JobHandler handles scheduler endpoints
type JobHandler struct {
	scheduler JobScheduler
	logger    *logger.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(s JobScheduler, log *logger.Logger) *JobHandler {
	return &JobHandler{
		scheduler: s,
		logger:    log,
	}
}

// ListJobs returns per-job statistics sorted by name
// GET /api/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	stats := h.scheduler.GetJobStats()

	out := make([]scheduler.JobStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })

	respondJSON(w, http.StatusOK, out)
}

// TriggerJob starts a job in the background
// POST /api/jobs/{name}/run
func (h *JobHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.scheduler.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"job":    name,
	})
}
