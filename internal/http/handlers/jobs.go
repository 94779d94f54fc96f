package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rayfield/solar-ai-platform/internal/conversation"
	"github.com/rayfield/solar-ai-platform/pkg/logging"
)

// JobsHandler exposes queued job status for operators.
type JobsHandler struct {
	jobs   conversation.JobRecorder
	logger *logging.Logger
}

// NewJobsHandler creates the handler.
func NewJobsHandler(jobs conversation.JobRecorder, logger *logging.Logger) *JobsHandler {
	if jobs == nil {
		panic("handlers: job recorder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &JobsHandler{jobs: jobs, logger: logger}
}

// GetJob returns one job record.
// GET /admin/jobs/{jobID}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if errors.Is(err, conversation.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		h.logger.Error("job lookup failed", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
