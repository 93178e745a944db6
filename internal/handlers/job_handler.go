package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
	"github.com/ternarybob/aranea/internal/storage/sqlite"
)

// JobHandler serves the scrape attempt history and stored results
type JobHandler struct {
	jobStore    interfaces.JobStorage
	resultStore interfaces.ResultStorage
	markdown    interfaces.MarkdownService
	logger      arbor.ILogger
}

func NewJobHandler(
	jobStore interfaces.JobStorage,
	resultStore interfaces.ResultStorage,
	markdown interfaces.MarkdownService,
	logger arbor.ILogger,
) *JobHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &JobHandler{
		jobStore:    jobStore,
		resultStore: resultStore,
		markdown:    markdown,
		logger:      logger,
	}
}

// ListJobsHandler returns job history with optional filtering
// GET /api/jobs?status=&limit=&offset=
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := 50
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil {
			offset = parsed
		}
	}

	opts := &interfaces.JobListOptions{
		Status: models.JobStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}

	jobs, err := h.jobStore.ListJobs(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"count":  len(jobs),
		"limit":  limit,
		"offset": offset,
	})
}

// GetJobStatsHandler returns job counts grouped by status
// GET /api/jobs/stats
func (h *JobHandler) GetJobStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	counts, err := h.jobStore.CountJobsByStatus(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count jobs")
		WriteError(w, http.StatusInternalServerError, "Failed to count jobs")
		return
	}

	total := 0
	for _, count := range counts {
		total += count
	}

	WriteJSON(w, http.StatusOK, map[string]int{
		"total":     total,
		"pending":   counts[models.JobStatusPending],
		"started":   counts[models.JobStatusStarted],
		"completed": counts[models.JobStatusCompleted],
		"failed":    counts[models.JobStatusFailed],
	})
}

// GetJobHandler returns a single job by ID
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := PathSegment(r, 2)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// GetJobResultsHandler returns the stored results of a job
// GET /api/jobs/{id}/results
func (h *JobHandler) GetJobResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := PathSegment(r, 2)
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	results, err := h.resultStore.GetResultsByJob(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job results")
		WriteError(w, http.StatusInternalServerError, "Failed to get job results")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"results": results,
		"count":   len(results),
	})
}

// ResultMarkdownHandler renders a stored result's cleaned HTML as markdown
// GET /api/results/{id}/markdown
func (h *JobHandler) ResultMarkdownHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	resultID := PathSegment(r, 2)
	if resultID == "" {
		WriteError(w, http.StatusBadRequest, "Result ID is required")
		return
	}

	result, err := h.resultStore.GetResult(r.Context(), resultID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Result not found")
			return
		}
		h.logger.Error().Err(err).Str("result_id", resultID).Msg("Failed to get result")
		WriteError(w, http.StatusInternalServerError, "Failed to get result")
		return
	}

	rendered, err := h.markdown.Convert(result.CleanedHTML)
	if err != nil {
		h.logger.Error().Err(err).Str("result_id", resultID).Msg("Failed to render markdown")
		WriteError(w, http.StatusInternalServerError, "Failed to render markdown")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rendered))
}
