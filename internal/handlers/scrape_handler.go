package handlers

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
)

// ScrapeHandler serves the synchronous one-shot scrape endpoint. It
// shares the job and result stores with the spider but never touches
// the crawl frontier: nothing it does is retried or re-enqueued.
type ScrapeHandler struct {
	scraper     interfaces.ScraperService
	filter      interfaces.FilterService
	jobStore    interfaces.JobStorage
	resultStore interfaces.ResultStorage
	validate    *validator.Validate
	logger      arbor.ILogger
}

// NewScrapeHandler creates a scrape handler. filter may be nil, which
// disables the content check.
func NewScrapeHandler(
	scraper interfaces.ScraperService,
	filter interfaces.FilterService,
	jobStore interfaces.JobStorage,
	resultStore interfaces.ResultStorage,
	logger arbor.ILogger,
) *ScrapeHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &ScrapeHandler{
		scraper:     scraper,
		filter:      filter,
		jobStore:    jobStore,
		resultStore: resultStore,
		validate:    validator.New(),
		logger:      logger,
	}
}

// ScrapeHandler handles POST /api/scrape requests
func (h *ScrapeHandler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req models.ScrapeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "url is required and must be a valid URL")
		return
	}

	ctx := r.Context()

	job := models.NewScrapeJob(req.URL)
	if err := h.jobStore.SaveJob(ctx, job); err != nil {
		h.logger.Error().Err(err).Str("url", req.URL).Msg("Failed to create scrape job")
		WriteError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}
	job.MarkStarted()
	if err := h.jobStore.SaveJob(ctx, job); err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job status")
		WriteError(w, http.StatusInternalServerError, "Failed to update job")
		return
	}

	result, err := h.scraper.Scrape(ctx, req.URL)
	if err != nil {
		h.logger.Error().Err(err).Str("url", req.URL).Msg("Scrape failed")
		h.failJob(ctx, job, err.Error())
		WriteError(w, http.StatusInternalServerError, "Scrape failed: "+err.Error())
		return
	}

	if h.filter != nil {
		if excluded, reason := h.filter.Exclude(req.URL, result.HTML); excluded {
			h.logger.Info().Str("url", req.URL).Str("reason", reason).Msg("Content excluded by filter")
			h.failJob(ctx, job, "Excluded by content filter")
			WriteJSON(w, http.StatusOK, map[string]interface{}{
				"job_id": job.ID,
				"url":    req.URL,
				"status": "excluded",
				"reason": reason,
			})
			return
		}
	}

	resultID, err := h.resultStore.SaveResult(ctx, job.ID, result)
	if err != nil {
		h.logger.Error().Err(err).Str("url", req.URL).Msg("Failed to save result")
		h.failJob(ctx, job, err.Error())
		WriteError(w, http.StatusInternalServerError, "Failed to save result")
		return
	}
	job.MarkCompleted()
	if err := h.jobStore.SaveJob(ctx, job); err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job status")
	}

	h.logger.Info().
		Str("url", req.URL).
		Str("job_id", job.ID).
		Int("article_links", len(result.ArticleLinks)).
		Msg("Scrape completed")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":         job.ID,
		"result_id":      resultID,
		"url":            result.URL,
		"status":         string(models.JobStatusCompleted),
		"meta_tags":      result.MetaTags,
		"images":         len(result.Images),
		"json_ld_blocks": len(result.JSONLDBlocks),
		"article_links":  result.ArticleLinks,
		"html_bytes":     len(result.HTML),
		"cleaned_bytes":  len(result.CleanedHTML),
	})
}

// failJob marks the job failed, logging if the status update itself fails
func (h *ScrapeHandler) failJob(ctx context.Context, job *models.ScrapeJob, message string) {
	job.MarkFailed(message)
	if err := h.jobStore.SaveJob(ctx, job); err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job status")
	}
}
