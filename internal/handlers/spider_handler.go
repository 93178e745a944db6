package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
)

// StatsBroadcaster pushes a stats snapshot to connected WebSocket
// clients. Satisfied by the WebSocket handler; nil disables pushes.
type StatsBroadcaster interface {
	BroadcastStats(ctx context.Context)
}

// SpiderHandler controls the crawl scheduler over HTTP
type SpiderHandler struct {
	spider      interfaces.SpiderService
	seeder      interfaces.SeederService
	broadcaster StatsBroadcaster
	logger      arbor.ILogger
}

func NewSpiderHandler(
	spider interfaces.SpiderService,
	seeder interfaces.SeederService,
	broadcaster StatsBroadcaster,
	logger arbor.ILogger,
) *SpiderHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &SpiderHandler{
		spider:      spider,
		seeder:      seeder,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// enqueueRequest accepts a single URL or a batch. Priority 0 defers to
// the priority policy.
type enqueueRequest struct {
	URL      string   `json:"url,omitempty"`
	URLs     []string `json:"urls,omitempty"`
	Priority int      `json:"priority,omitempty"`
}

// EnqueueHandler handles POST /api/spider/enqueue requests
func (h *SpiderHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req enqueueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	urls := req.URLs
	if req.URL != "" {
		urls = append([]string{req.URL}, urls...)
	}
	if len(urls) == 0 {
		WriteError(w, http.StatusBadRequest, "Either url or urls is required")
		return
	}

	summary := h.spider.EnqueueURLs(r.Context(), urls, req.Priority)

	h.logger.Info().
		Int("requested", len(urls)).
		Int("enqueued", summary.Enqueued).
		Int("skipped", summary.Skipped).
		Msg("Enqueue request processed")

	h.pushStats(r.Context())
	WriteJSON(w, http.StatusOK, summary)
}

// SeedSourcesHandler handles POST /api/spider/seed-sources requests.
// Seeding runs inline; feed sources are fetched before the response
// returns.
func (h *SpiderHandler) SeedSourcesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	summary := h.seeder.SeedAll(r.Context())

	h.pushStats(r.Context())
	WriteJSON(w, http.StatusOK, summary)
}

// StatsHandler handles GET /api/spider/stats requests
func (h *SpiderHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.spider.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to collect spider stats")
		WriteError(w, http.StatusInternalServerError, "Failed to collect stats")
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}

// StartHandler handles POST /api/spider/start requests
func (h *SpiderHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.spider.Start(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to start spider")
		WriteError(w, http.StatusInternalServerError, "Failed to start spider: "+err.Error())
		return
	}

	h.pushStats(r.Context())
	WriteSuccess(w, "Spider started")
}

// StopHandler handles POST /api/spider/stop requests
func (h *SpiderHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if err := h.spider.Stop(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to stop spider")
		WriteError(w, http.StatusInternalServerError, "Failed to stop spider: "+err.Error())
		return
	}

	h.pushStats(r.Context())
	WriteSuccess(w, "Spider stopped")
}

// pushStats broadcasts the current stats view after a mutating call
func (h *SpiderHandler) pushStats(ctx context.Context) {
	if h.broadcaster != nil {
		h.broadcaster.BroadcastStats(ctx)
	}
}
