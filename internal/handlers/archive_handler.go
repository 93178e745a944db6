package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/aranea/internal/common"
	"github.com/ternarybob/aranea/internal/interfaces"
	"github.com/ternarybob/aranea/internal/models"
	"github.com/ternarybob/aranea/internal/services/archive"
)

// ArchiveHandler serves replay requests against the fetch archive
type ArchiveHandler struct {
	archive  interfaces.ArchiveService
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewArchiveHandler(archiveService interfaces.ArchiveService, logger arbor.ILogger) *ArchiveHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &ArchiveHandler{
		archive:  archiveService,
		validate: validator.New(),
		logger:   logger,
	}
}

// ReplayHandler re-runs distillation on the newest archived body for a
// URL without refetching or touching the frontier
// POST /api/archive/replay
func (h *ArchiveHandler) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if h.archive == nil {
		WriteError(w, http.StatusServiceUnavailable, "Archive is not enabled")
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

	result, err := h.archive.Replay(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, archive.ErrNotArchived) {
			WriteError(w, http.StatusNotFound, "No archived fetch for URL")
			return
		}
		h.logger.Error().Err(err).Str("url", req.URL).Msg("Failed to replay archived fetch")
		WriteError(w, http.StatusInternalServerError, "Failed to replay archived fetch")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
