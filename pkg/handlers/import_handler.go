package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mediakeep/mediakeep-engine/pkg/apperrors"
	"github.com/mediakeep/mediakeep-engine/pkg/models"
	"github.com/mediakeep/mediakeep-engine/pkg/services"
)

// SubmitImportResponse acknowledges an accepted import job.
type SubmitImportResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// ImportStatusResponse reports the current state of an import job.
type ImportStatusResponse struct {
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	ImportedCount int    `json:"imported_count"`
	TotalItems    int    `json:"total_items"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// ImportHandler exposes import job submission and status polling.
type ImportHandler struct {
	imports services.ImportService
	logger  *zap.Logger
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(imports services.ImportService, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{imports: imports, logger: logger}
}

// RegisterRoutes registers the import handler's routes on the given mux.
func (h *ImportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/import", h.Submit)
	mux.HandleFunc("GET /api/import/{tid}/status", h.Status)
}

// Submit handles POST /api/import requests.
// Starts a background import for the calling user. Responds 400 when the
// user has no source credentials configured and 409 when an import is
// already pending or running.
func (h *ImportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}

	job, err := h.imports.Submit(r.Context(), userID)
	switch {
	case errors.Is(err, apperrors.ErrMissingCredentials):
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_credentials", "Source credentials are not configured")
		return
	case errors.Is(err, apperrors.ErrImportActive):
		_ = ErrorResponse(w, http.StatusConflict, "import_active", "An import is already running for this user")
		return
	case err != nil:
		h.logger.Error("Failed to submit import job", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to submit import job")
		return
	}

	response := SubmitImportResponse{
		TaskID: job.TaskID,
		Status: string(job.Status),
	}
	if err := WriteJSON(w, http.StatusAccepted, response); err != nil {
		h.logger.Error("Failed to encode submit response", zap.Error(err))
	}
}

// Status handles GET /api/import/{tid}/status requests.
// Job lookups are scoped to the calling user; a foreign task ID yields the
// same 404 as an unknown one.
func (h *ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}
	taskID := r.PathValue("tid")

	job, err := h.imports.Status(r.Context(), userID, taskID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Import job not found")
		return
	case err != nil:
		h.logger.Error("Failed to load import job", zap.String("task_id", taskID), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to load import job")
		return
	}

	if err := WriteJSON(w, http.StatusOK, statusResponse(job)); err != nil {
		h.logger.Error("Failed to encode status response", zap.Error(err))
	}
}

func statusResponse(job *models.ImportJob) ImportStatusResponse {
	return ImportStatusResponse{
		Status:        string(job.Status),
		Progress:      job.Progress,
		ImportedCount: job.ImportedCount,
		TotalItems:    job.TotalItems,
		ErrorMessage:  job.ErrorMessage,
	}
}
