package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mediakeep/mediakeep-engine/pkg/apperrors"
	"github.com/mediakeep/mediakeep-engine/pkg/services"
)

// maxWebhookBody bounds how much of a delivery is read. Media server
// payloads are a few KB; anything larger is not a legitimate event.
const maxWebhookBody = 1 << 20

// WebhookHandler receives push notifications from the media server.
type WebhookHandler struct {
	webhooks services.WebhookService
	logger   *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhooks services.WebhookService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// RegisterRoutes registers the webhook handler's routes on the given mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook/plex/{token}", h.Receive)
}

// Receive handles POST /webhook/plex/{token} requests.
// Plex delivers events as multipart form data with the JSON document in a
// "payload" field; a bare JSON body is accepted as well. Responds 404 for
// unknown tokens, otherwise 200 with the processed/rejected outcome.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	payload, err := readPayload(r)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Could not read webhook payload")
		return
	}

	result, err := h.webhooks.HandleEvent(r.Context(), token, payload)
	switch {
	case errors.Is(err, apperrors.ErrUnknownToken):
		_ = ErrorResponse(w, http.StatusNotFound, "unknown_token", "Unknown webhook token")
		return
	case err != nil:
		h.logger.Error("Failed to handle webhook event", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to handle webhook event")
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode webhook response", zap.Error(err))
	}
}

func readPayload(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxWebhookBody); err != nil {
			return nil, err
		}
		return []byte(r.FormValue("payload")), nil
	}
	return io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
}
