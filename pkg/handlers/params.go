package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserIDHeader carries the authenticated user's identity, set by the
// fronting proxy after session validation.
const UserIDHeader = "X-User-ID"

// ParseUserID extracts and validates the user ID from the request headers.
// Returns the parsed UUID and true on success, or uuid.Nil and false on
// error (after writing an error response).
func ParseUserID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.Header.Get(UserIDHeader)
	if idStr == "" {
		if err := ErrorResponse(w, http.StatusUnauthorized, "missing_user", "Missing "+UserIDHeader+" header"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_user", "Invalid user ID format"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
