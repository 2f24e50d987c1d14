package models

import (
	"time"

	"github.com/google/uuid"
)

// UserSettings holds a user's external-source credentials: the Trakt
// account the bulk import reads from, the TMDB key used for metadata
// lookups, and the opaque token Plex webhooks authenticate with.
type UserSettings struct {
	UserID        uuid.UUID `json:"user_id"`
	TraktUsername string    `json:"trakt_username"`
	TraktClientID string    `json:"-"`
	TMDBAPIKey    string    `json:"-"`
	WebhookToken  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasImportCredentials returns true if everything a bulk import needs is set.
func (s *UserSettings) HasImportCredentials() bool {
	return s.TraktUsername != "" && s.TraktClientID != "" && s.TMDBAPIKey != ""
}
