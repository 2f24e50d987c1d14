package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating bounds for user ratings (inclusive).
const (
	MinRating = 1
	MaxRating = 10
)

// IsValidRating checks if the given rating is within the allowed scale.
func IsValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// UserFact is a user's relationship to a catalog item: an optional rating
// and an optional watched timestamp. A fact is created on first reference
// and only ever gains fields afterwards; merges never clear a rating or a
// watched timestamp that is already present (see services.MergeFact).
type UserFact struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	TMDBID    int64      `json:"tmdb_id"`
	MediaKind MediaKind  `json:"media_kind"`
	Rating    *int       `json:"rating,omitempty"`
	WatchedAt *time.Time `json:"watched_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HasRating returns true if a rating is present.
func (f *UserFact) HasRating() bool {
	return f.Rating != nil
}

// HasWatchedAt returns true if a watched timestamp is present.
func (f *UserFact) HasWatchedAt() bool {
	return f.WatchedAt != nil
}
