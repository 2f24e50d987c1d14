package services

import (
	"time"

	"github.com/mediakeep/mediakeep-engine/pkg/models"
)

// FactInput is an incoming watch/rating signal from either ingestion path.
// Both fields are optional.
type FactInput struct {
	Rating    *int
	WatchedAt *time.Time
}

// MergeFact applies the fill-gap-only update rule to an existing fact and
// reports whether anything changed. A field is written only when the fact
// does not have it yet and the input does; populated fields are never
// overwritten or cleared. This is what makes bulk re-imports and repeated
// webhook deliveries idempotent and keeps user edits intact.
func MergeFact(fact *models.UserFact, in FactInput) bool {
	changed := false

	if fact.Rating == nil && in.Rating != nil {
		rating := *in.Rating
		fact.Rating = &rating
		changed = true
	}

	if fact.WatchedAt == nil && in.WatchedAt != nil {
		watchedAt := *in.WatchedAt
		fact.WatchedAt = &watchedAt
		changed = true
	}

	return changed
}
