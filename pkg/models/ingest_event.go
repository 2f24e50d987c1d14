package models

import (
	"time"

	"github.com/google/uuid"
)

// IngestEvent is the audit record for one webhook delivery. Rows are
// append-only: every delivery is recorded exactly once, accepted or not,
// and never mutated afterwards.
type IngestEvent struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	EventType    string         `json:"event_type"`
	Payload      map[string]any `json:"payload,omitempty"`
	Processed    bool           `json:"processed"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
