package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Import Job Status
// ============================================================================

// ImportJobStatus represents the lifecycle state of a bulk import run.
// State machine:
//
//	pending → running → {completed | failed}
//
// Terminal states are final; a new job must be created to re-import.
type ImportJobStatus string

const (
	ImportJobStatusPending   ImportJobStatus = "pending"
	ImportJobStatusRunning   ImportJobStatus = "running"
	ImportJobStatusCompleted ImportJobStatus = "completed"
	ImportJobStatusFailed    ImportJobStatus = "failed"
)

// ValidImportJobStatuses contains all valid status values.
var ValidImportJobStatuses = []ImportJobStatus{
	ImportJobStatusPending,
	ImportJobStatusRunning,
	ImportJobStatusCompleted,
	ImportJobStatusFailed,
}

// IsValidImportJobStatus checks if the given status is valid.
func IsValidImportJobStatus(s ImportJobStatus) bool {
	for _, v := range ValidImportJobStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsActive returns true if the job still occupies the per-user import slot.
func (s ImportJobStatus) IsActive() bool {
	return s == ImportJobStatusPending || s == ImportJobStatusRunning
}

// IsTerminal returns true if the status is a terminal state.
func (s ImportJobStatus) IsTerminal() bool {
	return s == ImportJobStatusCompleted || s == ImportJobStatusFailed
}

// CanTransitionTo returns true if transitioning from this status to the target is valid.
func (s ImportJobStatus) CanTransitionTo(target ImportJobStatus) bool {
	switch s {
	case ImportJobStatusPending:
		return target == ImportJobStatusRunning || target == ImportJobStatusFailed
	case ImportJobStatusRunning:
		return target == ImportJobStatusCompleted || target == ImportJobStatusFailed
	case ImportJobStatusCompleted, ImportJobStatusFailed:
		return false
	default:
		return false
	}
}

// ============================================================================
// Import Job Model
// ============================================================================

// ImportJob tracks one bulk-import run against the history source.
// Progress is split into two phases: 0-50% covers fetching and folding the
// source lists, 50-100% covers per-item reconciliation. ImportedCount counts
// reconciled items, not rows written - repeated imports of an unchanged
// library still report the full count.
type ImportJob struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	TaskID        string          `json:"task_id"`
	Status        ImportJobStatus `json:"status"`
	Progress      int             `json:"progress"`
	TotalItems    int             `json:"total_items"`
	ImportedCount int             `json:"imported_count"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// IsRunning returns true if the job is currently executing.
func (j *ImportJob) IsRunning() bool {
	return j.Status == ImportJobStatusRunning
}

// IsComplete returns true if the job completed successfully.
func (j *ImportJob) IsComplete() bool {
	return j.Status == ImportJobStatusCompleted
}

// HasFailed returns true if the job failed.
func (j *ImportJob) HasFailed() bool {
	return j.Status == ImportJobStatusFailed
}
