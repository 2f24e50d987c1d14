package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediakeep/mediakeep-engine/pkg/apperrors"
	"github.com/mediakeep/mediakeep-engine/pkg/database"
	"github.com/mediakeep/mediakeep-engine/pkg/models"
)

// ImportJobRepository provides data access for bulk-import job records.
type ImportJobRepository interface {
	CreateIfNoneActive(ctx context.Context, job *models.ImportJob) error
	GetByTaskID(ctx context.Context, userID uuid.UUID, taskID string) (*models.ImportJob, error)
	Update(ctx context.Context, job *models.ImportJob) error
}

type importJobRepository struct {
	db *database.DB
}

func NewImportJobRepository(db *database.DB) ImportJobRepository {
	return &importJobRepository{db: db}
}

var _ ImportJobRepository = (*importJobRepository)(nil)

// CreateIfNoneActive inserts the job record unless the user already has a
// pending or running job. The partial unique index on (user_id) makes this
// a single atomic statement; a concurrent submission cannot slip through.
// Returns apperrors.ErrImportActive when the slot is taken.
func (r *importJobRepository) CreateIfNoneActive(ctx context.Context, job *models.ImportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.ImportJobStatusPending
	}

	query := `
		INSERT INTO import_jobs (id, user_id, task_id, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) WHERE status IN ('pending', 'running') DO NOTHING
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, job.ID, job.UserID, job.TaskID, job.Status).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrImportActive
	}
	if err != nil {
		return fmt.Errorf("failed to create import job: %w", err)
	}

	return nil
}

func (r *importJobRepository) GetByTaskID(ctx context.Context, userID uuid.UUID, taskID string) (*models.ImportJob, error) {
	query := `
		SELECT id, user_id, task_id, status, progress, total_items, imported_count,
		       error_message, created_at, updated_at, completed_at
		FROM import_jobs
		WHERE task_id = $1 AND user_id = $2`

	var job models.ImportJob
	err := r.db.QueryRow(ctx, query, taskID, userID).Scan(
		&job.ID,
		&job.UserID,
		&job.TaskID,
		&job.Status,
		&job.Progress,
		&job.TotalItems,
		&job.ImportedCount,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}

	return &job, nil
}

// Update persists the job's mutable fields. Only the single executor
// goroutine mutates a job after creation, so a plain row update is enough.
func (r *importJobRepository) Update(ctx context.Context, job *models.ImportJob) error {
	query := `
		UPDATE import_jobs
		SET status = $1, progress = $2, total_items = $3, imported_count = $4,
		    error_message = $5, completed_at = $6, updated_at = now()
		WHERE id = $7`

	tag, err := r.db.Exec(ctx, query,
		job.Status,
		job.Progress,
		job.TotalItems,
		job.ImportedCount,
		job.ErrorMessage,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
