package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediakeep/mediakeep-engine/pkg/database"
	"github.com/mediakeep/mediakeep-engine/pkg/models"
)

// IngestEventRepository provides append-only access to the webhook audit log.
type IngestEventRepository interface {
	Create(ctx context.Context, event *models.IngestEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.IngestEvent, error)
}

type ingestEventRepository struct {
	db *database.DB
}

func NewIngestEventRepository(db *database.DB) IngestEventRepository {
	return &ingestEventRepository{db: db}
}

var _ IngestEventRepository = (*ingestEventRepository)(nil)

func (r *ingestEventRepository) Create(ctx context.Context, event *models.IngestEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	payloadJSON, err := marshalJSONBany(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO ingest_events (id, user_id, event_type, payload, processed, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		event.ID,
		event.UserID,
		event.EventType,
		payloadJSON,
		event.Processed,
		event.ErrorMessage,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ingest event: %w", err)
	}

	return nil
}

func (r *ingestEventRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.IngestEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		SELECT id, user_id, event_type, processed, error_message, created_at
		FROM ingest_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingest events: %w", err)
	}
	defer rows.Close()

	var events []*models.IngestEvent
	for rows.Next() {
		var event models.IngestEvent
		err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.EventType,
			&event.Processed,
			&event.ErrorMessage,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingest event: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ingest events: %w", err)
	}

	return events, nil
}
