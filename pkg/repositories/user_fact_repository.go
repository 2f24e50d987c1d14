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

// UserFactRepository provides data access for per-user watch/rating facts.
type UserFactRepository interface {
	Get(ctx context.Context, userID uuid.UUID, key models.CatalogKey) (*models.UserFact, error)
	GetOrCreate(ctx context.Context, fact *models.UserFact) (*models.UserFact, bool, error)
	Update(ctx context.Context, fact *models.UserFact) error
}

type userFactRepository struct {
	db *database.DB
}

func NewUserFactRepository(db *database.DB) UserFactRepository {
	return &userFactRepository{db: db}
}

var _ UserFactRepository = (*userFactRepository)(nil)

func (r *userFactRepository) Get(ctx context.Context, userID uuid.UUID, key models.CatalogKey) (*models.UserFact, error) {
	query := `
		SELECT id, user_id, tmdb_id, media_kind, rating, watched_at, created_at, updated_at
		FROM user_facts
		WHERE user_id = $1 AND tmdb_id = $2 AND media_kind = $3`

	var fact models.UserFact
	err := r.db.QueryRow(ctx, query, userID, key.TMDBID, key.MediaKind).Scan(
		&fact.ID,
		&fact.UserID,
		&fact.TMDBID,
		&fact.MediaKind,
		&fact.Rating,
		&fact.WatchedAt,
		&fact.CreatedAt,
		&fact.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user fact: %w", err)
	}

	return &fact, nil
}

// GetOrCreate inserts the fact if no row exists for (user, tmdb_id,
// media_kind), otherwise returns the existing row untouched. The insert and
// the fallback read together are race-safe: a concurrent insert loses the
// ON CONFLICT and is picked up by the re-read, never a duplicate row.
func (r *userFactRepository) GetOrCreate(ctx context.Context, fact *models.UserFact) (*models.UserFact, bool, error) {
	if fact.ID == uuid.Nil {
		fact.ID = uuid.New()
	}

	query := `
		INSERT INTO user_facts (id, user_id, tmdb_id, media_kind, rating, watched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, tmdb_id, media_kind) DO NOTHING
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		fact.ID,
		fact.UserID,
		fact.TMDBID,
		fact.MediaKind,
		fact.Rating,
		fact.WatchedAt,
	).Scan(&fact.ID, &fact.CreatedAt, &fact.UpdatedAt)
	if err == nil {
		return fact, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create user fact: %w", err)
	}

	existing, err := r.Get(ctx, fact.UserID, models.CatalogKey{MediaKind: fact.MediaKind, TMDBID: fact.TMDBID})
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read user fact after conflict: %w", err)
	}

	return existing, false, nil
}

func (r *userFactRepository) Update(ctx context.Context, fact *models.UserFact) error {
	query := `
		UPDATE user_facts
		SET rating = $1, watched_at = $2, updated_at = now()
		WHERE id = $3`

	tag, err := r.db.Exec(ctx, query, fact.Rating, fact.WatchedAt, fact.ID)
	if err != nil {
		return fmt.Errorf("failed to update user fact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
