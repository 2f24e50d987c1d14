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

// UserSettingsRepository provides data access for per-user source credentials.
type UserSettingsRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	GetByWebhookToken(ctx context.Context, token string) (*models.UserSettings, error)
	Upsert(ctx context.Context, settings *models.UserSettings) error
}

type userSettingsRepository struct {
	db *database.DB
}

func NewUserSettingsRepository(db *database.DB) UserSettingsRepository {
	return &userSettingsRepository{db: db}
}

var _ UserSettingsRepository = (*userSettingsRepository)(nil)

const userSettingsColumns = `user_id, trakt_username, trakt_client_id, tmdb_api_key, webhook_token, created_at, updated_at`

func (r *userSettingsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error) {
	query := `SELECT ` + userSettingsColumns + ` FROM user_settings WHERE user_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, userID))
}

// GetByWebhookToken resolves the owner of an inbound webhook delivery.
// Empty tokens never match - they are placeholders for users that have not
// enabled the webhook.
func (r *userSettingsRepository) GetByWebhookToken(ctx context.Context, token string) (*models.UserSettings, error) {
	if token == "" {
		return nil, apperrors.ErrUnknownToken
	}

	query := `SELECT ` + userSettingsColumns + ` FROM user_settings WHERE webhook_token = $1`
	settings, err := r.scanOne(r.db.QueryRow(ctx, query, token))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrUnknownToken
	}
	return settings, err
}

func (r *userSettingsRepository) Upsert(ctx context.Context, settings *models.UserSettings) error {
	query := `
		INSERT INTO user_settings (user_id, trakt_username, trakt_client_id, tmdb_api_key, webhook_token)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET trakt_username = EXCLUDED.trakt_username,
		    trakt_client_id = EXCLUDED.trakt_client_id,
		    tmdb_api_key = EXCLUDED.tmdb_api_key,
		    webhook_token = EXCLUDED.webhook_token,
		    updated_at = now()`

	_, err := r.db.Exec(ctx, query,
		settings.UserID,
		settings.TraktUsername,
		settings.TraktClientID,
		settings.TMDBAPIKey,
		settings.WebhookToken,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user settings: %w", err)
	}

	return nil
}

func (r *userSettingsRepository) scanOne(row pgx.Row) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := row.Scan(
		&settings.UserID,
		&settings.TraktUsername,
		&settings.TraktClientID,
		&settings.TMDBAPIKey,
		&settings.WebhookToken,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user settings: %w", err)
	}
	return &settings, nil
}
