package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mediakeep/mediakeep-engine/pkg/apperrors"
	"github.com/mediakeep/mediakeep-engine/pkg/database"
	"github.com/mediakeep/mediakeep-engine/pkg/models"
)

// CatalogItemRepository provides data access for cached catalog metadata.
type CatalogItemRepository interface {
	Upsert(ctx context.Context, item *models.CatalogItem) error
	GetByKey(ctx context.Context, key models.CatalogKey) (*models.CatalogItem, error)
}

type catalogItemRepository struct {
	db *database.DB
}

func NewCatalogItemRepository(db *database.DB) CatalogItemRepository {
	return &catalogItemRepository{db: db}
}

var _ CatalogItemRepository = (*catalogItemRepository)(nil)

// Upsert inserts or refreshes a catalog item. The metadata payload always
// replaces the stored one; (tmdb_id, media_kind) uniqueness is enforced by
// the primary key so concurrent upserts cannot produce duplicates.
func (r *catalogItemRepository) Upsert(ctx context.Context, item *models.CatalogItem) error {
	dataJSON, err := marshalJSONBany(item.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog data: %w", err)
	}

	query := `
		INSERT INTO catalog_items (tmdb_id, media_kind, title, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tmdb_id, media_kind) DO UPDATE
		SET title = EXCLUDED.title,
		    data = EXCLUDED.data,
		    updated_at = now()`

	_, err = r.db.Exec(ctx, query, item.TMDBID, item.MediaKind, item.Title, dataJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog item: %w", err)
	}

	return nil
}

func (r *catalogItemRepository) GetByKey(ctx context.Context, key models.CatalogKey) (*models.CatalogItem, error) {
	query := `
		SELECT tmdb_id, media_kind, title, data, created_at, updated_at
		FROM catalog_items
		WHERE tmdb_id = $1 AND media_kind = $2`

	var item models.CatalogItem
	var dataJSON []byte

	err := r.db.QueryRow(ctx, query, key.TMDBID, key.MediaKind).Scan(
		&item.TMDBID,
		&item.MediaKind,
		&item.Title,
		&dataJSON,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog item: %w", err)
	}

	if len(dataJSON) > 0 && string(dataJSON) != "null" {
		var data map[string]any
		if jsonErr := json.Unmarshal(dataJSON, &data); jsonErr == nil {
			item.Data = data
		}
	}

	return &item, nil
}

// marshalJSONBany marshals any value to JSON bytes, returning nil for nil values.
func marshalJSONBany(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
