package models

import (
	"time"
)

// ============================================================================
// Media Kinds
// ============================================================================

// MediaKind discriminates between film and episodic-series catalog entries.
type MediaKind string

const (
	MediaKindMovie MediaKind = "movie"
	MediaKindTV    MediaKind = "tv"
)

// ValidMediaKinds contains all valid media kind values.
var ValidMediaKinds = []MediaKind{
	MediaKindMovie,
	MediaKindTV,
}

// IsValidMediaKind checks if the given kind is valid.
func IsValidMediaKind(k MediaKind) bool {
	for _, v := range ValidMediaKinds {
		if v == k {
			return true
		}
	}
	return false
}

// ============================================================================
// Catalog Item Model
// ============================================================================

// CatalogItem is the locally cached copy of an external catalog title,
// keyed by (TMDBID, MediaKind). The raw metadata payload is kept as-is so
// display layers can pick whatever fields they need.
type CatalogItem struct {
	TMDBID    int64          `json:"tmdb_id"`
	MediaKind MediaKind      `json:"media_kind"`
	Title     string         `json:"title"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CatalogKey identifies a catalog item across both ingestion paths.
type CatalogKey struct {
	MediaKind MediaKind
	TMDBID    int64
}
