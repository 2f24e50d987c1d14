package services

import (
	"regexp"
	"strconv"
)

// Plex identifies a library item by a primary GUID plus an optional list of
// alternate IDs, all scheme-prefixed strings. Only the TMDB schemes map to
// our catalog; imdb://, tvdb:// and opaque plex:// GUIDs never match.
var (
	tmdbGUIDPattern = regexp.MustCompile(`^tmdb://(\d+)`)

	// Legacy metadata agent format: com.plexapp.agents.themoviedb://123?lang=en
	legacyTMDBGUIDPattern = regexp.MustCompile(`themoviedb://(\d+)`)
)

// ResolveTMDBID extracts a TMDB catalog ID from a primary GUID and an
// ordered list of alternate IDs. The primary GUID is checked first, then
// the alternates in order; the first TMDB-scheme entry wins. Returns false
// when no recognized scheme is present anywhere - callers must treat that
// as "cannot proceed", not as a retryable error.
func ResolveTMDBID(primaryGUID string, altIDs []string) (int64, bool) {
	if id, ok := parseTMDBGUID(primaryGUID); ok {
		return id, true
	}
	for _, alt := range altIDs {
		if id, ok := parseTMDBGUID(alt); ok {
			return id, true
		}
	}
	return 0, false
}

func parseTMDBGUID(guid string) (int64, bool) {
	if guid == "" {
		return 0, false
	}
	if m := tmdbGUIDPattern.FindStringSubmatch(guid); m != nil {
		return parseGUIDDigits(m[1])
	}
	if m := legacyTMDBGUIDPattern.FindStringSubmatch(guid); m != nil {
		return parseGUIDDigits(m[1])
	}
	return 0, false
}

func parseGUIDDigits(digits string) (int64, bool) {
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
