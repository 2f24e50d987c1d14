// Package trakt provides read-only access to a user's Trakt.tv history:
// the four bulk list endpoints the reconciliation engine imports from.
package trakt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HistoryItem is one entry from a watched or rated list, flattened to the
// fields the engine needs. TMDBID may be nil - not every Trakt entry has a
// TMDB cross-reference, and those entries cannot be reconciled.
type HistoryItem struct {
	TraktID       int64
	TMDBID        *int64
	Title         string
	MediaKind     string // "movie" or "tv"
	LastWatchedAt string // raw source timestamp, empty on rated lists
	Rating        *int   // nil on watched lists
}

// HistorySource defines the four bulk list reads used by the import job.
type HistorySource interface {
	WatchedMovies(ctx context.Context, username, clientID string) ([]HistoryItem, error)
	WatchedShows(ctx context.Context, username, clientID string) ([]HistoryItem, error)
	RatedMovies(ctx context.Context, username, clientID string) ([]HistoryItem, error)
	RatedShows(ctx context.Context, username, clientID string) ([]HistoryItem, error)
}

// Client provides access to the Trakt API. Credentials are per-user and
// passed per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ HistorySource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New creates a Trakt client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("trakt base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ids carries the identifier cross-references Trakt attaches to a title.
type ids struct {
	Trakt int64  `json:"trakt"`
	TMDB  *int64 `json:"tmdb"`
}

// entryTitle is the movie/show object nested in every list entry.
type entryTitle struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
	IDs   ids    `json:"ids"`
}

// watchedEntry models one element of a watched list.
type watchedEntry struct {
	LastWatchedAt string      `json:"last_watched_at"`
	Movie         *entryTitle `json:"movie"`
	Show          *entryTitle `json:"show"`
}

// ratedEntry models one element of a ratings list.
type ratedEntry struct {
	Rating  int         `json:"rating"`
	RatedAt string      `json:"rated_at"`
	Movie   *entryTitle `json:"movie"`
	Show    *entryTitle `json:"show"`
}

// WatchedMovies returns the user's full watched-movie history.
func (c *Client) WatchedMovies(ctx context.Context, username, clientID string) ([]HistoryItem, error) {
	return c.watched(ctx, username, clientID, "movies")
}

// WatchedShows returns the user's full watched-show history.
func (c *Client) WatchedShows(ctx context.Context, username, clientID string) ([]HistoryItem, error) {
	return c.watched(ctx, username, clientID, "shows")
}

// RatedMovies returns the user's movie ratings.
func (c *Client) RatedMovies(ctx context.Context, username, clientID string) ([]HistoryItem, error) {
	return c.rated(ctx, username, clientID, "movies")
}

// RatedShows returns the user's show ratings.
func (c *Client) RatedShows(ctx context.Context, username, clientID string) ([]HistoryItem, error) {
	return c.rated(ctx, username, clientID, "shows")
}

func (c *Client) watched(ctx context.Context, username, clientID, segment string) ([]HistoryItem, error) {
	var entries []watchedEntry
	if err := c.get(ctx, username, clientID, "watched", segment, &entries); err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, entry := range entries {
		title, kind := entry.Movie, "movie"
		if segment == "shows" {
			title, kind = entry.Show, "tv"
		}
		if title == nil {
			continue
		}
		items = append(items, HistoryItem{
			TraktID:       title.IDs.Trakt,
			TMDBID:        title.IDs.TMDB,
			Title:         title.Title,
			MediaKind:     kind,
			LastWatchedAt: entry.LastWatchedAt,
		})
	}
	return items, nil
}

func (c *Client) rated(ctx context.Context, username, clientID, segment string) ([]HistoryItem, error) {
	var entries []ratedEntry
	if err := c.get(ctx, username, clientID, "ratings", segment, &entries); err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, entry := range entries {
		title, kind := entry.Movie, "movie"
		if segment == "shows" {
			title, kind = entry.Show, "tv"
		}
		if title == nil {
			continue
		}
		rating := entry.Rating
		items = append(items, HistoryItem{
			TraktID:   title.IDs.Trakt,
			TMDBID:    title.IDs.TMDB,
			Title:     title.Title,
			MediaKind: kind,
			Rating:    &rating,
		})
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, username, clientID, list, segment string, out any) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("trakt username required")
	}
	if strings.TrimSpace(clientID) == "" {
		return errors.New("trakt client id required")
	}

	endpoint := c.baseURL + "/users/" + url.PathEscape(username) + "/" + list + "/" + segment

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", "2")
	req.Header.Set("trakt-api-key", clientID)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trakt %s/%s returned %d (latency=%v)", list, segment, resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode trakt response: %w", err)
	}
	return nil
}
