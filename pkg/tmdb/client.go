// Package tmdb provides access to the TMDB API for catalog metadata lookups.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Details is a resolved catalog metadata payload. Title is the
// preferred-locale title falling back to the original-locale one; Data is
// the raw TMDB payload for callers that want to cache it verbatim.
type Details struct {
	Title string
	Data  map[string]any
}

// Source defines the metadata lookup used by both ingestion paths.
type Source interface {
	GetDetails(ctx context.Context, mediaKind string, tmdbID int64, apiKey string) (*Details, error)
}

// Client provides access to the TMDB API. The API key is per-user and
// passed per call; the client itself only carries endpoint configuration.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

var _ Source = (*Client)(nil)

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

// New creates a TMDB client.
func New(baseURL, language string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// GetDetails fetches the full metadata payload for one title.
// mediaKind must be "movie" or "tv"; it doubles as the API path segment.
func (c *Client) GetDetails(ctx context.Context, mediaKind string, tmdbID int64, apiKey string) (*Details, error) {
	if mediaKind != "movie" && mediaKind != "tv" {
		return nil, fmt.Errorf("unsupported media kind: %q", mediaKind)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("tmdb api key required")
	}

	endpoint, err := url.Parse(c.baseURL + "/" + mediaKind + "/" + strconv.FormatInt(tmdbID, 10))
	if err != nil {
		return nil, fmt.Errorf("parse tmdb url: %w", err)
	}
	params := url.Values{}
	params.Set("api_key", apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb details returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode tmdb response: %w", err)
	}
	if payload == nil {
		payload = make(map[string]any)
	}
	payload["media_type"] = mediaKind

	return &Details{
		Title: resolveTitle(mediaKind, payload),
		Data:  payload,
	}, nil
}

// resolveTitle picks the preferred-locale title with the original-locale
// one as fallback. Movies use title/original_title, TV uses name/original_name.
func resolveTitle(mediaKind string, payload map[string]any) string {
	var preferred, original string
	if mediaKind == "movie" {
		preferred = stringField(payload, "title")
		original = stringField(payload, "original_title")
	} else {
		preferred = stringField(payload, "name")
		original = stringField(payload, "original_name")
	}
	if preferred != "" {
		return preferred
	}
	return original
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
