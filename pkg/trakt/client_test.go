package trakt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, wantPath, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "2", r.Header.Get("trakt-api-version"))
		assert.Equal(t, "client-123", r.Header.Get("trakt-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestWatchedMovies(t *testing.T) {
	server := newTestServer(t, "/users/alice/watched/movies", `[
		{"plays": 3, "last_watched_at": "2023-01-01T12:00:00Z",
		 "movie": {"title": "Heat", "year": 1995, "ids": {"trakt": 1, "tmdb": 949}}},
		{"plays": 1, "last_watched_at": "2023-02-01T12:00:00Z",
		 "movie": {"title": "Obscure", "year": 2001, "ids": {"trakt": 2}}}
	]`)
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	items, err := client.WatchedMovies(context.Background(), "alice", "client-123")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Heat", items[0].Title)
	assert.Equal(t, "movie", items[0].MediaKind)
	assert.Equal(t, "2023-01-01T12:00:00Z", items[0].LastWatchedAt)
	require.NotNil(t, items[0].TMDBID)
	assert.EqualValues(t, 949, *items[0].TMDBID)
	assert.Nil(t, items[0].Rating)

	// Entries without a TMDB cross-reference are still returned; the engine
	// decides what to do with them.
	assert.Nil(t, items[1].TMDBID)
}

func TestWatchedShows(t *testing.T) {
	server := newTestServer(t, "/users/alice/watched/shows", `[
		{"last_watched_at": "2023-03-05T20:00:00Z",
		 "show": {"title": "Severance", "year": 2022, "ids": {"trakt": 10, "tmdb": 95396}}}
	]`)
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	items, err := client.WatchedShows(context.Background(), "alice", "client-123")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "tv", items[0].MediaKind)
	assert.Equal(t, "Severance", items[0].Title)
}

func TestRatedShows(t *testing.T) {
	server := newTestServer(t, "/users/alice/ratings/shows", `[
		{"rating": 9, "rated_at": "2023-04-01T10:00:00Z",
		 "show": {"title": "The Wire", "year": 2002, "ids": {"trakt": 20, "tmdb": 1438}}}
	]`)
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	items, err := client.RatedShows(context.Background(), "alice", "client-123")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Rating)
	assert.Equal(t, 9, *items[0].Rating)
	assert.Empty(t, items[0].LastWatchedAt)
}

func TestErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)

	_, err = client.RatedMovies(context.Background(), "alice", "bad-key")
	assert.ErrorContains(t, err, "401")
}

func TestMissingCredentials(t *testing.T) {
	client, err := New("https://api.trakt.tv")
	require.NoError(t, err)

	_, err = client.WatchedMovies(context.Background(), "", "client-123")
	assert.ErrorContains(t, err, "username required")

	_, err = client.WatchedMovies(context.Background(), "alice", "")
	assert.ErrorContains(t, err, "client id required")
}

func TestClientOptions(t *testing.T) {
	client, err := New("https://api.trakt.tv", WithTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)

	// A zero timeout keeps the default.
	client, err = New("https://api.trakt.tv", WithTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	custom := &http.Client{Timeout: time.Second}
	client, err = New("https://api.trakt.tv", WithHTTPClient(custom))
	require.NoError(t, err)
	assert.Same(t, custom, client.httpClient)
}
