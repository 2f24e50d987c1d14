package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediakeep/mediakeep-engine/pkg/apperrors"
	"github.com/mediakeep/mediakeep-engine/pkg/models"
)

type mockEventRepo struct {
	mu     sync.Mutex
	events []*models.IngestEvent
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.IngestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	snapshot := *event
	m.events = append(m.events, &snapshot)
	return nil
}

func (m *mockEventRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.IngestEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.IngestEvent(nil), m.events...), nil
}

func (m *mockEventRepo) last() *models.IngestEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

type webhookFixture struct {
	svc     WebhookService
	userID  uuid.UUID
	catalog *mockCatalogRepo
	facts   *mockFactRepo
	events  *mockEventRepo
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	userID := uuid.New()
	settings := &mockSettingsRepo{
		getByWebhookToken: func(ctx context.Context, token string) (*models.UserSettings, error) {
			if token != "tok-1" {
				return nil, apperrors.ErrUnknownToken
			}
			s := validSettings(userID)
			s.WebhookToken = token
			return s, nil
		},
	}
	catalog := &mockCatalogRepo{}
	facts := newMockFactRepo()
	events := &mockEventRepo{}
	svc := NewWebhookService(settings, catalog, facts, events, staticDetails("Resolved Title"), time.Second, zap.NewNop())
	return &webhookFixture{svc: svc, userID: userID, catalog: catalog, facts: facts, events: events}
}

func TestWebhookService_UnknownTokenNoAudit(t *testing.T) {
	f := newWebhookFixture(t)

	_, err := f.svc.HandleEvent(context.Background(), "nope", []byte(`{}`))
	assert.ErrorIs(t, err, apperrors.ErrUnknownToken)
	assert.Nil(t, f.events.last(), "unauthenticated deliveries must not be audited")
}

func TestWebhookService_ScrobbleMovieMarksWatched(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {
			"type": "movie",
			"guid": "tmdb://603",
			"title": "The Matrix"
		}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Empty(t, result.Reason)

	fact := f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindMovie, TMDBID: 603})
	require.NotNil(t, fact)
	require.NotNil(t, fact.WatchedAt)
	assert.Nil(t, fact.Rating)

	event := f.events.last()
	require.NotNil(t, event)
	assert.True(t, event.Processed)
	assert.Equal(t, "media.scrobble", event.EventType)
	assert.Equal(t, f.userID, event.UserID)
}

func TestWebhookService_PlayRegistersCollectionOnly(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.play",
		"Metadata": {
			"type": "movie",
			"guid": "tmdb://603",
			"title": "The Matrix"
		}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.True(t, result.Processed)

	fact := f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindMovie, TMDBID: 603})
	require.NotNil(t, fact)
	assert.Nil(t, fact.WatchedAt, "a play must not imply watched")
}

func TestWebhookService_EpisodeResolvesToShow(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {
			"type": "episode",
			"guid": "plex://episode/abc",
			"title": "Ozymandias",
			"grandparentGuid": "tmdb://1396",
			"grandparentTitle": "Breaking Bad"
		}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.True(t, result.Processed)

	fact := f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindTV, TMDBID: 1396})
	require.NotNil(t, fact)
	require.NotNil(t, fact.WatchedAt)
}

func TestWebhookService_LegacyGUIDFormat(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {
			"type": "movie",
			"guid": "com.plexapp.agents.themoviedb://550?lang=en",
			"title": "Fight Club"
		}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	require.NotNil(t, f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindMovie, TMDBID: 550}))
}

func TestWebhookService_AlternateGUIDsConsulted(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {
			"type": "movie",
			"guid": "plex://movie/5d776b59ad5437001f79c6f8",
			"title": "The Matrix",
			"Guid": [
				{"id": "imdb://tt0133093"},
				{"id": "tmdb://603"},
				{"id": "tvdb://169"}
			]
		}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.True(t, result.Processed)
	require.NotNil(t, f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindMovie, TMDBID: 603}))
}

func TestWebhookService_EpisodeWithoutCatalogIDRejected(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {
			"type": "episode",
			"guid": "plex://episode/abc",
			"grandparentGuid": "plex://show/xyz",
			"grandparentTitle": "Obscure Show",
			"Guid": [{"id": "tvdb://123456"}]
		}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "no catalog identifier in metadata", result.Reason)

	event := f.events.last()
	require.NotNil(t, event)
	assert.False(t, event.Processed)
	assert.NotEmpty(t, event.ErrorMessage)
	assert.Nil(t, f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindTV, TMDBID: 123456}))
}

func TestWebhookService_EpisodeOwnGuidArrayIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	// The Guid array on an episode identifies the episode itself; storing
	// that id as the series would corrupt the catalog key.
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {
			"type": "episode",
			"guid": "plex://episode/abc",
			"title": "Pilot",
			"grandparentGuid": "plex://show/xyz",
			"grandparentTitle": "Some Show",
			"Guid": [{"id": "tmdb://99999"}]
		}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Equal(t, "no catalog identifier in metadata", result.Reason)
	assert.Nil(t, f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindTV, TMDBID: 99999}))
}

func TestWebhookService_UnsupportedEventRejected(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.pause",
		"Metadata": {"type": "movie", "guid": "tmdb://603", "title": "The Matrix"}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Contains(t, result.Reason, "unsupported event type")
	assert.Nil(t, f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindMovie, TMDBID: 603}))
}

func TestWebhookService_UnsupportedMediaTypeRejected(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {"type": "track", "guid": "tmdb://603", "title": "Song"}
	}`)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Contains(t, result.Reason, "unsupported media type")
}

func TestWebhookService_MalformedPayloadAudited(t *testing.T) {
	f := newWebhookFixture(t)

	result, err := f.svc.HandleEvent(context.Background(), "tok-1", []byte(`not json`))
	require.NoError(t, err)
	assert.False(t, result.Processed)
	assert.Contains(t, result.Reason, "malformed payload")

	event := f.events.last()
	require.NotNil(t, event)
	assert.False(t, event.Processed)
}

func TestWebhookService_RepeatedScrobbleKeepsFirstTimestamp(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {"type": "movie", "guid": "tmdb://603", "title": "The Matrix"}
	}`)

	first, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	require.True(t, first.Processed)

	key := models.CatalogKey{MediaKind: models.MediaKindMovie, TMDBID: 603}
	firstFact := f.facts.fact(key)
	require.NotNil(t, firstFact)
	require.NotNil(t, firstFact.WatchedAt)
	firstWatched := *firstFact.WatchedAt

	time.Sleep(5 * time.Millisecond)

	second, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.True(t, second.Processed, "redeliveries are still acknowledged as processed")

	secondFact := f.facts.fact(key)
	require.NotNil(t, secondFact.WatchedAt)
	assert.Equal(t, firstWatched, *secondFact.WatchedAt, "redelivery must not move the watched timestamp")
}

func TestWebhookService_ScrobbleNeverClearsRating(t *testing.T) {
	f := newWebhookFixture(t)
	rating := 9
	f.facts.seed(&models.UserFact{
		ID:        uuid.New(),
		UserID:    f.userID,
		TMDBID:    603,
		MediaKind: models.MediaKindMovie,
		Rating:    &rating,
	})

	payload := []byte(`{
		"event": "media.scrobble",
		"Metadata": {"type": "movie", "guid": "tmdb://603", "title": "The Matrix"}
	}`)
	result, err := f.svc.HandleEvent(context.Background(), "tok-1", payload)
	require.NoError(t, err)
	assert.True(t, result.Processed)

	fact := f.facts.fact(models.CatalogKey{MediaKind: models.MediaKindMovie, TMDBID: 603})
	require.NotNil(t, fact.Rating)
	assert.Equal(t, 9, *fact.Rating)
	require.NotNil(t, fact.WatchedAt, "watched gap must be filled alongside the kept rating")
}
