package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mediakeep/mediakeep-engine/pkg/logging"
	"github.com/mediakeep/mediakeep-engine/pkg/models"
	"github.com/mediakeep/mediakeep-engine/pkg/repositories"
	"github.com/mediakeep/mediakeep-engine/pkg/tmdb"
)

// Supported push notification event kinds.
const (
	EventScrobble = "media.scrobble"
	EventPlay     = "media.play"
)

// WebhookResult is the acknowledgement returned for a delivery. Reason is
// empty for processed events.
type WebhookResult struct {
	Processed bool   `json:"processed"`
	Reason    string `json:"reason,omitempty"`
}

// WebhookService ingests push notifications from the media server. Every
// delivery with a valid token is recorded as an audit IngestEvent whether
// it was processed or rejected.
type WebhookService interface {
	HandleEvent(ctx context.Context, token string, rawPayload []byte) (*WebhookResult, error)
}

type webhookService struct {
	settingsRepo    repositories.UserSettingsRepository
	catalogRepo     repositories.CatalogItemRepository
	factRepo        repositories.UserFactRepository
	eventRepo       repositories.IngestEventRepository
	metadata        tmdb.Source
	metadataTimeout time.Duration
	logger          *zap.Logger
}

// NewWebhookService creates a new webhook service.
// If metadataTimeout is 0, DefaultMetadataTimeout is used.
func NewWebhookService(
	settingsRepo repositories.UserSettingsRepository,
	catalogRepo repositories.CatalogItemRepository,
	factRepo repositories.UserFactRepository,
	eventRepo repositories.IngestEventRepository,
	metadata tmdb.Source,
	metadataTimeout time.Duration,
	logger *zap.Logger,
) WebhookService {
	if metadataTimeout == 0 {
		metadataTimeout = DefaultMetadataTimeout
	}
	return &webhookService{
		settingsRepo:    settingsRepo,
		catalogRepo:     catalogRepo,
		factRepo:        factRepo,
		eventRepo:       eventRepo,
		metadata:        metadata,
		metadataTimeout: metadataTimeout,
		logger:          logger.Named("webhook"),
	}
}

var _ WebhookService = (*webhookService)(nil)

type altGUID struct {
	ID string `json:"id"`
}

type webhookMetadata struct {
	Type             string    `json:"type"`
	GUID             string    `json:"guid"`
	Title            string    `json:"title"`
	GrandparentGUID  string    `json:"grandparentGuid"`
	GrandparentTitle string    `json:"grandparentTitle"`
	AltGUIDs         []altGUID `json:"Guid"`
}

type webhookPayload struct {
	Event    string           `json:"event"`
	Metadata *webhookMetadata `json:"Metadata"`
}

// mergeAction is a classified, accepted event ready to be merged.
type mergeAction struct {
	Key         models.CatalogKey
	Title       string
	MarkWatched bool
}

// HandleEvent authenticates the delivery by webhook token, classifies the
// payload and applies the merge for accepted events. Unknown tokens return
// apperrors.ErrUnknownToken without writing an audit record; everything
// else is audited and acknowledged.
func (s *webhookService) HandleEvent(ctx context.Context, token string, rawPayload []byte) (*WebhookResult, error) {
	settings, err := s.settingsRepo.GetByWebhookToken(ctx, token)
	if err != nil {
		return nil, err
	}

	var auditPayload map[string]any
	if err := json.Unmarshal(rawPayload, &auditPayload); err != nil {
		return s.audit(ctx, settings, "", nil, fmt.Sprintf("malformed payload: %v", err))
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return s.audit(ctx, settings, "", auditPayload, fmt.Sprintf("malformed payload: %v", err))
	}

	action, rejectReason := classifyEvent(&payload)
	if rejectReason != "" {
		return s.audit(ctx, settings, payload.Event, auditPayload, rejectReason)
	}

	if settings.TMDBAPIKey == "" {
		return s.audit(ctx, settings, payload.Event, auditPayload, "metadata source key not configured")
	}

	if err := s.applyAction(ctx, settings, action); err != nil {
		return s.audit(ctx, settings, payload.Event, auditPayload, err.Error())
	}

	s.logger.Info("Webhook event processed",
		zap.String("event", payload.Event),
		zap.String("user_id", settings.UserID.String()),
		zap.Int64("tmdb_id", action.Key.TMDBID),
		zap.String("media_kind", string(action.Key.MediaKind)))

	return s.audit(ctx, settings, payload.Event, auditPayload, "")
}

// classifyEvent maps a decoded payload to a merge action, or a non-empty
// rejection reason. Rejections carry no side effects.
func classifyEvent(payload *webhookPayload) (*mergeAction, string) {
	var markWatched bool
	switch payload.Event {
	case EventScrobble:
		markWatched = true
	case EventPlay:
		markWatched = false
	default:
		return nil, fmt.Sprintf("unsupported event type: %q", payload.Event)
	}

	meta := payload.Metadata
	if meta == nil {
		return nil, "payload has no metadata"
	}

	var primaryGUID, title string
	var kind models.MediaKind
	var altIDs []string
	switch meta.Type {
	case "movie":
		primaryGUID, title, kind = meta.GUID, meta.Title, models.MediaKindMovie
		for _, g := range meta.AltGUIDs {
			altIDs = append(altIDs, g.ID)
		}
	case "episode":
		// Episodes resolve to the show they belong to. The episode's own
		// Guid array identifies the episode, not the series, so only the
		// parent GUID is consulted.
		primaryGUID, title, kind = meta.GrandparentGUID, meta.GrandparentTitle, models.MediaKindTV
	default:
		return nil, fmt.Sprintf("unsupported media type: %q", meta.Type)
	}

	tmdbID, ok := ResolveTMDBID(primaryGUID, altIDs)
	if !ok {
		return nil, "no catalog identifier in metadata"
	}

	return &mergeAction{
		Key:         models.CatalogKey{MediaKind: kind, TMDBID: tmdbID},
		Title:       title,
		MarkWatched: markWatched,
	}, ""
}

// applyAction refreshes the catalog item and merges the fact. A scrobble
// fills an empty watched timestamp with the delivery time; a play only
// registers collection membership.
func (s *webhookService) applyAction(ctx context.Context, settings *models.UserSettings, action *mergeAction) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	details, err := s.metadata.GetDetails(lookupCtx, string(action.Key.MediaKind), action.Key.TMDBID, settings.TMDBAPIKey)
	if err != nil {
		return fmt.Errorf("fetch metadata: %w", err)
	}

	title := details.Title
	if title == "" {
		title = action.Title
	}

	item := &models.CatalogItem{
		TMDBID:    action.Key.TMDBID,
		MediaKind: action.Key.MediaKind,
		Title:     title,
		Data:      details.Data,
	}
	if err := s.catalogRepo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert catalog item: %w", err)
	}

	var input FactInput
	if action.MarkWatched {
		now := time.Now().UTC()
		input.WatchedAt = &now
	}

	fact := &models.UserFact{
		UserID:    settings.UserID,
		TMDBID:    action.Key.TMDBID,
		MediaKind: action.Key.MediaKind,
		WatchedAt: input.WatchedAt,
	}
	fact, created, err := s.factRepo.GetOrCreate(ctx, fact)
	if err != nil {
		return fmt.Errorf("get or create user fact: %w", err)
	}
	if !created && MergeFact(fact, input) {
		if err := s.factRepo.Update(ctx, fact); err != nil {
			return fmt.Errorf("update user fact: %w", err)
		}
	}

	return nil
}

// audit records the delivery outcome. reason is empty for processed events.
func (s *webhookService) audit(ctx context.Context, settings *models.UserSettings, eventType string, payload map[string]any, reason string) (*WebhookResult, error) {
	event := &models.IngestEvent{
		UserID:       settings.UserID,
		EventType:    eventType,
		Payload:      payload,
		Processed:    reason == "",
		ErrorMessage: reason,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("record ingest event: %w", err)
	}

	if reason != "" {
		s.logger.Warn("Webhook event rejected",
			zap.String("event", eventType),
			zap.String("user_id", settings.UserID.String()),
			zap.String("reason", logging.SanitizeError(fmt.Errorf("%s", reason))))
	}

	return &WebhookResult{Processed: reason == "", Reason: reason}, nil
}
