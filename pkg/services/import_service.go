package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediakeep/mediakeep-engine/pkg/apperrors"
	"github.com/mediakeep/mediakeep-engine/pkg/logging"
	"github.com/mediakeep/mediakeep-engine/pkg/models"
	"github.com/mediakeep/mediakeep-engine/pkg/repositories"
	"github.com/mediakeep/mediakeep-engine/pkg/tmdb"
	"github.com/mediakeep/mediakeep-engine/pkg/trakt"
)

// DefaultMetadataTimeout bounds one metadata lookup so a single
// unreachable title cannot stall the whole batch.
const DefaultMetadataTimeout = 10 * time.Second

// ImportService runs bulk imports from the history source. One submission
// spawns one background executor; at most one pending/running job may exist
// per user at a time (enforced by the job repository's conditional insert).
type ImportService interface {
	Submit(ctx context.Context, userID uuid.UUID) (*models.ImportJob, error)
	Status(ctx context.Context, userID uuid.UUID, taskID string) (*models.ImportJob, error)
}

type importService struct {
	jobRepo         repositories.ImportJobRepository
	settingsRepo    repositories.UserSettingsRepository
	catalogRepo     repositories.CatalogItemRepository
	factRepo        repositories.UserFactRepository
	history         trakt.HistorySource
	metadata        tmdb.Source
	metadataTimeout time.Duration
	logger          *zap.Logger
}

// NewImportService creates a new import service.
// If metadataTimeout is 0, DefaultMetadataTimeout is used.
func NewImportService(
	jobRepo repositories.ImportJobRepository,
	settingsRepo repositories.UserSettingsRepository,
	catalogRepo repositories.CatalogItemRepository,
	factRepo repositories.UserFactRepository,
	history trakt.HistorySource,
	metadata tmdb.Source,
	metadataTimeout time.Duration,
	logger *zap.Logger,
) ImportService {
	if metadataTimeout == 0 {
		metadataTimeout = DefaultMetadataTimeout
	}
	return &importService{
		jobRepo:         jobRepo,
		settingsRepo:    settingsRepo,
		catalogRepo:     catalogRepo,
		factRepo:        factRepo,
		history:         history,
		metadata:        metadata,
		metadataTimeout: metadataTimeout,
		logger:          logger.Named("import"),
	}
}

var _ ImportService = (*importService)(nil)

// Submit validates credentials, claims the per-user import slot and spawns
// the executor goroutine. Returns apperrors.ErrMissingCredentials when the
// user has not configured the sources and apperrors.ErrImportActive when a
// job is already pending or running.
func (s *importService) Submit(ctx context.Context, userID uuid.UUID) (*models.ImportJob, error) {
	settings, err := s.settingsRepo.GetByUserID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrMissingCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user settings: %w", err)
	}
	if !settings.HasImportCredentials() {
		return nil, apperrors.ErrMissingCredentials
	}

	job := &models.ImportJob{
		UserID: userID,
		TaskID: fmt.Sprintf("import_%s_%d", userID, time.Now().Unix()),
		Status: models.ImportJobStatusPending,
	}
	if err := s.jobRepo.CreateIfNoneActive(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Starting import job",
		zap.String("task_id", job.TaskID),
		zap.String("user_id", userID.String()),
		zap.String("trakt_username", settings.TraktUsername),
		zap.String("trakt_client_id", logging.MaskCredential(settings.TraktClientID)))

	// Fire-and-forget: the executor outlives the submitting request.
	go s.run(job.TaskID, userID, settings)

	return job, nil
}

// Status returns the job record scoped to its owner; a foreign or unknown
// task ID yields apperrors.ErrNotFound.
func (s *importService) Status(ctx context.Context, userID uuid.UUID, taskID string) (*models.ImportJob, error) {
	return s.jobRepo.GetByTaskID(ctx, userID, taskID)
}

// run is the background executor for one job. Errors escaping the per-item
// guard inside execute transition the job to failed with the error text
// preserved verbatim; if the job record itself cannot be located there is
// nothing to attach the failure to, so it is only logged.
func (s *importService) run(taskID string, userID uuid.UUID, settings *models.UserSettings) {
	ctx := context.Background()

	job, err := s.jobRepo.GetByTaskID(ctx, userID, taskID)
	if err != nil {
		s.logger.Error("Import job record not found",
			zap.String("task_id", taskID),
			zap.Error(err))
		return
	}

	if err := s.execute(ctx, job, settings); err != nil {
		if !job.Status.CanTransitionTo(models.ImportJobStatusFailed) {
			s.logger.Error("Import job failed in a non-failable state",
				zap.String("task_id", taskID),
				zap.String("status", string(job.Status)),
				zap.String("error", logging.SanitizeError(err)))
			return
		}
		job.Status = models.ImportJobStatusFailed
		job.ErrorMessage = err.Error()
		if uerr := s.jobRepo.Update(ctx, job); uerr != nil {
			s.logger.Error("Failed to persist import job failure",
				zap.String("task_id", taskID),
				zap.Error(uerr))
		}
		s.logger.Error("Import job failed",
			zap.String("task_id", taskID),
			zap.String("error", logging.SanitizeError(err)))
	}
}

// historyEntry is one deduplicated (media_kind, tmdb_id) entry folded from
// the four source lists.
type historyEntry struct {
	key       models.CatalogKey
	title     string
	watchedAt string // raw source timestamp, parsed during persistence
	rating    *int
}

func (s *importService) execute(ctx context.Context, job *models.ImportJob, settings *models.UserSettings) error {
	if !job.Status.CanTransitionTo(models.ImportJobStatusRunning) {
		return fmt.Errorf("job %s cannot start from status %s", job.TaskID, job.Status)
	}
	job.Status = models.ImportJobStatusRunning
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	username, clientID := settings.TraktUsername, settings.TraktClientID

	watchedMovies, err := s.history.WatchedMovies(ctx, username, clientID)
	if err != nil {
		return fmt.Errorf("fetch watched movies: %w", err)
	}
	watchedShows, err := s.history.WatchedShows(ctx, username, clientID)
	if err != nil {
		return fmt.Errorf("fetch watched shows: %w", err)
	}
	ratedMovies, err := s.history.RatedMovies(ctx, username, clientID)
	if err != nil {
		return fmt.Errorf("fetch rated movies: %w", err)
	}
	ratedShows, err := s.history.RatedShows(ctx, username, clientID)
	if err != nil {
		return fmt.Errorf("fetch rated shows: %w", err)
	}

	watched := append(watchedMovies, watchedShows...)
	rated := append(ratedMovies, ratedShows...)

	// Persist the denominator before any merge work so status polls see an
	// accurate total from the start.
	total := len(watched) + len(rated)
	job.TotalItems = total
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("persist total items: %w", err)
	}

	s.logger.Info("History fetched",
		zap.String("task_id", job.TaskID),
		zap.Int("watched_movies", len(watchedMovies)),
		zap.Int("watched_shows", len(watchedShows)),
		zap.Int("rated_movies", len(ratedMovies)),
		zap.Int("rated_shows", len(ratedShows)))

	// Fold the four lists into one ordered set keyed by (media_kind,
	// tmdb_id). The first half of the progress bar covers this phase.
	entries := make(map[models.CatalogKey]*historyEntry)
	var order []models.CatalogKey
	processed := 0

	// Pass A: watched lists seed entries. Items without a TMDB
	// cross-reference cannot be reconciled and are skipped outright.
	for _, item := range watched {
		if item.TMDBID != nil {
			key := models.CatalogKey{MediaKind: models.MediaKind(item.MediaKind), TMDBID: *item.TMDBID}
			if _, ok := entries[key]; !ok {
				entries[key] = &historyEntry{key: key, title: item.Title, watchedAt: item.LastWatchedAt}
				order = append(order, key)
			}
		}
		processed++
		job.Progress = foldProgress(processed, total)
		if err := s.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("persist fold progress: %w", err)
		}
	}

	// Pass B: rated lists attach ratings to seeded entries, or seed
	// watched-less rated entries of their own.
	for _, item := range rated {
		if item.TMDBID != nil {
			key := models.CatalogKey{MediaKind: models.MediaKind(item.MediaKind), TMDBID: *item.TMDBID}
			if entry, ok := entries[key]; ok {
				entry.rating = item.Rating
			} else {
				entries[key] = &historyEntry{key: key, title: item.Title, rating: item.Rating}
				order = append(order, key)
			}
		}
		processed++
		job.Progress = foldProgress(processed, total)
		if err := s.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("persist fold progress: %w", err)
		}
	}

	totalEntries := len(order)
	s.logger.Info("History folded",
		zap.String("task_id", job.TaskID),
		zap.Int("total_items", total),
		zap.Int("entries", totalEntries))

	// Persistence phase: second half of the progress bar. A failing item is
	// logged and skipped; it never aborts the batch.
	imported := 0
	for i, key := range order {
		entry := entries[key]

		if err := s.reconcileEntry(ctx, job.UserID, settings.TMDBAPIKey, entry); err != nil {
			s.logger.Warn("Skipping item",
				zap.String("task_id", job.TaskID),
				zap.Int64("tmdb_id", entry.key.TMDBID),
				zap.String("media_kind", string(entry.key.MediaKind)),
				zap.String("title", entry.title),
				zap.String("error", logging.SanitizeError(err)))
			continue
		}

		// "Imported" means reconciled: the count grows for every processed
		// item even when the merge changed nothing, and is persisted after
		// each one. Progress writes are batched to every 5 entries plus the
		// final one to bound store churn.
		imported++
		job.ImportedCount = imported
		if (i+1)%5 == 0 || i+1 == totalEntries {
			job.Progress = persistProgress(i+1, totalEntries)
		}
		if err := s.jobRepo.Update(ctx, job); err != nil {
			return fmt.Errorf("persist import progress: %w", err)
		}
	}

	now := time.Now().UTC()
	job.Status = models.ImportJobStatusCompleted
	job.Progress = 100
	job.ImportedCount = imported
	job.CompletedAt = &now
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return fmt.Errorf("persist job completion: %w", err)
	}

	s.logger.Info("Import job completed",
		zap.String("task_id", job.TaskID),
		zap.Int("imported", imported),
		zap.Int("total_items", total))

	return nil
}

// reconcileEntry fetches authoritative metadata for one entry, refreshes
// the catalog item and applies the fill-gap merge to the user's fact.
func (s *importService) reconcileEntry(ctx context.Context, userID uuid.UUID, tmdbKey string, entry *historyEntry) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.metadataTimeout)
	defer cancel()

	details, err := s.metadata.GetDetails(lookupCtx, string(entry.key.MediaKind), entry.key.TMDBID, tmdbKey)
	if err != nil {
		return fmt.Errorf("fetch metadata: %w", err)
	}

	title := details.Title
	if title == "" {
		title = entry.title
	}

	item := &models.CatalogItem{
		TMDBID:    entry.key.TMDBID,
		MediaKind: entry.key.MediaKind,
		Title:     title,
		Data:      details.Data,
	}
	if err := s.catalogRepo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert catalog item: %w", err)
	}

	input := FactInput{Rating: entry.rating}
	if entry.watchedAt != "" {
		if watchedAt, err := time.Parse(time.RFC3339, entry.watchedAt); err == nil {
			input.WatchedAt = &watchedAt
		} else {
			// Unparsable timestamps are dropped, not fatal - but loudly.
			s.logger.Warn("Dropping unparsable watched timestamp",
				zap.Int64("tmdb_id", entry.key.TMDBID),
				zap.String("watched_at", entry.watchedAt),
				zap.Error(err))
		}
	}

	fact := &models.UserFact{
		UserID:    userID,
		TMDBID:    entry.key.TMDBID,
		MediaKind: entry.key.MediaKind,
		Rating:    input.Rating,
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

// foldProgress maps fold-phase completion onto the 0-50% range.
func foldProgress(processed, total int) int {
	if total == 0 {
		return 0
	}
	pct := int(math.Round(float64(processed) / float64(total) * 50))
	return min(50, pct)
}

// persistProgress maps persistence-phase completion onto the 50-100% range.
func persistProgress(processed, totalEntries int) int {
	if totalEntries == 0 {
		return 100
	}
	pct := 50 + int(math.Round(float64(processed)/float64(totalEntries)*50))
	return min(100, pct)
}
