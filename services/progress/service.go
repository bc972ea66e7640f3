// Package progress tracks per-user playback positions and decides when a
// reported sample is saved, discarded, or marks a title as finished.
package progress

import (
	"context"
	"log"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"openflix/internal/eventbus"
	"openflix/models"
)

// Reconciliation thresholds, in percent and watched seconds.
const (
	completionPercent = 98
	minWatchSeconds   = 90
	minWatchPercent   = 10
	noiseSeconds      = 10
	noisePercent      = 2

	continueWatchingLimit = 30
	enrichConcurrency     = 5
)

// Action describes what a progress report resulted in.
type Action string

const (
	// ActionIgnored means the sample changed nothing.
	ActionIgnored Action = "ignored"
	// ActionSaved means the record was created or updated.
	ActionSaved Action = "saved"
	// ActionCompleted means the title was finished and its record removed.
	ActionCompleted Action = "completed"
	// ActionDiscarded means a stale sub-threshold record was cleaned up.
	ActionDiscarded Action = "discarded"
	// ActionRemoved means an explicit removal was applied.
	ActionRemoved Action = "removed"
)

// Outcome reports the applied action together with any persistence
// error. Persistence failures never interrupt playback; the caller
// decides whether to surface Err.
type Outcome struct {
	Action Action
	Record *models.WatchProgressRecord
	Err    error
}

// Store is the persistence gateway the service depends on.
type Store interface {
	Upsert(ctx context.Context, rec models.WatchProgressRecord) error
	DeleteByKey(ctx context.Context, userID, movieID, episodeID string) error
	DeleteAllForMovie(ctx context.Context, userID, movieID string) error
	QueryOne(ctx context.Context, userID, movieID, episodeID string) (*models.WatchProgressRecord, error)
	QueryRecent(ctx context.Context, userID string, limit int) ([]models.WatchProgressRecord, error)
}

// Catalog enriches continue-watching entries with display metadata.
type Catalog interface {
	MovieBySlug(ctx context.Context, slug string) (*models.Title, error)
}

// Publisher receives change broadcasts.
type Publisher interface {
	Publish(evt eventbus.Event)
}

// Service applies the reconciliation rules and serves the
// continue-watching row.
type Service struct {
	mu      sync.Mutex
	store   Store
	catalog Catalog
	bus     Publisher
	cache   *progressCache
	now     func() time.Time
}

// New creates a progress service backed by store.
func New(store Store) *Service {
	return &Service{
		store: store,
		cache: newProgressCache(cacheCapacity),
		now:   time.Now,
	}
}

// SetCatalog attaches an optional catalog used to enrich
// continue-watching entries.
func (s *Service) SetCatalog(c Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}

// SetPublisher attaches an optional event publisher.
func (s *Service) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus = p
}

// ReportProgress reconciles a playback sample against the stored state.
// Rules, first match wins:
//
//  1. invalid duration: ignore
//  2. percent >= 98: finished, delete (bulk delete on last episode)
//  3. under 10s and under 2% with a prior record: noise, delete
//  4. under 90s and under 10%: too early, ignore
//  5. otherwise: upsert
func (s *Service) ReportProgress(ctx context.Context, userID string, report models.ProgressReport) Outcome {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Outcome{Action: ActionIgnored}
	}
	movieID := strings.TrimSpace(report.Movie.Slug)
	if movieID == "" {
		return Outcome{Action: ActionIgnored}
	}
	if report.Duration <= 0 || !isFinite(report.Duration) || !isFinite(report.CurrentTime) {
		return Outcome{Action: ActionIgnored}
	}

	episodeID := strings.TrimSpace(report.EpisodeSlug)
	watched := report.CurrentTime
	percent := int(math.Round(report.CurrentTime / report.Duration * 100))
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	if percent >= completionPercent {
		return s.complete(ctx, userID, movieID, episodeID, report.IsLastEpisode)
	}

	if watched < noiseSeconds && percent < noisePercent {
		return s.discardNoise(ctx, userID, movieID, episodeID)
	}

	if watched < minWatchSeconds && percent < minWatchPercent {
		return Outcome{Action: ActionIgnored}
	}

	rec := models.WatchProgressRecord{
		UserID:             userID,
		MovieID:            movieID,
		EpisodeID:          episodeID,
		RelationType:       models.RelationTypeHistory,
		Title:              strings.TrimSpace(report.Movie.Title),
		PosterPath:         strings.TrimSpace(report.Movie.PosterPath),
		CurrentTimeSeconds: int(math.Round(report.CurrentTime)),
		DurationSeconds:    int(math.Round(report.Duration)),
		ProgressPercent:    percent,
		LastWatchedAt:      s.now().UTC(),
	}

	err := s.store.Upsert(ctx, rec)
	if err != nil {
		log.Printf("[progress] failed to persist progress for %s/%s: %v", userID, movieID, err)
	}
	s.cache.put(userID, movieID, episodeID, CachedProgress{
		CurrentTime: report.CurrentTime,
		Percent:     percent,
	})
	s.broadcast(userID)
	return Outcome{Action: ActionSaved, Record: &rec, Err: err}
}

func (s *Service) complete(ctx context.Context, userID, movieID, episodeID string, lastEpisode bool) Outcome {
	err := s.store.DeleteByKey(ctx, userID, movieID, episodeID)
	if err != nil {
		log.Printf("[progress] failed to clear finished title %s/%s: %v", userID, movieID, err)
	}
	if lastEpisode {
		if bulkErr := s.store.DeleteAllForMovie(ctx, userID, movieID); bulkErr != nil {
			log.Printf("[progress] failed to clear series history %s/%s: %v", userID, movieID, bulkErr)
			if err == nil {
				err = bulkErr
			}
		}
	}
	s.cache.evictMovie(userID, movieID)
	s.broadcast(userID)
	return Outcome{Action: ActionCompleted, Err: err}
}

// discardNoise deletes the record for a key only when one already
// exists. A sub-threshold sample for an unknown key is a pure no-op.
func (s *Service) discardNoise(ctx context.Context, userID, movieID, episodeID string) Outcome {
	known := false
	if _, ok := s.cache.get(userID, movieID, episodeID); ok {
		known = true
	} else {
		existing, err := s.store.QueryOne(ctx, userID, movieID, episodeID)
		if err != nil {
			log.Printf("[progress] failed to look up record %s/%s: %v", userID, movieID, err)
			return Outcome{Action: ActionIgnored, Err: err}
		}
		known = existing != nil
	}
	if !known {
		return Outcome{Action: ActionIgnored}
	}

	err := s.store.DeleteByKey(ctx, userID, movieID, episodeID)
	if err != nil {
		log.Printf("[progress] failed to discard noise record %s/%s: %v", userID, movieID, err)
	}
	s.cache.evict(userID, movieID, episodeID)
	s.broadcast(userID)
	return Outcome{Action: ActionDiscarded, Err: err}
}

// Remove deletes a single record regardless of thresholds. Removing an
// absent key succeeds.
func (s *Service) Remove(ctx context.Context, userID, movieID, episodeID string) Outcome {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Outcome{Action: ActionIgnored}
	}
	movieID = strings.TrimSpace(movieID)
	if movieID == "" {
		return Outcome{Action: ActionIgnored}
	}
	episodeID = strings.TrimSpace(episodeID)

	err := s.store.DeleteByKey(ctx, userID, movieID, episodeID)
	if err != nil {
		log.Printf("[progress] failed to remove record %s/%s: %v", userID, movieID, err)
		return Outcome{Action: ActionRemoved, Err: err}
	}
	s.cache.evict(userID, movieID, episodeID)
	s.broadcast(userID)
	return Outcome{Action: ActionRemoved}
}

// Get returns the stored record for a key, consulting the cache first
// for the playback position. Nil when unknown.
func (s *Service) Get(ctx context.Context, userID, movieID, episodeID string) (*models.WatchProgressRecord, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	return s.store.QueryOne(ctx, userID, strings.TrimSpace(movieID), strings.TrimSpace(episodeID))
}

// CachedPosition returns the in-memory playback position for a key.
func (s *Service) CachedPosition(userID, movieID, episodeID string) (CachedProgress, bool) {
	return s.cache.get(userID, movieID, episodeID)
}

// ContinueWatching returns up to 30 display-ready entries ordered by
// most recently watched. An empty or unknown user yields an empty
// slice, not an error.
func (s *Service) ContinueWatching(ctx context.Context, userID string) ([]models.ContinueWatchingEntry, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []models.ContinueWatchingEntry{}, nil
	}

	records, err := s.store.QueryRecent(ctx, userID, continueWatchingLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ContinueWatchingEntry, len(records))
	for i, rec := range records {
		entries[i] = models.ContinueWatchingEntry{
			MovieID:         rec.MovieID,
			EpisodeID:       rec.EpisodeID,
			Title:           rec.Title,
			PosterPath:      rec.PosterPath,
			ProgressPercent: rec.ProgressPercent,
			ResumeURL:       resumeURL(rec.MovieID, rec.EpisodeID),
			LastWatchedAt:   rec.LastWatchedAt,
		}
	}

	s.enrich(ctx, entries)
	return entries, nil
}

// enrich fills catalog metadata in parallel, best effort: a failed
// lookup leaves the entry's core fields untouched.
func (s *Service) enrich(ctx context.Context, entries []models.ContinueWatchingEntry) {
	s.mu.Lock()
	catalog := s.catalog
	s.mu.Unlock()
	if catalog == nil || len(entries) == 0 {
		return
	}

	p := pool.New().WithMaxGoroutines(enrichConcurrency)
	for i := range entries {
		i := i
		p.Go(func() {
			title, err := catalog.MovieBySlug(ctx, entries[i].MovieID)
			if err != nil || title == nil {
				if err != nil {
					log.Printf("[progress] catalog lookup failed for %s: %v", entries[i].MovieID, err)
				}
				return
			}
			if entries[i].Title == "" {
				entries[i].Title = title.Name
			}
			if entries[i].PosterPath == "" {
				entries[i].PosterPath = title.PosterPath
			}
			entries[i].BackdropPath = title.BackdropPath
			entries[i].Overview = title.Overview
		})
	}
	p.Wait()
}

func (s *Service) broadcast(userID string) {
	s.mu.Lock()
	bus := s.bus
	s.mu.Unlock()
	if bus == nil {
		return
	}
	bus.Publish(eventbus.Event{Topic: eventbus.TopicHistoryUpdated, UserID: userID})
}

func resumeURL(movieID, episodeID string) string {
	if episodeID == "" {
		return "/watch/" + movieID
	}
	return "/watch/" + movieID + "?ep=" + url.QueryEscape(episodeID)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
