package database

import (
	"context"
	"database/sql"
	"fmt"

	"openflix/models"
)

// ProgressStore persists watch progress records keyed by
// (user, movie, relation type, episode). An absent episode is stored
// as the empty string so the composite primary key stays enforceable.
type ProgressStore struct {
	db *sql.DB
}

// NewProgressStore returns a store backed by the shared database.
func NewProgressStore(d *Database) *ProgressStore {
	return &ProgressStore{db: d.db}
}

// Upsert inserts the record or replaces the existing row for its key.
func (s *ProgressStore) Upsert(ctx context.Context, rec models.WatchProgressRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_progress
			(user_id, movie_id, relation_type, episode_id, title, poster_path,
			 current_time_s, duration_s, progress_pct, last_watched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, movie_id, relation_type, episode_id) DO UPDATE SET
			title = excluded.title,
			poster_path = excluded.poster_path,
			current_time_s = excluded.current_time_s,
			duration_s = excluded.duration_s,
			progress_pct = excluded.progress_pct,
			last_watched_at = excluded.last_watched_at`,
		rec.UserID, rec.MovieID, relationType(rec.RelationType), rec.EpisodeID,
		rec.Title, rec.PosterPath,
		rec.CurrentTimeSeconds, rec.DurationSeconds, rec.ProgressPercent,
		rec.LastWatchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert watch progress: %w", err)
	}
	return nil
}

// DeleteByKey removes the single row for the key. Deleting an absent
// key is not an error.
func (s *ProgressStore) DeleteByKey(ctx context.Context, userID, movieID, episodeID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watch_progress
		WHERE user_id = ? AND movie_id = ? AND relation_type = ? AND episode_id = ?`,
		userID, movieID, models.RelationTypeHistory, episodeID,
	)
	if err != nil {
		return fmt.Errorf("delete watch progress: %w", err)
	}
	return nil
}

// DeleteAllForMovie removes every episode row a user holds for a movie.
func (s *ProgressStore) DeleteAllForMovie(ctx context.Context, userID, movieID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watch_progress
		WHERE user_id = ? AND movie_id = ? AND relation_type = ?`,
		userID, movieID, models.RelationTypeHistory,
	)
	if err != nil {
		return fmt.Errorf("delete watch progress for movie: %w", err)
	}
	return nil
}

// QueryOne returns the record for the key, or nil when none exists.
func (s *ProgressStore) QueryOne(ctx context.Context, userID, movieID, episodeID string) (*models.WatchProgressRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, movie_id, relation_type, episode_id, title, poster_path,
		       current_time_s, duration_s, progress_pct, last_watched_at
		FROM watch_progress
		WHERE user_id = ? AND movie_id = ? AND relation_type = ? AND episode_id = ?`,
		userID, movieID, models.RelationTypeHistory, episodeID,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query watch progress: %w", err)
	}
	return rec, nil
}

// QueryRecent returns up to limit records for the user ordered by most
// recently watched.
func (s *ProgressStore) QueryRecent(ctx context.Context, userID string, limit int) ([]models.WatchProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, movie_id, relation_type, episode_id, title, poster_path,
		       current_time_s, duration_s, progress_pct, last_watched_at
		FROM watch_progress
		WHERE user_id = ? AND relation_type = ?
		ORDER BY last_watched_at DESC
		LIMIT ?`,
		userID, models.RelationTypeHistory, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent watch progress: %w", err)
	}
	defer rows.Close()

	var records []models.WatchProgressRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watch progress row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch progress rows: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.WatchProgressRecord, error) {
	var rec models.WatchProgressRecord
	if err := row.Scan(
		&rec.UserID, &rec.MovieID, &rec.RelationType, &rec.EpisodeID,
		&rec.Title, &rec.PosterPath,
		&rec.CurrentTimeSeconds, &rec.DurationSeconds, &rec.ProgressPercent,
		&rec.LastWatchedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func relationType(rt string) string {
	if rt == "" {
		return models.RelationTypeHistory
	}
	return rt
}
