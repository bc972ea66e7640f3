package models

import "time"

// RelationTypeHistory is the relation type stored for watch-progress rows.
// The unique key of a progress record is (userID, movieID, relationType, episodeID).
const RelationTypeHistory = "history"

// WatchProgressRecord captures where a user is inside one title.
// EpisodeID is empty for single-part content; a movie-level record and an
// episode-level record for the same movie are distinct identities.
type WatchProgressRecord struct {
	UserID             string    `json:"userId"`
	MovieID            string    `json:"movieId"`
	EpisodeID          string    `json:"episodeId,omitempty"`
	RelationType       string    `json:"relationType"`
	Title              string    `json:"title,omitempty"`
	PosterPath         string    `json:"posterPath,omitempty"`
	CurrentTimeSeconds int       `json:"currentTimeSeconds"`
	DurationSeconds    int       `json:"durationSeconds"`
	ProgressPercent    int       `json:"progressPercent"`
	LastWatchedAt      time.Time `json:"lastWatchedAt"`
}

// Key returns the composite identity for the record.
func (r WatchProgressRecord) Key() ProgressKey {
	return ProgressKey{
		UserID:    r.UserID,
		MovieID:   r.MovieID,
		EpisodeID: r.EpisodeID,
	}
}

// ProgressKey is the uniqueness key for watch-progress records. The relation
// type is fixed to RelationTypeHistory and omitted.
type ProgressKey struct {
	UserID    string
	MovieID   string
	EpisodeID string
}

// MovieRef is the display identity a player sends with progress reports.
type MovieRef struct {
	Slug       string `json:"slug"`
	Title      string `json:"title,omitempty"`
	PosterPath string `json:"posterPath,omitempty"`
}

// ProgressReport is the player -> tracker call contract. Sent periodically
// during playback and once on navigation away.
type ProgressReport struct {
	CurrentTime   float64  `json:"currentTime"`
	Duration      float64  `json:"duration"`
	Movie         MovieRef `json:"movie"`
	EpisodeSlug   string   `json:"episodeSlug,omitempty"`
	IsLastEpisode bool     `json:"isLastEpisode,omitempty"`
}

// ContinueWatchingEntry is a progress record reshaped for display.
type ContinueWatchingEntry struct {
	MovieID         string    `json:"movieId"`
	EpisodeID       string    `json:"episodeId,omitempty"`
	Title           string    `json:"title,omitempty"`
	PosterPath      string    `json:"posterPath,omitempty"`
	BackdropPath    string    `json:"backdropPath,omitempty"`
	Overview        string    `json:"overview,omitempty"`
	ProgressPercent int       `json:"progressPercent"`
	ResumeURL       string    `json:"resumeUrl"`
	LastWatchedAt   time.Time `json:"lastWatchedAt"`
}
