package models

import "time"

const (
	// ListWatchlist is the default saved-for-later list.
	ListWatchlist = "watchlist"
	// ListFavorites holds titles the user marked as favorites.
	ListFavorites = "favorites"
)

// WatchlistItem represents a media entry saved by a user on a named list.
type WatchlistItem struct {
	ID           string    `json:"id"`
	List         string    `json:"list"`      // watchlist | favorites
	MediaType    string    `json:"mediaType"` // movie | series
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty"`
	Year         int       `json:"year,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	AddedAt      time.Time `json:"addedAt"`
}

// WatchlistUpsert captures data required to insert or update a list item.
type WatchlistUpsert struct {
	ID           string `json:"id"`
	List         string `json:"list"`
	MediaType    string `json:"mediaType"`
	Name         string `json:"name"`
	Overview     string `json:"overview,omitempty"`
	Year         int    `json:"year,omitempty"`
	PosterPath   string `json:"posterPath,omitempty"`
	BackdropPath string `json:"backdropPath,omitempty"`
}

// Key returns a stable identifier combining list, media type and ID.
func (w WatchlistUpsert) Key() string {
	return w.List + ":" + w.MediaType + ":" + w.ID
}

// Key returns a stable identifier combining list, media type and ID.
func (w WatchlistItem) Key() string {
	return w.List + ":" + w.MediaType + ":" + w.ID
}
