package models

// Catalog title structures returned by the content API client.

type Title struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	OriginalName string   `json:"originalName,omitempty"`
	Overview     string   `json:"overview"`
	Year         int      `json:"year"`
	Language     string   `json:"language,omitempty"`
	PosterPath   string   `json:"posterPath,omitempty"`
	BackdropPath string   `json:"backdropPath,omitempty"`
	MediaType    string   `json:"mediaType"` // movie | series
	TMDBID       int64    `json:"tmdbId,omitempty"`
	Popularity   float64  `json:"popularity,omitempty"`
	VoteAverage  float64  `json:"voteAverage,omitempty"`
	Genres       []Genre  `json:"genres,omitempty"`
	Runtime      int      `json:"runtimeMinutes,omitempty"`
	Countries    []string `json:"countries,omitempty"`
}

type TrendingItem struct {
	Rank  int   `json:"rank"`
	Title Title `json:"title"`
}

type SearchResult struct {
	Title Title `json:"title"`
	Score int   `json:"score"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Episode struct {
	ID            string `json:"id"`
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Overview      string `json:"overview,omitempty"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	StillPath     string `json:"stillPath,omitempty"`
	Runtime       int    `json:"runtimeMinutes,omitempty"`
	AiredDate     string `json:"airedDate,omitempty"`
}

type SeriesDetails struct {
	Title    Title     `json:"title"`
	Episodes []Episode `json:"episodes"`
}
