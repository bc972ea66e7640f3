// Package catalog serves browse, search and detail data from the TMDB
// API, cached on disk and keyed by slug for player-facing lookups.
package catalog

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mozillazg/go-unidecode"

	"openflix/models"
)

type slugRef struct {
	MediaType string
	ID        int64
}

type Service struct {
	tmdb  *tmdbClient
	cache *fileCache

	// slug → TMDB identity, filled as results flow through
	slugMu    sync.RWMutex
	slugIndex map[string]slugRef
}

func NewService(apiKey, language, cacheDir string, ttlHours int) *Service {
	return &Service{
		tmdb:      newTMDBClient(apiKey, language, &http.Client{}),
		cache:     newFileCache(filepath.Join(cacheDir, "catalog"), ttlHours),
		slugIndex: make(map[string]slugRef),
	}
}

// UpdateAPIKey swaps the TMDB key and clears cached responses so fresh
// data is fetched with the new credentials.
func (s *Service) UpdateAPIKey(apiKey, language string) {
	s.tmdb = newTMDBClient(apiKey, language, s.tmdb.httpc)
	if err := s.cache.clear(); err != nil {
		log.Printf("[catalog] warning: failed to clear cache: %v", err)
	}
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe identifier from a display title.
func Slugify(name string) string {
	s := strings.ToLower(unidecode.Unidecode(name))
	s = slugStripRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Search queries titles matching the free-text query, people excluded.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}

	key := cacheKey("search", strings.ToLower(query))
	var cached []models.SearchResult
	if ok, _ := s.cache.get(key, &cached); ok {
		s.indexResults(cached)
		return cached, nil
	}

	items, err := s.tmdb.search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		if item.MediaType == "person" {
			continue
		}
		title := s.itemToTitle(item, mapMediaType(item.MediaType))
		results = append(results, models.SearchResult{
			Title: title,
			Score: int(item.Popularity),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if err := s.cache.set(key, results); err != nil {
		log.Printf("[catalog] failed to cache search results: %v", err)
	}
	return results, nil
}

// Trending returns the ranked trending row for a media type
// (series|movie).
func (s *Service) Trending(ctx context.Context, mediaType string) ([]models.TrendingItem, error) {
	normalized := normalizeMediaType(mediaType)

	key := cacheKey("trending", normalized)
	var cached []models.TrendingItem
	if ok, _ := s.cache.get(key, &cached); ok && len(cached) > 0 {
		for _, item := range cached {
			s.indexTitle(item.Title)
		}
		return cached, nil
	}

	raw, err := s.tmdb.trending(ctx, normalized)
	if err != nil {
		return nil, err
	}

	items := make([]models.TrendingItem, 0, len(raw))
	for i, item := range raw {
		items = append(items, models.TrendingItem{
			Rank:  i + 1,
			Title: s.itemToTitle(item, normalized),
		})
	}
	if err := s.cache.set(key, items); err != nil {
		log.Printf("[catalog] failed to cache trending row: %v", err)
	}
	return items, nil
}

// Details returns the full title for a TMDB ID.
func (s *Service) Details(ctx context.Context, mediaType string, id int64) (*models.Title, error) {
	normalized := normalizeMediaType(mediaType)

	key := cacheKey("details", normalized, strconv.FormatInt(id, 10))
	var cached models.Title
	if ok, _ := s.cache.get(key, &cached); ok && cached.TMDBID != 0 {
		s.indexTitle(cached)
		return &cached, nil
	}

	item, err := s.tmdb.details(ctx, normalized, id)
	if err != nil {
		return nil, err
	}
	title := s.itemToTitle(*item, normalized)
	if err := s.cache.set(key, title); err != nil {
		log.Printf("[catalog] failed to cache details: %v", err)
	}
	return &title, nil
}

// SeriesDetails returns the series title together with its first
// season's episode list, each episode carrying a player slug.
func (s *Service) SeriesDetails(ctx context.Context, id int64) (*models.SeriesDetails, error) {
	title, err := s.Details(ctx, "series", id)
	if err != nil {
		return nil, err
	}

	raw, err := s.tmdb.season(ctx, id, 1)
	if err != nil {
		// the title page still renders without an episode list
		log.Printf("[catalog] failed to load episodes for series %d: %v", id, err)
		return &models.SeriesDetails{Title: *title}, nil
	}

	episodes := make([]models.Episode, 0, len(raw))
	for _, ep := range raw {
		episodes = append(episodes, models.Episode{
			ID:            strconv.FormatInt(ep.ID, 10),
			Slug:          "s" + strconv.Itoa(ep.SeasonNumber) + "e" + strconv.Itoa(ep.EpisodeNumber),
			Name:          ep.Name,
			Overview:      ep.Overview,
			SeasonNumber:  ep.SeasonNumber,
			EpisodeNumber: ep.EpisodeNumber,
			StillPath:     imageURL(ep.StillPath, tmdbPosterSize),
			Runtime:       ep.Runtime,
			AiredDate:     ep.AirDate,
		})
	}
	return &models.SeriesDetails{Title: *title, Episodes: episodes}, nil
}

// Similar returns titles related to the given one.
func (s *Service) Similar(ctx context.Context, mediaType string, id int64) ([]models.Title, error) {
	normalized := normalizeMediaType(mediaType)

	key := cacheKey("similar", normalized, strconv.FormatInt(id, 10))
	var cached []models.Title
	if ok, _ := s.cache.get(key, &cached); ok && len(cached) > 0 {
		return cached, nil
	}

	raw, err := s.tmdb.similar(ctx, normalized, id)
	if err != nil {
		return nil, err
	}
	titles := make([]models.Title, 0, len(raw))
	for _, item := range raw {
		titles = append(titles, s.itemToTitle(item, normalized))
	}
	if err := s.cache.set(key, titles); err != nil {
		log.Printf("[catalog] failed to cache similar titles: %v", err)
	}
	return titles, nil
}

// Genres returns the merged movie and series genre taxonomy.
func (s *Service) Genres(ctx context.Context) ([]models.Genre, error) {
	key := cacheKey("genres")
	var cached []models.Genre
	if ok, _ := s.cache.get(key, &cached); ok && len(cached) > 0 {
		return cached, nil
	}

	movie, err := s.tmdb.genres(ctx, "movie")
	if err != nil {
		return nil, err
	}
	series, err := s.tmdb.genres(ctx, "series")
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(movie)+len(series))
	genres := make([]models.Genre, 0, len(movie)+len(series))
	for _, g := range append(movie, series...) {
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		genres = append(genres, models.Genre{ID: g.ID, Name: g.Name})
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })

	if err := s.cache.set(key, genres); err != nil {
		log.Printf("[catalog] failed to cache genres: %v", err)
	}
	return genres, nil
}

// Countries returns the country taxonomy used for browse filters.
func (s *Service) Countries(ctx context.Context) ([]models.Country, error) {
	key := cacheKey("countries")
	var cached []models.Country
	if ok, _ := s.cache.get(key, &cached); ok && len(cached) > 0 {
		return cached, nil
	}

	raw, err := s.tmdb.countries(ctx)
	if err != nil {
		return nil, err
	}
	countries := make([]models.Country, 0, len(raw))
	for _, c := range raw {
		countries = append(countries, models.Country{Code: c.ISO31661, Name: c.Name})
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i].Name < countries[j].Name })

	if err := s.cache.set(key, countries); err != nil {
		log.Printf("[catalog] failed to cache countries: %v", err)
	}
	return countries, nil
}

// MovieBySlug resolves a player slug back to its title. Slugs learned
// from earlier search/trending traffic resolve directly; otherwise the
// slug is de-slugged into a search query and matched. Nil when no
// title matches.
func (s *Service) MovieBySlug(ctx context.Context, slug string) (*models.Title, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}

	s.slugMu.RLock()
	ref, ok := s.slugIndex[slug]
	s.slugMu.RUnlock()
	if ok {
		return s.Details(ctx, ref.MediaType, ref.ID)
	}

	results, err := s.Search(ctx, strings.ReplaceAll(slug, "-", " "))
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		if res.Title.Slug == slug {
			title := res.Title
			return &title, nil
		}
	}
	return nil, nil
}

func (s *Service) itemToTitle(item tmdbItem, mediaType string) models.Title {
	name := pickName(item)
	original := item.OriginalName
	if original == "" {
		original = item.OriginalTitle
	}
	if original == name {
		original = ""
	}
	title := models.Title{
		ID:           strconv.FormatInt(item.ID, 10),
		Slug:         Slugify(name),
		Name:         name,
		OriginalName: original,
		Overview:     item.Overview,
		Year:         parseYear(item.ReleaseDate, item.FirstAirDate),
		Language:     item.Language,
		PosterPath:   imageURL(item.PosterPath, tmdbPosterSize),
		BackdropPath: imageURL(item.BackdropPath, tmdbBackdropSize),
		MediaType:    mediaType,
		TMDBID:       item.ID,
		Popularity:   item.Popularity,
		VoteAverage:  item.VoteAverage,
		Runtime:      item.Runtime,
	}
	for _, g := range item.Genres {
		title.Genres = append(title.Genres, models.Genre{ID: g.ID, Name: g.Name})
	}
	for _, c := range item.Countries {
		title.Countries = append(title.Countries, c.ISO31661)
	}
	s.indexTitle(title)
	return title
}

func (s *Service) indexTitle(title models.Title) {
	if title.Slug == "" || title.TMDBID == 0 {
		return
	}
	s.slugMu.Lock()
	s.slugIndex[title.Slug] = slugRef{MediaType: title.MediaType, ID: title.TMDBID}
	s.slugMu.Unlock()
}

func (s *Service) indexResults(results []models.SearchResult) {
	for _, res := range results {
		s.indexTitle(res.Title)
	}
}

func normalizeMediaType(mediaType string) string {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "", "tv", "series", "show", "shows":
		return "series"
	case "movie", "movies", "film", "films":
		return "movie"
	default:
		return "series"
	}
}
