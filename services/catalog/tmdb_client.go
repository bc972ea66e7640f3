package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// Optimized image sizes instead of "original" to reduce memory usage.
	tmdbPosterSize   = "w500"
	tmdbBackdropSize = "w1280"
)

var errNotConfigured = errors.New("tmdb api key not configured")

type tmdbClient struct {
	apiKey   string
	language string
	baseURL  string
	httpc    *http.Client

	// Rate limiting
	throttleMu  sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newTMDBClient(apiKey, language string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &tmdbClient{
		apiKey:      strings.TrimSpace(apiKey),
		language:    language,
		baseURL:     tmdbBaseURL,
		httpc:       httpc,
		minInterval: 20 * time.Millisecond, // TMDB has generous rate limits
	}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

// doGET performs a rate-limited GET with retry and exponential backoff
// on network errors, 429 and 5xx.
func (c *tmdbClient) doGET(ctx context.Context, endpoint string, query url.Values, v any) error {
	if !c.isConfigured() {
		return errNotConfigured
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	if lang := strings.TrimSpace(c.language); lang != "" {
		query.Set("language", normalizeLanguage(lang))
	} else {
		query.Set("language", "en-US")
	}
	fullURL := c.baseURL + endpoint + "?" + query.Encode()

	return retry.Do(
		func() error {
			c.throttle()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("tmdb request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("tmdb request failed: %s", resp.Status))
			}
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func (c *tmdbClient) throttle() {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()
	if since := time.Since(c.lastRequest); since < c.minInterval {
		time.Sleep(c.minInterval - since)
	}
	c.lastRequest = time.Now()
}

type tmdbItem struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Title         string      `json:"title"`
	OriginalName  string      `json:"original_name"`
	OriginalTitle string      `json:"original_title"`
	Overview      string      `json:"overview"`
	Language      string      `json:"original_language"`
	PosterPath    string      `json:"poster_path"`
	BackdropPath  string      `json:"backdrop_path"`
	Popularity    float64     `json:"popularity"`
	VoteAverage   float64     `json:"vote_average"`
	FirstAirDate  string      `json:"first_air_date"`
	ReleaseDate   string      `json:"release_date"`
	MediaType     string      `json:"media_type"`
	GenreIDs      []int64     `json:"genre_ids"`
	Genres        []tmdbGenre `json:"genres"`
	Runtime       int         `json:"runtime"`
	Countries     []struct {
		ISO31661 string `json:"iso_3166_1"`
	} `json:"production_countries"`
}

type tmdbListResponse struct {
	Results []tmdbItem `json:"results"`
}

type tmdbGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tmdbGenreListResponse struct {
	Genres []tmdbGenre `json:"genres"`
}

type tmdbCountry struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"english_name"`
}

type tmdbEpisode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	StillPath     string `json:"still_path"`
	Runtime       int    `json:"runtime"`
	AirDate       string `json:"air_date"`
}

type tmdbSeasonResponse struct {
	Episodes []tmdbEpisode `json:"episodes"`
}

func (c *tmdbClient) search(ctx context.Context, query string) ([]tmdbItem, error) {
	var out tmdbListResponse
	q := url.Values{"query": {query}, "include_adult": {"false"}}
	if err := c.doGET(ctx, "/search/multi", q, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *tmdbClient) trending(ctx context.Context, mediaType string) ([]tmdbItem, error) {
	var out tmdbListResponse
	if err := c.doGET(ctx, "/trending/"+tmdbMediaType(mediaType)+"/week", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *tmdbClient) details(ctx context.Context, mediaType string, id int64) (*tmdbItem, error) {
	var out tmdbItem
	if err := c.doGET(ctx, "/"+tmdbMediaType(mediaType)+"/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *tmdbClient) similar(ctx context.Context, mediaType string, id int64) ([]tmdbItem, error) {
	var out tmdbListResponse
	endpoint := "/" + tmdbMediaType(mediaType) + "/" + strconv.FormatInt(id, 10) + "/similar"
	if err := c.doGET(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *tmdbClient) season(ctx context.Context, id int64, season int) ([]tmdbEpisode, error) {
	var out tmdbSeasonResponse
	endpoint := "/tv/" + strconv.FormatInt(id, 10) + "/season/" + strconv.Itoa(season)
	if err := c.doGET(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Episodes, nil
}

func (c *tmdbClient) genres(ctx context.Context, mediaType string) ([]tmdbGenre, error) {
	var out tmdbGenreListResponse
	if err := c.doGET(ctx, "/genre/"+tmdbMediaType(mediaType)+"/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

func (c *tmdbClient) countries(ctx context.Context) ([]tmdbCountry, error) {
	var out []tmdbCountry
	if err := c.doGET(ctx, "/configuration/countries", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func tmdbMediaType(mediaType string) string {
	if mediaType == "series" {
		return "tv"
	}
	if mediaType == "" {
		return "movie"
	}
	return mediaType
}

func mapMediaType(tmdbType string) string {
	if tmdbType == "tv" {
		return "series"
	}
	return "movie"
}

func pickName(item tmdbItem) string {
	if item.Title != "" {
		return item.Title
	}
	return item.Name
}

func parseYear(movieDate, seriesDate string) int {
	date := movieDate
	if date == "" {
		date = seriesDate
	}
	if date == "" {
		return 0
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Year()
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}

func imageURL(imagePath, size string) string {
	trimmed := strings.TrimSpace(imagePath)
	if trimmed == "" {
		return ""
	}
	return tmdbImageBaseURL + "/" + size + "/" + strings.TrimPrefix(trimmed, "/")
}

func normalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(lang, "_", "-")
	if len(lang) == 2 {
		return strings.ToLower(lang) + "-US"
	}
	if len(lang) >= 5 {
		return strings.ToLower(lang[:2]) + "-" + strings.ToUpper(lang[3:])
	}
	return "en-US"
}
