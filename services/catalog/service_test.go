package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := &Service{
		tmdb:      newTMDBClient("test-key", "en-US", server.Client()),
		cache:     newFileCache(t.TempDir(), 24),
		slugIndex: make(map[string]slugRef),
	}
	svc.tmdb.baseURL = server.URL
	svc.tmdb.minInterval = 0
	return svc, server
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Inception", "inception"},
		{"The Lord of the Rings: The Two Towers", "the-lord-of-the-rings-the-two-towers"},
		{"Amélie", "amelie"},
		{"  WALL·E  ", "wall-e"},
		{"2001: A Space Odyssey", "2001-a-space-odyssey"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSearchMapsAndFiltersResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/multi", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{
			"results": []map[string]any{
				{"id": 27205, "title": "Inception", "media_type": "movie", "release_date": "2010-07-16", "popularity": 90.5, "poster_path": "/inc.jpg"},
				{"id": 1, "name": "Christopher Nolan", "media_type": "person", "popularity": 50.0},
				{"id": 1396, "name": "Breaking Bad", "media_type": "tv", "first_air_date": "2008-01-20", "popularity": 120.0},
			},
		})
	})
	svc, _ := newTestService(t, mux)

	results, err := svc.Search(context.Background(), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results (person filtered), got %d", len(results))
	}
	if results[0].Title.Name != "Breaking Bad" {
		t.Fatalf("expected popularity ordering, got %q first", results[0].Title.Name)
	}
	movie := results[1].Title
	if movie.Slug != "inception" || movie.Year != 2010 || movie.MediaType != "movie" {
		t.Fatalf("unexpected movie mapping: %+v", movie)
	}
	if movie.PosterPath != "https://image.tmdb.org/t/p/w500/inc.jpg" {
		t.Fatalf("unexpected poster URL %q", movie.PosterPath)
	}
}

func TestSearchUsesCacheOnSecondCall(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/search/multi", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"results": []map[string]any{
			{"id": 27205, "title": "Inception", "media_type": "movie", "popularity": 90.5},
		}})
	})
	svc, _ := newTestService(t, mux)
	ctx := context.Background()

	if _, err := svc.Search(ctx, "inception"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Search(ctx, "inception"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
}

func TestTrendingRanksResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trending/movie/week", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"results": []map[string]any{
			{"id": 1, "title": "First", "release_date": "2024-01-01"},
			{"id": 2, "title": "Second", "release_date": "2024-02-01"},
		}})
	})
	svc, _ := newTestService(t, mux)

	items, err := svc.Trending(context.Background(), "movies")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].Rank != 1 || items[1].Rank != 2 {
		t.Fatalf("unexpected ranking: %+v", items)
	}
}

func TestMovieBySlugUsesIndexFromEarlierTraffic(t *testing.T) {
	var detailCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/trending/movie/week", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"results": []map[string]any{
			{"id": 27205, "title": "Inception", "release_date": "2010-07-16"},
		}})
	})
	mux.HandleFunc("/movie/27205", func(w http.ResponseWriter, r *http.Request) {
		detailCalls.Add(1)
		writeJSON(w, map[string]any{
			"id": 27205, "title": "Inception", "overview": "Dream heist.",
			"release_date": "2010-07-16", "runtime": 148,
		})
	})
	svc, _ := newTestService(t, mux)
	ctx := context.Background()

	if _, err := svc.Trending(ctx, "movie"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	title, err := svc.MovieBySlug(ctx, "inception")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title == nil || title.Overview != "Dream heist." {
		t.Fatalf("expected details via slug index, got %+v", title)
	}
	if detailCalls.Load() != 1 {
		t.Fatalf("expected one details call, got %d", detailCalls.Load())
	}
}

func TestMovieBySlugFallsBackToSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/multi", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "the matrix" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("query"))
		}
		writeJSON(w, map[string]any{"results": []map[string]any{
			{"id": 603, "title": "The Matrix", "media_type": "movie", "release_date": "1999-03-31"},
		}})
	})
	svc, _ := newTestService(t, mux)

	title, err := svc.MovieBySlug(context.Background(), "the-matrix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title == nil || title.TMDBID != 603 {
		t.Fatalf("expected matrix via search fallback, got %+v", title)
	}
}

func TestMovieBySlugUnknownReturnsNil(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/multi", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"results": []map[string]any{}})
	})
	svc, _ := newTestService(t, mux)

	title, err := svc.MovieBySlug(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != nil {
		t.Fatalf("expected nil title, got %+v", title)
	}
}

func TestDoGETRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/trending/tv/week", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"results": []map[string]any{
			{"id": 1396, "name": "Breaking Bad", "first_air_date": "2008-01-20"},
		}})
	})
	svc, _ := newTestService(t, mux)

	items, err := svc.Trending(context.Background(), "series")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(items) != 1 || items[0].Title.Name != "Breaking Bad" {
		t.Fatalf("unexpected items %+v", items)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSeriesDetailsIncludesEpisodeSlugs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tv/1396", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": 1396, "name": "Breaking Bad", "first_air_date": "2008-01-20"})
	})
	mux.HandleFunc("/tv/1396/season/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"episodes": []map[string]any{
			{"id": 1, "name": "Pilot", "season_number": 1, "episode_number": 1},
			{"id": 2, "name": "Cat's in the Bag...", "season_number": 1, "episode_number": 2},
		}})
	})
	svc, _ := newTestService(t, mux)

	details, err := svc.SeriesDetails(context.Background(), 1396)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.Title.Name != "Breaking Bad" {
		t.Fatalf("unexpected title %+v", details.Title)
	}
	if len(details.Episodes) != 2 || details.Episodes[0].Slug != "s1e1" || details.Episodes[1].Slug != "s1e2" {
		t.Fatalf("unexpected episodes %+v", details.Episodes)
	}
}

func TestMissingAPIKey(t *testing.T) {
	svc := &Service{
		tmdb:      newTMDBClient("", "en-US", nil),
		cache:     newFileCache(t.TempDir(), 24),
		slugIndex: make(map[string]slugRef),
	}
	if _, err := svc.Trending(context.Background(), "movie"); err == nil {
		t.Fatal("expected an error without an API key")
	}
}
