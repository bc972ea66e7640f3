package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"openflix/handlers"
	"openflix/models"
	"openflix/services/users"
	"openflix/services/watchlist"

	"github.com/gorilla/mux"
)

func newWatchlistHandler(t *testing.T) (*handlers.WatchlistHandler, string) {
	t.Helper()
	dir := t.TempDir()

	svc, err := watchlist.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create watchlist service: %v", err)
	}
	userSvc, err := users.NewService(dir)
	if err != nil {
		t.Fatalf("failed to create users service: %v", err)
	}

	return handlers.NewWatchlistHandler(svc, userSvc), models.DefaultUserID
}

func addItem(t *testing.T, h *handlers.WatchlistHandler, userID, list string, input models.WatchlistUpsert) {
	t.Helper()
	payload, _ := json.Marshal(input)
	req := httptest.NewRequest(http.MethodPost, "/api/users/"+userID+"/lists/"+list, bytes.NewReader(payload))
	req = mux.SetURLVars(req, map[string]string{"userID": userID, "list": list})
	rec := httptest.NewRecorder()

	h.Add(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 adding item, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWatchlistAddAndList(t *testing.T) {
	h, userID := newWatchlistHandler(t)

	addItem(t, h, userID, models.ListWatchlist, models.WatchlistUpsert{
		ID:        "m1",
		MediaType: "movie",
		Name:      "Sample",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+userID+"/lists/watchlist", nil)
	req = mux.SetURLVars(req, map[string]string{"userID": userID, "list": models.ListWatchlist})
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var items []models.WatchlistItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(items) != 1 || items[0].ID != "m1" || items[0].List != models.ListWatchlist {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestWatchlistListsAreIndependent(t *testing.T) {
	h, userID := newWatchlistHandler(t)

	addItem(t, h, userID, models.ListFavorites, models.WatchlistUpsert{
		ID:        "m1",
		MediaType: "movie",
		Name:      "Sample",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+userID+"/lists/watchlist", nil)
	req = mux.SetURLVars(req, map[string]string{"userID": userID, "list": models.ListWatchlist})
	rec := httptest.NewRecorder()

	h.List(rec, req)

	var items []models.WatchlistItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("watchlist should be empty, got %+v", items)
	}
}

func TestWatchlistContains(t *testing.T) {
	h, userID := newWatchlistHandler(t)

	addItem(t, h, userID, models.ListWatchlist, models.WatchlistUpsert{
		ID:        "m1",
		MediaType: "movie",
		Name:      "Sample",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+userID+"/lists/watchlist/movie/m1", nil)
	req = mux.SetURLVars(req, map[string]string{
		"userID": userID, "list": models.ListWatchlist, "mediaType": "movie", "id": "m1",
	})
	rec := httptest.NewRecorder()

	h.Contains(rec, req)

	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp["inList"] {
		t.Fatal("expected the item to be reported as present")
	}
}

func TestWatchlistRemoveIsIdempotent(t *testing.T) {
	h, userID := newWatchlistHandler(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/api/users/"+userID+"/lists/watchlist/movie/m1", nil)
		req = mux.SetURLVars(req, map[string]string{
			"userID": userID, "list": models.ListWatchlist, "mediaType": "movie", "id": "m1",
		})
		rec := httptest.NewRecorder()

		h.Remove(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
	}
}

func TestWatchlistUnknownListRejected(t *testing.T) {
	h, userID := newWatchlistHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/"+userID+"/lists/bogus", nil)
	req = mux.SetURLVars(req, map[string]string{"userID": userID, "list": "bogus"})
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestWatchlistUnknownUserRejected(t *testing.T) {
	h, _ := newWatchlistHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/ghost/lists/watchlist", nil)
	req = mux.SetURLVars(req, map[string]string{"userID": "ghost", "list": models.ListWatchlist})
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}
