package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"openflix/models"
	"openflix/services/watchlist"

	"github.com/gorilla/mux"
)

type watchlistService interface {
	List(userID, list string) ([]models.WatchlistItem, error)
	Contains(userID, list, mediaType, id string) (bool, error)
	AddOrUpdate(userID string, input models.WatchlistUpsert) (models.WatchlistItem, error)
	Remove(userID, list, mediaType, id string) (bool, error)
}

var _ watchlistService = (*watchlist.Service)(nil)

type WatchlistHandler struct {
	Service watchlistService
	Users   userService
}

func NewWatchlistHandler(service watchlistService, users userService) *WatchlistHandler {
	return &WatchlistHandler{Service: service, Users: users}
}

func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.Service.List(userID, mux.Vars(r)["list"])
	if err != nil {
		http.Error(w, err.Error(), listErrStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var input models.WatchlistUpsert
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// the path names the list, the body names the item
	input.List = mux.Vars(r)["list"]

	item, err := h.Service.AddOrUpdate(userID, input)
	if err != nil {
		http.Error(w, err.Error(), listErrStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *WatchlistHandler) Contains(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	found, err := h.Service.Contains(userID, vars["list"], vars["mediaType"], vars["id"])
	if err != nil {
		http.Error(w, err.Error(), listErrStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"inList": found})
}

func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	if _, err := h.Service.Remove(userID, vars["list"], vars["mediaType"], vars["id"]); err != nil {
		http.Error(w, err.Error(), listErrStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *WatchlistHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(mux.Vars(r)["userID"])
	if userID == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return "", false
	}

	if h.Users != nil && !h.Users.Exists(userID) {
		http.Error(w, "user not found", http.StatusNotFound)
		return "", false
	}

	return userID, true
}

func listErrStatus(err error) int {
	switch {
	case errors.Is(err, watchlist.ErrUnknownList),
		errors.Is(err, watchlist.ErrUserIDRequired),
		errors.Is(err, watchlist.ErrIDRequired),
		errors.Is(err, watchlist.ErrMediaTypeRequired),
		errors.Is(err, watchlist.ErrIdentifierRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
