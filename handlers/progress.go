package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"openflix/models"
	"openflix/services/progress"

	"github.com/gorilla/mux"
)

// userService is the narrow profile lookup the per-user handlers need.
type userService interface {
	Exists(id string) bool
}

type progressService interface {
	ReportProgress(ctx context.Context, userID string, report models.ProgressReport) progress.Outcome
	ContinueWatching(ctx context.Context, userID string) ([]models.ContinueWatchingEntry, error)
	Get(ctx context.Context, userID, movieID, episodeID string) (*models.WatchProgressRecord, error)
	Remove(ctx context.Context, userID, movieID, episodeID string) progress.Outcome
}

var _ progressService = (*progress.Service)(nil)

type ProgressHandler struct {
	Service progressService
	Users   userService
}

func NewProgressHandler(service progressService, users userService) *ProgressHandler {
	return &ProgressHandler{Service: service, Users: users}
}

// Report ingests a playback sample. The player fires these on a timer,
// so the response is always 200 with the applied action; a persistence
// failure is reported in the body, never as an error status.
func (h *ProgressHandler) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var report models.ProgressReport
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&report); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := h.Service.ReportProgress(r.Context(), userID, report)

	resp := struct {
		Action string                      `json:"action"`
		Record *models.WatchProgressRecord `json:"record,omitempty"`
		Error  string                      `json:"error,omitempty"`
	}{Action: string(outcome.Action), Record: outcome.Record}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ContinueWatching returns the display-ready resume row.
func (h *ProgressHandler) ContinueWatching(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.ContinueWatching(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// Get returns the stored record for a movie, or for one of its
// episodes via the ep query parameter.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	movieID := strings.TrimSpace(mux.Vars(r)["movieID"])
	if movieID == "" {
		http.Error(w, "movie id is required", http.StatusBadRequest)
		return
	}
	episodeID := strings.TrimSpace(r.URL.Query().Get("ep"))

	record, err := h.Service.Get(r.Context(), userID, movieID, episodeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// Remove deletes a record regardless of its progress. Removing an
// absent record still returns 204.
func (h *ProgressHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	movieID := strings.TrimSpace(mux.Vars(r)["movieID"])
	if movieID == "" {
		http.Error(w, "movie id is required", http.StatusBadRequest)
		return
	}
	episodeID := strings.TrimSpace(r.URL.Query().Get("ep"))

	outcome := h.Service.Remove(r.Context(), userID, movieID, episodeID)
	if outcome.Err != nil {
		http.Error(w, outcome.Err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProgressHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *ProgressHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
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
