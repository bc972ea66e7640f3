package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"openflix/models"
	"openflix/services/catalog"

	"github.com/gorilla/mux"
)

type catalogService interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Trending(ctx context.Context, mediaType string) ([]models.TrendingItem, error)
	Details(ctx context.Context, mediaType string, id int64) (*models.Title, error)
	SeriesDetails(ctx context.Context, id int64) (*models.SeriesDetails, error)
	Similar(ctx context.Context, mediaType string, id int64) ([]models.Title, error)
	Genres(ctx context.Context) ([]models.Genre, error)
	Countries(ctx context.Context) ([]models.Country, error)
}

var _ catalogService = (*catalog.Service)(nil)

type CatalogHandler struct {
	Service catalogService
}

func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{Service: service}
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}

	results, err := h.Service.Search(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func (h *CatalogHandler) Trending(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Trending(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *CatalogHandler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	title, err := h.Service.Details(r.Context(), "movie", id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(title)
}

func (h *CatalogHandler) SeriesDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	details, err := h.Service.SeriesDetails(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

func (h *CatalogHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	titles, err := h.Service.Similar(r.Context(), mux.Vars(r)["mediaType"], id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(titles)
}

func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.Service.Genres(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(genres)
}

func (h *CatalogHandler) Countries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.Service.Countries(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(countries)
}

func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(mux.Vars(r)["id"])
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "numeric id is required", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
