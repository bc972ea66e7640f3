package api

import (
	"net/http"

	"openflix/handlers"

	"github.com/gorilla/mux"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	usersHandler *handlers.UsersHandler,
	progressHandler *handlers.ProgressHandler,
	watchlistHandler *handlers.WatchlistHandler,
	catalogHandler *handlers.CatalogHandler,
	notificationsHandler *handlers.NotificationsHandler,
	eventsHandler *handlers.EventsHandler,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)

	// Catalog discovery routes
	api.HandleFunc("/search", catalogHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/search", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/trending", catalogHandler.Trending).Methods(http.MethodGet)
	api.HandleFunc("/trending", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/genres", catalogHandler.Genres).Methods(http.MethodGet)
	api.HandleFunc("/genres", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/countries", catalogHandler.Countries).Methods(http.MethodGet)
	api.HandleFunc("/countries", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/movies/{id}", catalogHandler.MovieDetails).Methods(http.MethodGet)
	api.HandleFunc("/movies/{id}", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/series/{id}", catalogHandler.SeriesDetails).Methods(http.MethodGet)
	api.HandleFunc("/series/{id}", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/{mediaType:movie|series}/{id}/similar", catalogHandler.Similar).Methods(http.MethodGet)
	api.HandleFunc("/{mediaType:movie|series}/{id}/similar", catalogHandler.Options).Methods(http.MethodOptions)

	// Profile routes
	api.HandleFunc("/users", usersHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users", usersHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/users", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}", usersHandler.Rename).Methods(http.MethodPatch)
	api.HandleFunc("/users/{userID}", usersHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/color", usersHandler.SetColor).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/color", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/pin", usersHandler.SetPin).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/pin", usersHandler.ClearPin).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/pin", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/pin/verify", usersHandler.VerifyPin).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/pin/verify", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/kids-profile", usersHandler.SetKidsProfile).Methods(http.MethodPut)
	api.HandleFunc("/users/{userID}/kids-profile", usersHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/avatar", usersHandler.SetAvatar).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/avatar", usersHandler.ClearAvatar).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/avatar", usersHandler.Options).Methods(http.MethodOptions)

	// Watch progress routes
	api.HandleFunc("/users/{userID}/progress", progressHandler.Report).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/progress", progressHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/progress/continue", progressHandler.ContinueWatching).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/progress/continue", progressHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/progress/{movieID}", progressHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/progress/{movieID}", progressHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/progress/{movieID}", progressHandler.Options).Methods(http.MethodOptions)

	// Saved list routes ("watchlist" and "favorites")
	api.HandleFunc("/users/{userID}/lists/{list}", watchlistHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/lists/{list}", watchlistHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/lists/{list}", watchlistHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/lists/{list}/{mediaType}/{id}", watchlistHandler.Contains).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/lists/{list}/{mediaType}/{id}", watchlistHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/lists/{list}/{mediaType}/{id}", watchlistHandler.Options).Methods(http.MethodOptions)

	// Notification routes
	api.HandleFunc("/users/{userID}/notifications", notificationsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/notifications", notificationsHandler.Push).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/notifications", notificationsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/notifications/read-all", notificationsHandler.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/notifications/read-all", notificationsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/notifications/{id}/read", notificationsHandler.MarkRead).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}/notifications/{id}/read", notificationsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/users/{userID}/notifications/{id}", notificationsHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{userID}/notifications/{id}", notificationsHandler.Options).Methods(http.MethodOptions)

	// Server-sent events stream
	api.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)
	api.HandleFunc("/events", handleOptions).Methods(http.MethodOptions)

	// Version endpoint
	versionHandler := handlers.NewVersionHandler()
	api.HandleFunc("/version", versionHandler.GetVersion).Methods(http.MethodGet, http.MethodOptions)
}
