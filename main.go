package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"openflix/api"
	"openflix/config"
	"openflix/handlers"
	"openflix/internal/database"
	"openflix/internal/eventbus"
	"openflix/services/catalog"
	"openflix/services/notifications"
	"openflix/services/progress"
	"openflix/services/users"
	"openflix/services/watchlist"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 openflix Backend Starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("OPENFLIX_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	// Apply port override if specified
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if settings.Catalog.TMDBAPIKey == "" {
		log.Printf("warning: no TMDB API key configured; catalog endpoints will return errors")
	}

	db, err := database.Open(settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open progress database: %v", err)
	}
	defer db.Close()

	bus := eventbus.New()
	defer bus.Close()

	catalogService := catalog.NewService(settings.Catalog.TMDBAPIKey, settings.Catalog.Language, settings.Cache.Directory, settings.Cache.TTLHours)

	progressService := progress.New(database.NewProgressStore(db))
	progressService.SetCatalog(catalogService)
	progressService.SetPublisher(bus)

	userService, err := users.NewService(settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to initialise users: %v", err)
	}

	watchlistService, err := watchlist.NewService(settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to initialise watchlist: %v", err)
	}

	notificationService, err := notifications.NewService(settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to initialise notifications: %v", err)
	}
	notificationService.SetPublisher(bus)

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewUsersHandler(userService),
		handlers.NewProgressHandler(progressService, userService),
		handlers.NewWatchlistHandler(watchlistService, userService),
		handlers.NewCatalogHandler(catalogService),
		handlers.NewNotificationsHandler(notificationService, userService),
		handlers.NewEventsHandler(bus),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE connections stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
