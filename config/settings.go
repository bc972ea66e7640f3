package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Catalog  CatalogSettings  `json:"catalog"`
	Cache    CacheSettings    `json:"cache"`
	Storage  StorageSettings  `json:"storage"`
	Database DatabaseSettings `json:"database"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// CatalogSettings configures the TMDB-backed catalog.
type CatalogSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey"`
	Language   string `json:"language"`
}

type CacheSettings struct {
	Directory string `json:"directory"`
	TTLHours  int    `json:"ttlHours"`
}

// StorageSettings names the directory holding profile, list and
// notification JSON files.
type StorageSettings struct {
	Directory string `json:"directory"`
}

// DatabaseSettings defines the watch progress database location.
type DatabaseSettings struct {
	Path string `json:"path"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server:   ServerSettings{Host: "0.0.0.0", Port: 7777},
		Catalog:  CatalogSettings{TMDBAPIKey: "", Language: "en"},
		Cache:    CacheSettings{Directory: "cache", TTLHours: 24},
		Storage:  StorageSettings{Directory: "data"},
		Database: DatabaseSettings{Path: "data/progress.db"},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			MaxSize:    50,   // 50 MB per file
			MaxBackups: 3,    // keep 3 old files
			MaxAge:     7,    // 7 days
			Compress:   true, // compress old files
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		// create with defaults
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	// Decode into a raw map first so older config layouts survive a reload.
	var raw map[string]interface{}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return Settings{}, err
	}

	// Older configs kept the TMDB key under a "metadata" section.
	if metaRaw, ok := raw["metadata"].(map[string]interface{}); ok {
		if _, has := raw["catalog"]; !has {
			raw["catalog"] = map[string]interface{}{
				"tmdbApiKey": metaRaw["tmdbApiKey"],
				"language":   metaRaw["language"],
			}
		}
		delete(raw, "metadata")
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := json.Unmarshal(buf, &s); err != nil {
		return Settings{}, err
	}

	defaults := DefaultSettings()

	// Backfill blanks so a partial config still boots.
	if s.Server.Host == "" {
		s.Server.Host = defaults.Server.Host
	}
	if s.Server.Port == 0 {
		s.Server.Port = defaults.Server.Port
	}
	if s.Catalog.Language == "" {
		s.Catalog.Language = defaults.Catalog.Language
	}
	if s.Cache.Directory == "" {
		s.Cache.Directory = defaults.Cache.Directory
	}
	if s.Cache.TTLHours == 0 {
		s.Cache.TTLHours = defaults.Cache.TTLHours
	}
	if s.Storage.Directory == "" {
		s.Storage.Directory = defaults.Storage.Directory
	}
	if s.Database.Path == "" {
		s.Database.Path = defaults.Database.Path
	}
	if s.Log.File == "" {
		s.Log.File = defaults.Log.File
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = defaults.Log.MaxSize
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = defaults.Log.MaxBackups
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = defaults.Log.MaxAge
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
