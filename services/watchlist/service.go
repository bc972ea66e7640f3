// Package watchlist stores the per-user saved lists ("watchlist" and
// "favorites") behind a JSON file.
package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"openflix/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrUserIDRequired     = errors.New("user id is required")
	ErrIDRequired         = errors.New("id is required")
	ErrMediaTypeRequired  = errors.New("media type is required")
	ErrIdentifierRequired = errors.New("id and media type are required")
	ErrUnknownList        = errors.New("unknown list name")
)

// Service manages persistence and retrieval of user list items.
type Service struct {
	mu    sync.RWMutex
	path  string
	items map[string]map[string]models.WatchlistItem
}

// NewService creates a watchlist service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create watchlist dir: %w", err)
	}

	svc := &Service{
		path:  filepath.Join(storageDir, "watchlist.json"),
		items: make(map[string]map[string]models.WatchlistItem),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

func normalizeList(list string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(list)) {
	case models.ListWatchlist, "":
		return models.ListWatchlist, nil
	case models.ListFavorites:
		return models.ListFavorites, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownList, list)
	}
}

// List returns the named list's items, most recent additions first.
func (s *Service) List(userID, list string) ([]models.WatchlistItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	list, err := normalizeList(list)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.WatchlistItem, 0)
	for _, item := range s.items[userID] {
		if item.List == list {
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].Key() < items[j].Key()
		}
		return items[i].AddedAt.After(items[j].AddedAt)
	})

	return items, nil
}

// Contains reports whether the named list holds the given item.
func (s *Service) Contains(userID, list, mediaType, id string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrUserIDRequired
	}
	list, err := normalizeList(list)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	key := list + ":" + strings.ToLower(strings.TrimSpace(mediaType)) + ":" + strings.TrimSpace(id)
	_, ok := s.items[userID][key]
	return ok, nil
}

// AddOrUpdate inserts a new item or updates metadata for an existing one.
func (s *Service) AddOrUpdate(userID string, input models.WatchlistUpsert) (models.WatchlistItem, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.WatchlistItem{}, ErrUserIDRequired
	}
	if strings.TrimSpace(input.ID) == "" {
		return models.WatchlistItem{}, ErrIDRequired
	}
	if strings.TrimSpace(input.MediaType) == "" {
		return models.WatchlistItem{}, ErrMediaTypeRequired
	}
	list, err := normalizeList(input.List)
	if err != nil {
		return models.WatchlistItem{}, err
	}

	mediaType := strings.ToLower(strings.TrimSpace(input.MediaType))

	s.mu.Lock()
	defer s.mu.Unlock()

	perUser := s.ensureUserLocked(userID)

	key := list + ":" + mediaType + ":" + input.ID
	item, exists := perUser[key]

	if !exists {
		item = models.WatchlistItem{
			ID:        input.ID,
			List:      list,
			MediaType: mediaType,
			AddedAt:   time.Now().UTC(),
		}
	}

	if strings.TrimSpace(input.Name) != "" {
		item.Name = input.Name
	}
	if input.Overview != "" {
		item.Overview = input.Overview
	}
	if input.Year != 0 {
		item.Year = input.Year
	}
	if strings.TrimSpace(input.PosterPath) != "" {
		item.PosterPath = input.PosterPath
	}
	if strings.TrimSpace(input.BackdropPath) != "" {
		item.BackdropPath = input.BackdropPath
	}

	perUser[key] = item

	if err := s.saveLocked(); err != nil {
		return models.WatchlistItem{}, err
	}

	return item, nil
}

// Remove deletes an item from the named list. Removing an absent item
// reports false without an error.
func (s *Service) Remove(userID, list, mediaType, id string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrUserIDRequired
	}
	list, err := normalizeList(list)
	if err != nil {
		return false, err
	}

	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" || strings.TrimSpace(id) == "" {
		return false, ErrIdentifierRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	perUser := s.ensureUserLocked(userID)

	key := list + ":" + mediaType + ":" + id
	if _, exists := perUser[key]; !exists {
		return false, nil
	}

	delete(perUser, key)

	if err := s.saveLocked(); err != nil {
		return false, err
	}

	return true, nil
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.items = make(map[string]map[string]models.WatchlistItem)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open watchlist: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read watchlist: %w", err)
	}
	if len(data) == 0 {
		s.items = make(map[string]map[string]models.WatchlistItem)
		return nil
	}

	var multi map[string][]models.WatchlistItem
	if err := json.Unmarshal(data, &multi); err != nil {
		return fmt.Errorf("decode watchlist: %w", err)
	}

	s.items = make(map[string]map[string]models.WatchlistItem, len(multi))
	for userID, items := range multi {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		perUser := make(map[string]models.WatchlistItem, len(items))
		for _, item := range items {
			normalised := normaliseItem(item)
			perUser[normalised.Key()] = normalised
		}
		s.items[userID] = perUser
	}

	return nil
}

func (s *Service) saveLocked() error {
	byUser := make(map[string][]models.WatchlistItem, len(s.items))
	for userID, collection := range s.items {
		items := make([]models.WatchlistItem, 0, len(collection))
		for _, item := range collection {
			items = append(items, item)
		}

		sort.Slice(items, func(i, j int) bool {
			if items[i].AddedAt.Equal(items[j].AddedAt) {
				return items[i].Key() < items[j].Key()
			}
			return items[i].AddedAt.Before(items[j].AddedAt)
		})

		byUser[userID] = items
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create watchlist temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(byUser); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode watchlist: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync watchlist: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close watchlist temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace watchlist file: %w", err)
	}

	return nil
}

func (s *Service) ensureUserLocked(userID string) map[string]models.WatchlistItem {
	perUser, ok := s.items[userID]
	if !ok {
		perUser = make(map[string]models.WatchlistItem)
		s.items[userID] = perUser
	}
	return perUser
}

func normaliseItem(item models.WatchlistItem) models.WatchlistItem {
	item.MediaType = strings.ToLower(strings.TrimSpace(item.MediaType))
	if item.List == "" {
		item.List = models.ListWatchlist
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	return item
}
