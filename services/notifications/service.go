// Package notifications keeps the per-user message feed shown in the
// UI bell menu.
package notifications

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"openflix/internal/eventbus"
	"openflix/models"
)

var (
	ErrStorageDirRequired   = errors.New("storage directory not provided")
	ErrUserIDRequired       = errors.New("user id is required")
	ErrTitleRequired        = errors.New("title is required")
	ErrNotificationNotFound = errors.New("notification not found")
)

// Publisher receives a bus event whenever a notification is pushed.
type Publisher interface {
	Publish(evt eventbus.Event)
}

// Service manages persistence of user notifications.
type Service struct {
	mu    sync.RWMutex
	path  string
	bus   Publisher
	items map[string][]models.Notification
}

// NewService creates a notifications service storing data inside the
// provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create notifications dir: %w", err)
	}

	svc := &Service{
		path:  filepath.Join(storageDir, "notifications.json"),
		items: make(map[string][]models.Notification),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	return svc, nil
}

// SetPublisher attaches an optional event publisher.
func (s *Service) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus = p
}

// Push appends a notification to the user's feed and announces it on
// the bus.
func (s *Service) Push(userID, kind, title, body, link string) (models.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.Notification{}, ErrUserIDRequired
	}
	if strings.TrimSpace(title) == "" {
		return models.Notification{}, ErrTitleRequired
	}
	if strings.TrimSpace(kind) == "" {
		kind = "info"
	}

	n := models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Title:     strings.TrimSpace(title),
		Body:      strings.TrimSpace(body),
		Link:      strings.TrimSpace(link),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.items[userID] = append(s.items[userID], n)
	err := s.saveLocked()
	bus := s.bus
	s.mu.Unlock()

	if err != nil {
		return models.Notification{}, err
	}
	if bus != nil {
		bus.Publish(eventbus.Event{Topic: eventbus.TopicNotification, UserID: userID})
	}
	return n, nil
}

// List returns the user's notifications, unread first, then newest.
func (s *Service) List(userID string) ([]models.Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.Notification, len(s.items[userID]))
	copy(items, s.items[userID])

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Read != items[j].Read {
			return !items[i].Read
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	return items, nil
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items[strings.TrimSpace(userID)] {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks a single notification as read.
func (s *Service) MarkRead(userID, id string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.items[userID] {
		if n.ID == id {
			if n.Read {
				return nil
			}
			s.items[userID][i].Read = true
			return s.saveLocked()
		}
	}
	return ErrNotificationNotFound
}

// MarkAllRead marks every notification for the user as read.
func (s *Service) MarkAllRead(userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i, n := range s.items[userID] {
		if !n.Read {
			s.items[userID][i].Read = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.saveLocked()
}

// Delete removes a notification. Deleting an absent ID reports false
// without an error.
func (s *Service) Delete(userID, id string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.items[userID]
	for i, n := range items {
		if n.ID == id {
			s.items[userID] = append(items[:i], items[i+1:]...)
			if err := s.saveLocked(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open notifications file: %w", err)
	}
	defer file.Close()

	var stored map[string][]models.Notification
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode notifications: %w", err)
	}

	s.items = make(map[string][]models.Notification, len(stored))
	for userID, items := range stored {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		s.items[userID] = items
	}
	return nil
}

func (s *Service) saveLocked() error {
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create notifications temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.items); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode notifications: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync notifications: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close notifications temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace notifications file: %w", err)
	}

	return nil
}
