package users

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

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"openflix/models"
)

var (
	ErrStorageDirRequired = errors.New("storage directory not provided")
	ErrNameRequired       = errors.New("name is required")
	ErrUserNotFound       = errors.New("user not found")
	ErrPinRequired        = errors.New("PIN is required")
	ErrPinInvalid         = errors.New("invalid PIN")
	ErrPinTooShort        = errors.New("PIN must be at least 4 characters")
	ErrAvatarType         = errors.New("unsupported avatar image type")
	ErrLastUser           = errors.New("cannot delete the last user")
)

// avatarTypes maps accepted sniffed MIME types to the stored extension.
var avatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Service manages persistence of viewing profiles.
type Service struct {
	mu        sync.RWMutex
	path      string
	avatarDir string
	users     map[string]models.User
}

// NewService creates a users service storing data inside the provided directory.
func NewService(storageDir string) (*Service, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}

	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create users dir: %w", err)
	}

	svc := &Service{
		path:      filepath.Join(storageDir, "users.json"),
		avatarDir: filepath.Join(storageDir, "avatars"),
		users:     make(map[string]models.User),
	}

	if err := svc.load(); err != nil {
		return nil, err
	}

	if err := svc.ensureDefaultUser(); err != nil {
		return nil, err
	}

	return svc, nil
}

// List returns all users sorted by creation time, then name.
func (s *Service) List() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sortUsers(users)
	return users
}

// Exists reports whether a user with the provided ID is registered.
func (s *Service) Exists(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Get returns the user with the given ID if present.
func (s *Service) Get(id string) (models.User, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.User{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	return user, ok
}

// Create registers a new user with the provided name.
func (s *Service) Create(name string) (models.User, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return models.User{}, ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createLocked(trimmed)
}

// mutate applies fn to the stored user and persists the result.
func (s *Service) mutate(id string, fn func(*models.User) error) (models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.User{}, ErrUserNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}

	if err := fn(&user); err != nil {
		return models.User{}, err
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user

	if err := s.saveLocked(); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Rename updates the user's name.
func (s *Service) Rename(id, name string) (models.User, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return models.User{}, ErrNameRequired
	}
	return s.mutate(id, func(u *models.User) error {
		u.Name = trimmed
		return nil
	})
}

// SetColor updates the user's color.
func (s *Service) SetColor(id, color string) (models.User, error) {
	return s.mutate(id, func(u *models.User) error {
		u.Color = strings.TrimSpace(color)
		return nil
	})
}

// SetKidsProfile sets whether this is a kids profile.
func (s *Service) SetKidsProfile(id string, isKids bool) (models.User, error) {
	return s.mutate(id, func(u *models.User) error {
		u.IsKidsProfile = isKids
		return nil
	})
}

// SetPin sets or updates the user's PIN.
func (s *Service) SetPin(id, pin string) (models.User, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return models.User{}, ErrPinRequired
	}
	if len(pin) < 4 {
		return models.User{}, ErrPinTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash PIN: %w", err)
	}

	return s.mutate(id, func(u *models.User) error {
		u.PinHash = string(hash)
		return nil
	})
}

// ClearPin removes the user's PIN.
func (s *Service) ClearPin(id string) (models.User, error) {
	return s.mutate(id, func(u *models.User) error {
		u.PinHash = ""
		return nil
	})
}

// VerifyPin checks the provided PIN against the stored hash. A user
// without a PIN accepts any input.
func (s *Service) VerifyPin(id, pin string) error {
	user, ok := s.Get(id)
	if !ok {
		return ErrUserNotFound
	}
	if user.PinHash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)); err != nil {
		return ErrPinInvalid
	}
	return nil
}

// SetAvatar stores the uploaded image and records its path on the
// profile. The content type is sniffed from the bytes, not trusted
// from the request.
func (s *Service) SetAvatar(id string, data []byte) (models.User, error) {
	kind := mimetype.Detect(data)
	ext, ok := avatarTypes[kind.String()]
	if !ok {
		return models.User{}, fmt.Errorf("%w: %s", ErrAvatarType, kind.String())
	}

	if err := os.MkdirAll(s.avatarDir, 0o755); err != nil {
		return models.User{}, fmt.Errorf("create avatars dir: %w", err)
	}

	return s.mutate(id, func(u *models.User) error {
		path := filepath.Join(s.avatarDir, u.ID+ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write avatar: %w", err)
		}
		if u.AvatarPath != "" && u.AvatarPath != path {
			os.Remove(u.AvatarPath)
		}
		u.AvatarPath = path
		return nil
	})
}

// ClearAvatar removes the profile picture.
func (s *Service) ClearAvatar(id string) (models.User, error) {
	return s.mutate(id, func(u *models.User) error {
		if u.AvatarPath != "" {
			os.Remove(u.AvatarPath)
			u.AvatarPath = ""
		}
		return nil
	})
}

// Delete removes a user by ID. The last remaining user cannot be deleted.
func (s *Service) Delete(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrUserNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if len(s.users) <= 1 {
		return ErrLastUser
	}

	delete(s.users, id)
	if user.AvatarPath != "" {
		os.Remove(user.AvatarPath)
	}

	return s.saveLocked()
}

func (s *Service) ensureDefaultUser() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.users) > 0 {
		return nil
	}

	_, err := s.createLocked(models.DefaultUserName)
	return err
}

func (s *Service) createLocked(name string) (models.User, error) {
	id := uuid.NewString()

	if len(s.users) == 0 {
		id = models.DefaultUserID
	} else if _, exists := s.users[id]; exists {
		return models.User{}, fmt.Errorf("generated duplicate user id")
	}

	now := time.Now().UTC()
	user := models.User{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.users[user.ID] = user

	if err := s.saveLocked(); err != nil {
		return models.User{}, err
	}

	return user, nil
}

// persistedUser is the on-disk shape. The API model hides the PIN hash
// from JSON, so persistence needs its own struct.
type persistedUser struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Color         string    `json:"color,omitempty"`
	AvatarPath    string    `json:"avatarPath,omitempty"`
	PinHash       string    `json:"pinHash,omitempty"`
	IsKidsProfile bool      `json:"isKidsProfile"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (s *Service) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open users file: %w", err)
	}
	defer file.Close()

	var stored []persistedUser
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return fmt.Errorf("decode users: %w", err)
	}

	s.users = make(map[string]models.User, len(stored))
	for _, p := range stored {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		s.users[p.ID] = models.User(p)
	}

	return nil
}

func (s *Service) saveLocked() error {
	users := make([]persistedUser, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, persistedUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Name < users[j].Name
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create users temp file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(users); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode users: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync users: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close users temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}

	return nil
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Name < users[j].Name
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
}
