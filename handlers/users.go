package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"openflix/models"
	"openflix/services/users"

	"github.com/gorilla/mux"
)

const maxAvatarBytes = 5 << 20

type usersService interface {
	List() []models.User
	Create(name string) (models.User, error)
	Rename(id, name string) (models.User, error)
	SetColor(id, color string) (models.User, error)
	Delete(id string) error
	Exists(id string) bool
	SetPin(id, pin string) (models.User, error)
	ClearPin(id string) (models.User, error)
	VerifyPin(id, pin string) error
	SetKidsProfile(id string, isKids bool) (models.User, error)
	SetAvatar(id string, data []byte) (models.User, error)
	ClearAvatar(id string) (models.User, error)
}

var _ usersService = (*users.Service)(nil)

type UsersHandler struct {
	Service usersService
}

func NewUsersHandler(service usersService) *UsersHandler {
	return &UsersHandler{Service: service}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Service.List())
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.Create(body.Name)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, users.ErrNameRequired) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *UsersHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.Rename(id, body.Name)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, users.ErrNameRequired):
			status = http.StatusBadRequest
		case errors.Is(err, users.ErrUserNotFound):
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(id); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			status = http.StatusNotFound
		case errors.Is(err, users.ErrLastUser):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Color string `json:"color"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.SetColor(id, body.Color)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, users.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// SetPin sets or updates a user's PIN.
func (h *UsersHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Pin string `json:"pin"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.SetPin(id, body.Pin)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			status = http.StatusNotFound
		case errors.Is(err, users.ErrPinRequired), errors.Is(err, users.ErrPinTooShort):
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// ClearPin removes a user's PIN.
func (h *UsersHandler) ClearPin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	user, err := h.Service.ClearPin(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, users.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// VerifyPin verifies a user's PIN.
func (h *UsersHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Pin string `json:"pin"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.VerifyPin(id, body.Pin); err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, users.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"valid": true})
}

// SetKidsProfile sets or clears the kids profile flag for a user.
func (h *UsersHandler) SetKidsProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	var body struct {
		IsKidsProfile bool `json:"isKidsProfile"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.Service.SetKidsProfile(id, body.IsKidsProfile)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, users.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// SetAvatar stores an uploaded profile picture. The body carries the
// raw image bytes; the type is sniffed server side.
func (h *UsersHandler) SetAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAvatarBytes))
	if err != nil {
		http.Error(w, "avatar too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		http.Error(w, "avatar image is required", http.StatusBadRequest)
		return
	}

	user, err := h.Service.SetAvatar(id, data)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, users.ErrUserNotFound):
			status = http.StatusNotFound
		case errors.Is(err, users.ErrAvatarType):
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// ClearAvatar removes the profile picture.
func (h *UsersHandler) ClearAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathUser(w, r)
	if !ok {
		return
	}

	user, err := h.Service.ClearAvatar(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, users.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *UsersHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *UsersHandler) pathUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["userID"])
	if id == "" {
		http.Error(w, "user id is required", http.StatusBadRequest)
		return "", false
	}
	return id, true
}
