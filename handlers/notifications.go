package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"openflix/models"
	"openflix/services/notifications"

	"github.com/gorilla/mux"
)

type notificationsService interface {
	Push(userID, kind, title, body, link string) (models.Notification, error)
	List(userID string) ([]models.Notification, error)
	UnreadCount(userID string) int
	MarkRead(userID, id string) error
	MarkAllRead(userID string) error
	Delete(userID, id string) (bool, error)
}

var _ notificationsService = (*notifications.Service)(nil)

type NotificationsHandler struct {
	Service notificationsService
	Users   userService
}

func NewNotificationsHandler(service notificationsService, users userService) *NotificationsHandler {
	return &NotificationsHandler{Service: service, Users: users}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.Service.List(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := struct {
		Unread        int                   `json:"unread"`
		Notifications []models.Notification `json:"notifications"`
	}{Unread: h.Service.UnreadCount(userID), Notifications: items}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *NotificationsHandler) Push(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Type  string `json:"type"`
		Title string `json:"title"`
		Body  string `json:"body"`
		Link  string `json:"link"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.Service.Push(userID, body.Type, body.Title, body.Body, body.Link)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, notifications.ErrTitleRequired) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(n)
}

func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	if err := h.Service.MarkRead(userID, id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, notifications.ErrNotificationNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.Service.MarkAllRead(userID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	id := strings.TrimSpace(mux.Vars(r)["id"])
	if _, err := h.Service.Delete(userID, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *NotificationsHandler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
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
