package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"openflix/internal/eventbus"
)

type eventSource interface {
	Subscribe() (<-chan eventbus.Event, func())
}

// EventsHandler bridges the in-process event bus to SSE clients.
type EventsHandler struct {
	Bus eventSource
}

func NewEventsHandler(bus eventSource) *EventsHandler {
	return &EventsHandler{Bus: bus}
}

// Stream pushes bus events to the client as server-sent events. An
// optional user query parameter filters to one profile's events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	userFilter := strings.TrimSpace(r.URL.Query().Get("user"))

	events, cancel := h.Bus.Subscribe()
	defer cancel()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case evt, open := <-events:
			if !open {
				return
			}
			if userFilter != "" && evt.UserID != "" && evt.UserID != userFilter {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, data)
			flusher.Flush()
		}
	}
}
