package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/pinchctl/internal/store"
)

type eventResponse struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Kind      string  `json:"kind"`
	Channel   string  `json:"channel,omitempty"`
	Level     float64 `json:"level"`
	Message   string  `json:"message,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

type sessionResponse struct {
	ID                string         `json:"id"`
	FrameWidth        int            `json:"frame_width"`
	FrameHeight       int            `json:"frame_height"`
	VolumeMin         float64        `json:"volume_min"`
	VolumeMax         float64        `json:"volume_max"`
	VolumeEnabled     bool           `json:"volume_enabled"`
	BrightnessEnabled bool           `json:"brightness_enabled"`
	StartedAt         string         `json:"started_at"`
	EndedAt           string         `json:"ended_at,omitempty"`
	ExitReason        string         `json:"exit_reason,omitempty"`
	EventCounts       map[string]int `json:"event_counts,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toEventResponse(e *store.Event) eventResponse {
	return eventResponse{
		ID:        e.ID,
		SessionID: e.SessionID,
		Kind:      string(e.Kind),
		Channel:   e.Channel,
		Level:     e.Level,
		Message:   e.Message,
		CreatedAt: formatTime(e.CreatedAt),
	}
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:                s.ID,
		FrameWidth:        s.FrameWidth,
		FrameHeight:       s.FrameHeight,
		VolumeMin:         s.VolumeMin,
		VolumeMax:         s.VolumeMax,
		VolumeEnabled:     s.VolumeEnabled,
		BrightnessEnabled: s.BrightnessEnabled,
		StartedAt:         formatTime(s.StartedAt),
		ExitReason:        s.ExitReason,
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

// EventsHandler serves GET /api/events.
type EventsHandler struct {
	store *store.Store
}

// NewEventsHandler creates a new EventsHandler with the given store.
func NewEventsHandler(s *store.Store) *EventsHandler {
	return &EventsHandler{store: s}
}

// ServeHTTP lists recent events, or one session's events with ?session=.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := limitParam(r, 50, 500)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	var (
		events []*store.Event
		err    error
	)
	if session := r.URL.Query().Get("session"); session != "" {
		events, err = h.store.Events().ListBySession(session)
	} else {
		events, err = h.store.Events().Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		response.Events = append(response.Events, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, response)
}

// SessionsHandler serves GET /api/sessions and GET /api/sessions/{id}.
type SessionsHandler struct {
	store *store.Store
}

// NewSessionsHandler creates a new SessionsHandler with the given store.
func NewSessionsHandler(s *store.Store) *SessionsHandler {
	return &SessionsHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

func (h *SessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r, 20, 200)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// get returns one session with its per-kind event totals.
func (h *SessionsHandler) get(w http.ResponseWriter, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	counts, err := h.store.Events().CountByKind(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	resp := toSessionResponse(sess)
	resp.EventCounts = make(map[string]int, len(counts))
	for k, n := range counts {
		resp.EventCounts[string(k)] = n
	}
	writeJSON(w, http.StatusOK, resp)
}
