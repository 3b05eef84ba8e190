package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a journal event.
type EventKind string

const (
	EventActuationFailure     EventKind = "actuation_failure"
	EventMalformedObservation EventKind = "malformed_observation"
	EventBackendUnavailable   EventKind = "backend_unavailable"
	EventReset                EventKind = "reset"
	EventCaptureFailure       EventKind = "capture_failure"
	EventDetectFailure        EventKind = "detect_failure"
)

// Event is a single journal entry.
type Event struct {
	ID        string
	SessionID string
	Kind      EventKind
	Channel   string
	Level     float64
	Message   string
	CreatedAt time.Time
}

// EventRepository provides operations for events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts an event. ID and CreatedAt are filled when empty.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (id, session_id, kind, channel, level, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Kind), e.Channel, e.Level, e.Message, e.CreatedAt,
	)
	return err
}

// ListBySession retrieves a session's events in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	return r.query(
		`SELECT id, session_id, kind, channel, level, message, created_at
		 FROM events WHERE session_id = ? ORDER BY created_at ASC`,
		sessionID,
	)
}

// Recent retrieves the newest events across all sessions, newest first.
func (r *EventRepository) Recent(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(
		`SELECT id, session_id, kind, channel, level, message, created_at
		 FROM events ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
}

// CountByKind returns per-kind event totals for a session.
func (r *EventRepository) CountByKind(sessionID string) (map[EventKind]int, error) {
	rows, err := r.db.Query(
		`SELECT kind, COUNT(*) FROM events WHERE session_id = ? GROUP BY kind`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[EventKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[EventKind(kind)] = n
	}

	return counts, rows.Err()
}

func (r *EventRepository) query(q string, args ...any) ([]*Event, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var kind string
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Channel, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = EventKind(kind)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
