package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// journalQueueSize bounds events waiting to be written.
const journalQueueSize = 256

// Journal records events for one session without blocking the caller.
// Events are written by a single background goroutine; when the queue is
// full new events are dropped and counted.
type Journal struct {
	store   *Store
	session *Session
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan Event
	done    chan struct{}
	dropped atomic.Int64
}

// OpenJournal creates the session row and starts the writer.
func OpenJournal(s *Store, sess *Session, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := s.Sessions().Create(sess); err != nil {
		return nil, err
	}

	j := &Journal{
		store:   s,
		session: sess,
		logger:  logger.With("component", "journal", "session", sess.ID),
		queue:   make(chan Event, journalQueueSize),
		done:    make(chan struct{}),
	}
	go j.writeLoop()
	return j, nil
}

// SessionID returns the ID of the session being journaled.
func (j *Journal) SessionID() string {
	return j.session.ID
}

// Record queues an event. It never blocks.
func (j *Journal) Record(kind EventKind, channel string, level float64, cause error) {
	e := Event{
		SessionID: j.session.ID,
		Kind:      kind,
		Channel:   channel,
		Level:     level,
		CreatedAt: time.Now(),
	}
	if cause != nil {
		e.Message = cause.Error()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}

	select {
	case j.queue <- e:
	default:
		j.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Close flushes queued events and marks the session ended.
func (j *Journal) Close(reason string) error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done

	if n := j.dropped.Load(); n > 0 {
		j.logger.Warn("journal dropped events", "count", n)
	}
	return j.store.Sessions().End(j.session.ID, reason)
}

func (j *Journal) writeLoop() {
	defer close(j.done)

	repo := j.store.Events()
	for e := range j.queue {
		if err := repo.Create(&e); err != nil {
			j.logger.Warn("failed to write journal event", "kind", e.Kind, "error", err)
		}
	}
}
