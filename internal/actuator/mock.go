package actuator

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Volume and Brightness used by demo mode and tests.
type Mock struct {
	mu       sync.Mutex
	min, max float64
	rangeErr error
	err      error
	delay    time.Duration
	levels   []float64
	calls    int
}

// NewMock creates a Mock accepting levels in [min, max].
func NewMock(min, max float64) *Mock {
	return &Mock{min: min, max: max}
}

// SetError makes subsequent SetLevel calls fail with err (nil clears it).
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetRangeError makes Range fail with err.
func (m *Mock) SetRangeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeErr = err
}

// SetDelay makes SetLevel block for d or until its context ends.
func (m *Mock) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Range implements Volume.
func (m *Mock) Range(ctx context.Context) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rangeErr != nil {
		return 0, 0, m.rangeErr
	}
	return m.min, m.max, nil
}

// SetLevel records level unless an error or delay is configured.
func (m *Mock) SetLevel(ctx context.Context, level float64) error {
	m.mu.Lock()
	m.calls++
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.levels = append(m.levels, level)
	m.mu.Unlock()
	return nil
}

// Calls returns the number of SetLevel attempts.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Levels returns every level applied successfully, oldest first.
func (m *Mock) Levels() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.levels...)
}

// Last returns the most recent applied level.
func (m *Mock) Last() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.levels) == 0 {
		return 0, false
	}
	return m.levels[len(m.levels)-1], true
}
