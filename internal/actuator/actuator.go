// Package actuator defines the volume and brightness backends driven by the
// control loop and the typed result of a single actuation.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrActuationFailure wraps any failed or timed out SetLevel call.
	ErrActuationFailure = errors.New("actuation failure")
	// ErrBackendUnavailable is returned when a backend cannot be initialized.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// DefaultTimeout bounds a single SetLevel call.
const DefaultTimeout = 100 * time.Millisecond

// Setter applies an absolute level.
type Setter interface {
	SetLevel(ctx context.Context, level float64) error
}

// Volume controls system output volume in backend-defined units.
type Volume interface {
	Setter
	// Range reports the backend's accepted [min, max] level.
	Range(ctx context.Context) (min, max float64, err error)
}

// Brightness controls display brightness in percent (0-100).
type Brightness interface {
	Setter
}

// Result is the outcome of one SetLevel call.
type Result struct {
	Level   float64
	Err     error
	Elapsed time.Duration
}

// OK reports whether the level was applied.
func (r Result) OK() bool {
	return r.Err == nil
}

// Apply calls s.SetLevel bounded by timeout. A backend that ignores its
// context is abandoned once the deadline passes; a panicking backend is
// reported as a failure. Any error in the Result wraps ErrActuationFailure.
func Apply(ctx context.Context, s Setter, level float64, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("backend panic: %v", r)
			}
		}()
		done <- s.SetLevel(ctx, level)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("no response within %v: %w", timeout, ctx.Err())
	}

	res := Result{Level: level, Elapsed: time.Since(start)}
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrActuationFailure, err)
	}
	return res
}

// Unavailable marks err as a backend initialization failure.
func Unavailable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, name, err)
}
