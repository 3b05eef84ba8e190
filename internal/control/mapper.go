// Package control implements the pinch-to-level core: range mapping,
// jitter smoothing and routing of hands to output channels.
package control

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned when an input domain has zero width.
var ErrInvalidRange = errors.New("invalid range")

// Default calibration window in pixels, measured between thumb tip and index tip.
const (
	DefaultDistanceMin = 20.0
	DefaultDistanceMax = 120.0
)

// Range maps an input window onto an output window.
type Range struct {
	InMin  float64
	InMax  float64
	OutMin float64
	OutMax float64
}

// Validate reports whether the input window can be interpolated.
func (r Range) Validate() error {
	if r.InMin == r.InMax {
		return fmt.Errorf("%w: input window [%g, %g] is empty", ErrInvalidRange, r.InMin, r.InMax)
	}
	return nil
}

// Map interpolates value through the range.
func (r Range) Map(value float64) (float64, error) {
	return Map(value, r.InMin, r.InMax, r.OutMin, r.OutMax)
}

// Map linearly interpolates value from [inMin, inMax] to [outMin, outMax].
// Values outside the input window are clamped first, so the result never
// leaves the output window.
func Map(value, inMin, inMax, outMin, outMax float64) (float64, error) {
	if inMin == inMax {
		return 0, fmt.Errorf("%w: input window [%g, %g] is empty", ErrInvalidRange, inMin, inMax)
	}

	lo, hi := math.Min(inMin, inMax), math.Max(inMin, inMax)
	v := math.Max(lo, math.Min(hi, value))

	return outMin + (v-inMin)*(outMax-outMin)/(inMax-inMin), nil
}

// Percent expresses value as a 0-100 share of [outMin, outMax].
// A zero-width window reports 0.
func Percent(value, outMin, outMax float64) float64 {
	if outMin == outMax {
		return 0
	}
	p := (value - outMin) / (outMax - outMin) * 100
	return math.Max(0, math.Min(100, p))
}
