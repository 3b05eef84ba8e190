package control

// DefaultSmoothing is the filter factor used when none is configured.
const DefaultSmoothing = 0.2

// Smooth applies one step of an exponential moving average.
// A factor of 1 returns current unchanged; smaller factors trade lag for
// less jitter.
func Smooth(current, previous, factor float64) float64 {
	return previous + factor*(current-previous)
}

// ValidFactor reports whether factor lies in (0, 1].
func ValidFactor(factor float64) bool {
	return factor > 0 && factor <= 1
}

// Cell holds the smoothed value of one channel between frames.
// A Cell is owned by exactly one goroutine.
type Cell struct {
	value  float64
	factor float64
}

// NewCell creates a Cell starting at baseline.
// An out-of-range factor falls back to DefaultSmoothing.
func NewCell(baseline, factor float64) *Cell {
	if !ValidFactor(factor) {
		factor = DefaultSmoothing
	}
	return &Cell{value: baseline, factor: factor}
}

// Update folds raw into the smoothed value and returns the new value.
func (c *Cell) Update(raw float64) float64 {
	c.value = Smooth(raw, c.value, c.factor)
	return c.value
}

// Set overwrites the smoothed value, used by reset.
func (c *Cell) Set(v float64) {
	c.value = v
}

// Value returns the current smoothed value.
func (c *Cell) Value() float64 {
	return c.value
}

// Factor returns the smoothing factor.
func (c *Cell) Factor() float64 {
	return c.factor
}
