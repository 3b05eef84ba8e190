package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// DemoDetector synthesizes two hands whose pinch opens and closes over time.
// It stands in for MediaPipe when running without a camera.
type DemoDetector struct {
	mu     sync.Mutex
	width  int
	height int
	frame  int
	period int
}

// NewDemoDetector creates a DemoDetector for frames of the given size. The
// right hand completes one open/close cycle every period frames; the left
// hand runs at two thirds of that speed.
func NewDemoDetector(width, height, period int) *DemoDetector {
	if period <= 0 {
		period = 90
	}
	return &DemoDetector{width: width, height: height, period: period}
}

// Detect ignores the frame and returns the next synthetic pair of hands.
func (d *DemoDetector) Detect(*gocv.Mat) ([]Hand, error) {
	d.mu.Lock()
	n := d.frame
	d.frame++
	d.mu.Unlock()

	phase := 2 * math.Pi * float64(n) / float64(d.period)
	wristY := d.height * 3 / 4

	right := PinchHand(d.width/4, wristY, gap(phase))
	left := PinchHand(d.width*3/4, wristY, gap(phase*2/3))
	left.Handedness = "Left"

	return []Hand{right, left}, nil
}

// gap sweeps a little past the default 20..120 px window on both ends.
func gap(phase float64) int {
	return int(70 - 60*math.Cos(phase))
}

// Close is a no-op.
func (d *DemoDetector) Close() error {
	return nil
}
