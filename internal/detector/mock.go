package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	hands    []Hand
	sequence [][]Hand
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by every Detect call.
func (m *MockDetector) SetHands(hands []Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetSequence queues per-frame results. Each Detect call consumes one entry;
// once the queue is empty the hands set by SetHands are returned.
func (m *MockDetector) SetSequence(frames [][]Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = frames
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Hand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// PinchHand returns a full 21-point hand with the wrist at (wristX, wristY)
// and thumb tip and index tip spread horizontally by gap pixels.
func PinchHand(wristX, wristY, gap int) Hand {
	hand := Hand{
		Keypoints:  make([]Keypoint, NumLandmarks),
		Handedness: "Right",
		Score:      0.95,
	}

	// Fingers fan upward from the wrist; only the two tips matter for pinch.
	for i := 0; i < NumLandmarks; i++ {
		hand.Keypoints[i] = Keypoint{ID: i, X: wristX + (i%4)*6, Y: wristY - (i/4)*18}
	}

	hand.Keypoints[Wrist] = Keypoint{ID: Wrist, X: wristX, Y: wristY}
	tipY := wristY - 120
	hand.Keypoints[ThumbTip] = Keypoint{ID: ThumbTip, X: wristX, Y: tipY}
	hand.Keypoints[IndexTip] = Keypoint{ID: IndexTip, X: wristX + gap, Y: tipY}

	return hand
}

// PartialHand returns a hand truncated to its first n keypoints.
func PartialHand(wristX, wristY, n int) Hand {
	hand := PinchHand(wristX, wristY, 50)
	if n < len(hand.Keypoints) {
		hand.Keypoints = hand.Keypoints[:n]
	}
	return hand
}
