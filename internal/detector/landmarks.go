// Package detector provides hand detection interfaces and types for pinch tracking.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Keypoint is a single landmark in frame pixel coordinates.
type Keypoint struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

// Hand is one detected hand in one frame.
// Keypoints are ordered by landmark index; a partial detection may carry
// fewer than NumLandmarks entries.
type Hand struct {
	Keypoints  []Keypoint `json:"keypoints"`
	Handedness string     `json:"handedness"` // "Left" or "Right" as labelled by the model
	Score      float64    `json:"score"`
}

// Has reports whether the hand carries landmark idx.
func (h *Hand) Has(idx int) bool {
	return h != nil && idx >= 0 && idx < len(h.Keypoints)
}

// At returns landmark idx. The caller must check Has first.
func (h *Hand) At(idx int) Keypoint {
	return h.Keypoints[idx]
}

// Distance returns the Euclidean pixel distance between two keypoints.
func Distance(a, b Keypoint) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}
