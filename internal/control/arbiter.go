package control

import (
	"errors"
	"fmt"

	"github.com/ayusman/pinchctl/internal/detector"
)

// ErrMalformedObservation is returned when a hand lacks the pinch landmarks.
var ErrMalformedObservation = errors.New("malformed observation")

// minKeypoints is the smallest hand that still carries the index fingertip.
const minKeypoints = detector.IndexTip + 1

// Side is the half of the frame a hand's wrist falls in.
type Side string

const (
	// SideLeft is the user's left hand in a mirrored camera image.
	SideLeft Side = "left"
	// SideRight is the user's right hand in a mirrored camera image.
	SideRight Side = "right"
)

// Channel is a controllable output.
type Channel string

const (
	// ChannelVolume drives the system output volume.
	ChannelVolume Channel = "volume"
	// ChannelBrightness drives the display brightness.
	ChannelBrightness Channel = "brightness"
)

// Channels lists every channel in processing order.
var Channels = []Channel{ChannelVolume, ChannelBrightness}

// ChannelFor returns the channel fed by a side.
func ChannelFor(s Side) Channel {
	if s == SideRight {
		return ChannelVolume
	}
	return ChannelBrightness
}

// MalformedObservationError describes a hand that was skipped.
type MalformedObservationError struct {
	Side      Side // empty when even the wrist was missing
	Keypoints int
}

func (e *MalformedObservationError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("malformed observation: hand has %d keypoints, need %d", e.Keypoints, minKeypoints)
	}
	return fmt.Sprintf("malformed observation: %s hand has %d keypoints, need %d", e.Side, e.Keypoints, minKeypoints)
}

// Unwrap allows errors.Is(err, ErrMalformedObservation).
func (e *MalformedObservationError) Unwrap() error {
	return ErrMalformedObservation
}

// Route is the pinch pair feeding one channel this frame.
type Route struct {
	Side     Side
	Channel  Channel
	Thumb    detector.Keypoint
	Index    detector.Keypoint
	Distance float64
}

// Routes holds at most one Route per channel.
type Routes map[Channel]Route

// Arbiter assigns hands to channels by wrist position.
type Arbiter struct {
	midpoint float64
	enabled  map[Channel]bool
}

// NewArbiter creates an Arbiter splitting frames of the given width.
// Every channel starts enabled.
func NewArbiter(frameWidth int) *Arbiter {
	return &Arbiter{
		midpoint: float64(frameWidth) / 2,
		enabled: map[Channel]bool{
			ChannelVolume:     true,
			ChannelBrightness: true,
		},
	}
}

// Disable stops routing to ch for the lifetime of the arbiter.
func (a *Arbiter) Disable(ch Channel) {
	a.enabled[ch] = false
}

// Enabled reports whether ch can receive routes.
func (a *Arbiter) Enabled(ch Channel) bool {
	return a.enabled[ch]
}

// SideOf classifies a wrist x position. The camera image is mirrored, so a
// wrist right of centre belongs to the user's left hand.
func (a *Arbiter) SideOf(wristX int) Side {
	if float64(wristX) > a.midpoint {
		return SideLeft
	}
	return SideRight
}

// Arbitrate routes this frame's hands. The first hand seen on a side wins.
// Hands without thumb and index tips are skipped and reported as
// *MalformedObservationError; they never block the other side.
func (a *Arbiter) Arbitrate(hands []detector.Hand) (Routes, []error) {
	routes := make(Routes, len(Channels))
	var errs []error
	seen := make(map[Side]bool, 2)

	for i := range hands {
		hand := &hands[i]

		if !hand.Has(detector.Wrist) {
			errs = append(errs, &MalformedObservationError{Keypoints: len(hand.Keypoints)})
			continue
		}

		side := a.SideOf(hand.At(detector.Wrist).X)
		if seen[side] {
			continue
		}
		seen[side] = true

		if len(hand.Keypoints) < minKeypoints {
			errs = append(errs, &MalformedObservationError{Side: side, Keypoints: len(hand.Keypoints)})
			continue
		}

		ch := ChannelFor(side)
		if !a.enabled[ch] {
			continue
		}

		thumb, index := hand.At(detector.ThumbTip), hand.At(detector.IndexTip)
		routes[ch] = Route{
			Side:     side,
			Channel:  ch,
			Thumb:    thumb,
			Index:    index,
			Distance: detector.Distance(thumb, index),
		}
	}

	return routes, errs
}
