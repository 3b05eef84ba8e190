package app

import (
	"time"

	"github.com/ayusman/pinchctl/internal/control"
)

// ChannelLevel is the published state of one channel.
type ChannelLevel struct {
	Channel control.Channel `json:"channel"`
	Enabled bool            `json:"enabled"`
	// Active reports whether a hand drove the channel in the latest frame.
	Active   bool    `json:"active"`
	Value    float64 `json:"value"`
	Percent  float64 `json:"percent"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Failures int     `json:"failures"`
	Error    string  `json:"error,omitempty"`
}

// Levels is a snapshot of both channels.
type Levels struct {
	Volume     ChannelLevel `json:"volume"`
	Brightness ChannelLevel `json:"brightness"`
	Frames     uint64       `json:"frames"`
	FPS        float64      `json:"fps"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Levels returns the latest snapshot.
func (a *App) Levels() Levels {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.levels
}

// Subscribe returns a channel receiving a snapshot after every frame step and
// reset. A slow subscriber only ever sees the newest snapshot. The channel is
// closed when Run returns or cancel is called.
func (a *App) Subscribe() (<-chan Levels, func()) {
	ch := make(chan Levels, 1)

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	ch <- a.levels
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if c, ok := a.subs[id]; ok {
			close(c)
			delete(a.subs, id)
		}
	}
	return ch, cancel
}

// publish builds a new snapshot and offers it to subscribers. A nil result
// marks an update outside a frame step.
func (a *App) publish(result *FrameResult) {
	now := time.Now()
	if result != nil {
		a.tick(now)
	}

	snap := Levels{
		Volume:     a.channelLevel(control.ChannelVolume),
		Brightness: a.channelLevel(control.ChannelBrightness),
		Frames:     a.frames,
		FPS:        a.fps,
		UpdatedAt:  now,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.levels = snap
	for _, ch := range a.subs {
		// Replace a stale snapshot rather than block the loop.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (a *App) channelLevel(name control.Channel) ChannelLevel {
	ch := a.channels[name]
	lvl := ChannelLevel{
		Channel:  name,
		Enabled:  ch.enabled,
		Active:   ch.active,
		Value:    ch.cell.Value(),
		Min:      ch.window.OutMin,
		Max:      ch.window.OutMax,
		Failures: ch.failures,
	}
	if ch.enabled {
		lvl.Percent = control.Percent(lvl.Value, lvl.Min, lvl.Max)
	}
	if ch.lastErr != nil {
		lvl.Error = ch.lastErr.Error()
	}
	return lvl
}
