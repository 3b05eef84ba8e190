package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/pinchctl/internal/actuator"
	"github.com/ayusman/pinchctl/internal/control"
	"github.com/ayusman/pinchctl/internal/detector"
	"github.com/ayusman/pinchctl/internal/store"
)

// channelState is one channel's backend, mapping and persisted smoothing
// state. Only the loop goroutine touches it.
type channelState struct {
	name         control.Channel
	setter       actuator.Setter
	window       control.Range
	cell         *control.Cell
	resetPercent float64
	enabled      bool

	active   bool
	lastRaw  float64
	last     actuator.Result
	lastErr  error
	failures int
}

func (c *channelState) setRange(lo, hi float64) {
	c.window.OutMin, c.window.OutMax = lo, hi
}

// baseline is the reset target in backend units.
func (c *channelState) baseline() float64 {
	return c.window.OutMin + (c.window.OutMax-c.window.OutMin)*c.resetPercent/100
}

// FrameResult describes what one frame step did.
type FrameResult struct {
	Routes control.Routes
	// Raw holds each routed channel's mapped value before smoothing.
	Raw       map[control.Channel]float64
	Results   map[control.Channel]actuator.Result
	Malformed []error
}

// ProcessHands runs one frame step: arbitrate hands to channels, then for
// each routed channel map the pinch distance, smooth it, persist it and
// actuate. Actuation failures are logged and never abort the step; the
// smoothed value is persisted before the backend is called. Channels with no
// hand this frame keep their state.
//
// ProcessHands must only be called after Start, from the goroutine that
// owns the loop. Before Start it does nothing.
func (a *App) ProcessHands(ctx context.Context, hands []detector.Hand) FrameResult {
	if !a.started {
		return FrameResult{}
	}

	routes, errs := a.arbiter.Arbitrate(hands)
	for _, err := range errs {
		var mErr *control.MalformedObservationError
		side := ""
		if errors.As(err, &mErr) {
			side = string(mErr.Side)
		}
		a.logger.Debug("skipping hand", "side", side, "error", err)
		a.journal.Record(store.EventMalformedObservation, side, 0, err)
	}

	result := FrameResult{
		Routes:    routes,
		Raw:       make(map[control.Channel]float64, len(routes)),
		Results:   make(map[control.Channel]actuator.Result, len(routes)),
		Malformed: errs,
	}

	for _, name := range control.Channels {
		ch := a.channels[name]
		route, ok := routes[name]
		ch.active = ok
		if !ok {
			continue
		}
		result.Results[name] = a.step(ctx, ch, route)
		result.Raw[name] = ch.lastRaw
	}

	a.publish(&result)
	return result
}

// step maps, smooths, persists and actuates a single channel.
func (a *App) step(ctx context.Context, ch *channelState, route control.Route) actuator.Result {
	raw, err := ch.window.Map(route.Distance)
	if err != nil {
		// The window was validated in New; a failure here is a programming error.
		ch.lastErr = err
		a.logger.Error("mapping failed", "channel", ch.name, "error", err)
		return actuator.Result{Err: err}
	}
	ch.lastRaw = raw

	level := ch.cell.Update(raw)

	res := actuator.Apply(ctx, ch.setter, level, a.cfg.ActuationTimeout)
	a.record(ch, res)
	return res
}

func (a *App) record(ch *channelState, res actuator.Result) {
	ch.last = res
	if res.OK() {
		ch.lastErr = nil
		return
	}
	ch.failures++
	ch.lastErr = res.Err
	a.logger.Warn("actuation failed",
		"channel", ch.name,
		"level", res.Level,
		"elapsed", res.Elapsed,
		"error", res.Err,
	)
	a.journal.Record(store.EventActuationFailure, string(ch.name), res.Level, res.Err)
}

// applyReset sets every enabled channel's cell to its baseline, then
// actuates each channel independently. Cells are set regardless of
// whether the backend call succeeds.
func (a *App) applyReset(ctx context.Context) map[control.Channel]actuator.Result {
	results := make(map[control.Channel]actuator.Result, len(control.Channels))

	for _, name := range control.Channels {
		ch := a.channels[name]
		if ch.enabled {
			ch.cell.Set(ch.baseline())
		}
	}

	for _, name := range control.Channels {
		ch := a.channels[name]
		if !ch.enabled {
			continue
		}
		res := actuator.Apply(ctx, ch.setter, ch.cell.Value(), a.cfg.ActuationTimeout)
		a.record(ch, res)
		results[name] = res
	}

	a.logger.Info("levels reset",
		"volume", a.channels[control.ChannelVolume].cell.Value(),
		"brightness", a.channels[control.ChannelBrightness].cell.Value(),
	)
	a.journal.Record(store.EventReset, "", 0, nil)
	a.publish(nil)
	return results
}

// tick updates the frame counter and a smoothed frames-per-second estimate.
func (a *App) tick(now time.Time) {
	a.frames++
	if !a.lastTick.IsZero() {
		if dt := now.Sub(a.lastTick).Seconds(); dt > 0 {
			a.fps = control.Smooth(1/dt, a.fps, 0.1)
		}
	}
	a.lastTick = now
}
