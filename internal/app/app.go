// Package app runs the pinch control loop: it reads camera frames, routes
// each detected hand to its channel and drives the volume and brightness
// backends.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/pinchctl/internal/actuator"
	"github.com/ayusman/pinchctl/internal/capture"
	"github.com/ayusman/pinchctl/internal/control"
	"github.com/ayusman/pinchctl/internal/detector"
	"github.com/ayusman/pinchctl/internal/store"
)

// ErrCaptureFailed ends Run after too many consecutive failed frame reads.
var ErrCaptureFailed = errors.New("capture failed")

// Loop defaults.
const (
	// DefaultMaxReadFailures is how many consecutive reads may fail before Run gives up.
	DefaultMaxReadFailures = 30
	// DefaultInitTimeout bounds backend initialization at startup.
	DefaultInitTimeout = 3 * time.Second
	// DefaultResetPercent places the reset baseline halfway through a channel's range.
	DefaultResetPercent = 50.0
	// BrightnessMin and BrightnessMax bound the brightness channel in percent.
	BrightnessMin = 0.0
	BrightnessMax = 100.0
)

// Config holds the collaborators and tuning for an App.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector

	// Volume is nil when no backend could be created; VolumeErr says why.
	Volume    actuator.Volume
	VolumeErr error
	// Brightness is nil when no backend could be created; BrightnessErr says why.
	Brightness    actuator.Brightness
	BrightnessErr error

	// Store enables the diagnostics journal when set.
	Store  *store.Store
	Logger *slog.Logger

	DistanceMin float64
	DistanceMax float64
	Smoothing   float64

	ActuationTimeout time.Duration
	InitTimeout      time.Duration
	MaxReadFailures  int

	// Reset baselines as a percent of each output range. Zero resets to the
	// bottom of the range; a negative value selects DefaultResetPercent.
	VolumeResetPercent     float64
	BrightnessResetPercent float64

	// FrameInterval paces the loop; zero reads frames as fast as the camera delivers.
	FrameInterval time.Duration
}

// journal receives loop events. *store.Journal implements it.
type journal interface {
	Record(kind store.EventKind, channel string, level float64, cause error)
}

type nopJournal struct{}

func (nopJournal) Record(store.EventKind, string, float64, error) {}

// App is the control loop orchestrator. Channel state is owned by the
// goroutine running Run; other goroutines interact through Reset, Quit,
// Levels and Subscribe.
type App struct {
	cfg     Config
	logger  *slog.Logger
	arbiter *control.Arbiter
	journal journal

	channels map[control.Channel]*channelState

	resetCh  chan struct{}
	quitCh   chan struct{}
	quitOnce sync.Once
	stopOnce sync.Once
	started  bool

	mu      sync.RWMutex
	levels  Levels
	subs    map[int]chan Levels
	nextSub int
	stopped bool

	frames   uint64
	lastTick time.Time
	fps      float64
}

// New validates cfg and creates an App. Backends are probed when Run starts.
func New(cfg Config) (*App, error) {
	if cfg.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if cfg.DistanceMin == 0 && cfg.DistanceMax == 0 {
		cfg.DistanceMin, cfg.DistanceMax = control.DefaultDistanceMin, control.DefaultDistanceMax
	}
	window := control.Range{InMin: cfg.DistanceMin, InMax: cfg.DistanceMax}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("app: distance window: %w", err)
	}
	if !control.ValidFactor(cfg.Smoothing) {
		cfg.Smoothing = control.DefaultSmoothing
	}
	if cfg.ActuationTimeout <= 0 {
		cfg.ActuationTimeout = actuator.DefaultTimeout
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}
	if cfg.MaxReadFailures <= 0 {
		cfg.MaxReadFailures = DefaultMaxReadFailures
	}
	if cfg.VolumeResetPercent < 0 {
		cfg.VolumeResetPercent = DefaultResetPercent
	}
	if cfg.BrightnessResetPercent < 0 {
		cfg.BrightnessResetPercent = DefaultResetPercent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger.With("component", "loop"),
		journal: nopJournal{},
		resetCh: make(chan struct{}, 1),
		quitCh:  make(chan struct{}),
		subs:    make(map[int]chan Levels),
	}

	a.channels = map[control.Channel]*channelState{
		control.ChannelVolume: {
			name:         control.ChannelVolume,
			setter:       cfg.Volume,
			window:       window,
			cell:         control.NewCell(0, cfg.Smoothing),
			resetPercent: cfg.VolumeResetPercent,
		},
		control.ChannelBrightness: {
			name:         control.ChannelBrightness,
			setter:       cfg.Brightness,
			window:       window,
			cell:         control.NewCell(0, cfg.Smoothing),
			resetPercent: cfg.BrightnessResetPercent,
		},
	}
	return a, nil
}

// Reset requests that both channels return to their baselines. The request is
// applied by the loop between frames; repeated requests before then coalesce.
func (a *App) Reset() {
	select {
	case a.resetCh <- struct{}{}:
	default:
	}
}

// Quit asks Run to return. It is safe to call more than once.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.quitCh) })
}

// Done is closed once Quit has been called.
func (a *App) Done() <-chan struct{} {
	return a.quitCh
}

// Start opens the camera, probes the backends and opens the journal. A
// channel whose backend is missing or fails its probe is disabled for the
// lifetime of the App. Start is idempotent.
func (a *App) Start(ctx context.Context) error {
	if a.started {
		return nil
	}
	if err := a.cfg.Camera.Open(); err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	width, height := a.cfg.Camera.Size()
	a.arbiter = control.NewArbiter(width)
	a.initBackends(ctx)
	a.openJournal(width, height)
	a.started = true

	a.logger.Info("control loop started",
		"frame_width", width,
		"frame_height", height,
		"volume", a.channels[control.ChannelVolume].enabled,
		"brightness", a.channels[control.ChannelBrightness].enabled,
	)
	a.publish(nil)
	return nil
}

// Run starts the App if needed and processes frames until Quit is called,
// ctx ends, or capture fails repeatedly. Camera, detector and backends are
// released on every exit path. Run returns nil on a requested stop and an
// error wrapping ErrCaptureFailed when the camera gives out.
func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		reason := "quit"
		if err != nil {
			reason = err.Error()
		}
		a.Stop(reason)
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}
	return a.loop(ctx)
}

func (a *App) loop(ctx context.Context) error {
	var tick <-chan time.Time
	if a.cfg.FrameInterval > 0 {
		ticker := time.NewTicker(a.cfg.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	failures := 0
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-a.quitCh:
				return nil
			case <-a.resetCh:
				a.applyReset(ctx)
				continue
			case <-tick:
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			case <-a.quitCh:
				return nil
			case <-a.resetCh:
				a.applyReset(ctx)
				continue
			default:
			}
		}

		frame, err := a.cfg.Camera.ReadFrame()
		if err != nil {
			failures++
			a.logger.Warn("failed to read frame", "error", err, "consecutive", failures)
			a.journal.Record(store.EventCaptureFailure, "", 0, err)
			if failures >= a.cfg.MaxReadFailures {
				return fmt.Errorf("%w: %d consecutive reads failed: %w", ErrCaptureFailed, failures, err)
			}
			continue
		}
		failures = 0

		hands, err := a.cfg.Detector.Detect(frame)
		frame.Close()
		if err != nil {
			a.logger.Warn("hand detection failed", "error", err)
			a.journal.Record(store.EventDetectFailure, "", 0, err)
			continue
		}

		a.safeProcess(ctx, hands)
	}
}

// safeProcess runs one frame step, recovering from panics so a faulty
// collaborator cannot end the loop.
func (a *App) safeProcess(ctx context.Context, hands []detector.Hand) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("frame step panicked", "panic", r)
		}
	}()
	a.ProcessHands(ctx, hands)
}

// initBackends probes each backend once. A channel whose backend is missing
// or fails its probe is disabled for the rest of the run.
func (a *App) initBackends(ctx context.Context) {
	vol := a.channels[control.ChannelVolume]
	if a.cfg.Volume == nil {
		a.disable(vol, a.cfg.VolumeErr)
	} else {
		probeCtx, cancel := context.WithTimeout(ctx, a.cfg.InitTimeout)
		lo, hi, err := a.cfg.Volume.Range(probeCtx)
		cancel()
		switch {
		case err != nil:
			a.disable(vol, err)
		case lo >= hi:
			a.disable(vol, fmt.Errorf("empty volume range [%g, %g]", lo, hi))
		default:
			vol.setRange(lo, hi)
			vol.enabled = true
		}
	}

	bri := a.channels[control.ChannelBrightness]
	if a.cfg.Brightness == nil {
		a.disable(bri, a.cfg.BrightnessErr)
	} else {
		bri.setRange(BrightnessMin, BrightnessMax)
		bri.enabled = true
	}
}

func (a *App) disable(ch *channelState, cause error) {
	if cause == nil {
		cause = errors.New("no backend configured")
	}
	if !errors.Is(cause, actuator.ErrBackendUnavailable) {
		cause = actuator.Unavailable(string(ch.name), cause)
	}
	ch.enabled = false
	ch.lastErr = cause
	a.arbiter.Disable(ch.name)
	a.logger.Warn("channel disabled", "channel", ch.name, "error", cause)
}

func (a *App) openJournal(width, height int) {
	if a.cfg.Store == nil {
		return
	}
	vol := a.channels[control.ChannelVolume]
	bri := a.channels[control.ChannelBrightness]

	j, err := store.OpenJournal(a.cfg.Store, &store.Session{
		FrameWidth:        width,
		FrameHeight:       height,
		VolumeMin:         vol.window.OutMin,
		VolumeMax:         vol.window.OutMax,
		VolumeEnabled:     vol.enabled,
		BrightnessEnabled: bri.enabled,
	}, a.logger)
	if err != nil {
		a.logger.Warn("journal unavailable", "error", err)
		return
	}
	a.journal = j

	for _, name := range control.Channels {
		if ch := a.channels[name]; !ch.enabled {
			j.Record(store.EventBackendUnavailable, string(name), 0, ch.lastErr)
		}
	}
}

// Stop releases every collaborator and closes subscriber channels. Errors
// are logged, not returned. Run calls Stop itself; callers using Start and
// ProcessHands directly must call it once done.
func (a *App) Stop(reason string) {
	a.stopOnce.Do(func() { a.release(reason) })
}

func (a *App) release(reason string) {
	if err := a.cfg.Camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
	if err := a.cfg.Detector.Close(); err != nil {
		a.logger.Warn("error closing detector", "error", err)
	}
	for _, name := range control.Channels {
		if c, ok := a.channels[name].setter.(io.Closer); ok {
			if err := c.Close(); err != nil {
				a.logger.Warn("error closing backend", "channel", name, "error", err)
			}
		}
	}
	if j, ok := a.journal.(*store.Journal); ok {
		if err := j.Close(reason); err != nil {
			a.logger.Warn("error closing journal", "error", err)
		}
	}

	a.mu.Lock()
	a.stopped = true
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.mu.Unlock()

	a.logger.Info("control loop stopped", "reason", reason, "frames", a.frames)
}
