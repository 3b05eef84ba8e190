package app

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/pinchctl/internal/actuator"
	"github.com/ayusman/pinchctl/internal/capture"
	"github.com/ayusman/pinchctl/internal/control"
	"github.com/ayusman/pinchctl/internal/detector"
	"github.com/ayusman/pinchctl/internal/logging"
	"github.com/ayusman/pinchctl/internal/store"
)

const (
	deviceMinVolume = -65.25
	deviceMaxVolume = 0.0
	epsilon         = 1e-9
)

type fixture struct {
	app        *App
	camera     *capture.MockCamera
	detector   *detector.MockDetector
	volume     *actuator.Mock
	brightness *actuator.Mock
}

// newFixture builds a started App on mocks. mutate may adjust the config
// before New is called.
func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		camera:     capture.NewMockCamera(648, 488),
		detector:   detector.NewMockDetector(),
		volume:     actuator.NewMock(deviceMinVolume, deviceMaxVolume),
		brightness: actuator.NewMock(BrightnessMin, BrightnessMax),
	}

	cfg := Config{
		Camera:     f.camera,
		Detector:   f.detector,
		Volume:     f.volume,
		Brightness: f.brightness,
		Logger:     logging.NewNop(),
		Smoothing:  0.2,

		VolumeResetPercent:     DefaultResetPercent,
		BrightnessResetPercent: DefaultResetPercent,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.app = a
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { f.app.Stop("test done") })
}

func rightHand(gap int) detector.Hand { return detector.PinchHand(100, 400, gap) }
func leftHand(gap int) detector.Hand  { return detector.PinchHand(500, 400, gap) }

func TestNew_Validation(t *testing.T) {
	cam := capture.NewMockCamera(0, 0)
	det := detector.NewMockDetector()

	if _, err := New(Config{Detector: det}); err == nil {
		t.Error("expected error without camera")
	}
	if _, err := New(Config{Camera: cam}); err == nil {
		t.Error("expected error without detector")
	}

	_, err := New(Config{Camera: cam, Detector: det, DistanceMin: 50, DistanceMax: 50})
	if !errors.Is(err, control.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}

	a, err := New(Config{Camera: cam, Detector: det, Smoothing: 3})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.cfg.Smoothing != control.DefaultSmoothing || a.cfg.ActuationTimeout != actuator.DefaultTimeout {
		t.Errorf("defaults not applied: %+v", a.cfg)
	}
}

func TestProcessHands_BothHands(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	res := f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(20), leftHand(120)})

	if got := res.Raw[control.ChannelVolume]; got != deviceMinVolume {
		t.Errorf("volume raw = %f, want %f", got, deviceMinVolume)
	}
	if got := res.Raw[control.ChannelBrightness]; got != 100 {
		t.Errorf("brightness raw = %f, want 100", got)
	}
	if f.volume.Calls() != 1 || f.brightness.Calls() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", f.volume.Calls(), f.brightness.Calls())
	}

	// Smoothed from the zero baseline with factor 0.2.
	if v, _ := f.volume.Last(); math.Abs(v-deviceMinVolume*0.2) > epsilon {
		t.Errorf("volume applied %f, want %f", v, deviceMinVolume*0.2)
	}
	if b, _ := f.brightness.Last(); math.Abs(b-20) > epsilon {
		t.Errorf("brightness applied %f, want 20", b)
	}
}

func TestProcessHands_ClampsOutsideWindow(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	for _, gap := range []int{0, 5, 19} {
		res := f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(gap), leftHand(gap)})
		if res.Raw[control.ChannelVolume] != deviceMinVolume || res.Raw[control.ChannelBrightness] != 0 {
			t.Errorf("gap %d: raw = %v", gap, res.Raw)
		}
	}
	for _, gap := range []int{121, 300} {
		res := f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(gap), leftHand(gap)})
		if res.Raw[control.ChannelVolume] != deviceMaxVolume || res.Raw[control.ChannelBrightness] != 100 {
			t.Errorf("gap %d: raw = %v", gap, res.Raw)
		}
	}
}

func TestProcessHands_SmoothingConverges(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	want := []float64{20, 36, 48.8, 59.04}
	for i, w := range want {
		f.app.ProcessHands(context.Background(), []detector.Hand{leftHand(120)})
		if b, _ := f.brightness.Last(); math.Abs(b-w) > 1e-9 {
			t.Errorf("frame %d: brightness %f, want %f", i, b, w)
		}
	}
}

func TestProcessHands_MalformedSideSkipped(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	res := f.app.ProcessHands(context.Background(), []detector.Hand{
		detector.PartialHand(100, 400, 3),
		leftHand(70),
	})

	if _, ok := res.Results[control.ChannelVolume]; ok {
		t.Error("volume should be skipped")
	}
	if f.volume.Calls() != 0 {
		t.Errorf("volume backend called %d times", f.volume.Calls())
	}
	if !res.Results[control.ChannelBrightness].OK() || f.brightness.Calls() != 1 {
		t.Error("brightness should process normally")
	}
	if len(res.Malformed) != 1 || !errors.Is(res.Malformed[0], control.ErrMalformedObservation) {
		t.Errorf("Malformed = %v", res.Malformed)
	}
}

func TestProcessHands_AbsentSideKeepsState(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(120)})
	before := f.app.channels[control.ChannelVolume].cell.Value()

	f.app.ProcessHands(context.Background(), nil)
	f.app.ProcessHands(context.Background(), []detector.Hand{leftHand(50)})

	if after := f.app.channels[control.ChannelVolume].cell.Value(); after != before {
		t.Errorf("volume state changed without a right hand: %f -> %f", before, after)
	}
	if f.volume.Calls() != 1 {
		t.Errorf("volume backend called %d times, want 1", f.volume.Calls())
	}
	if lv := f.app.Levels(); lv.Volume.Active || !lv.Brightness.Active {
		t.Errorf("active flags = %v/%v, want false/true", lv.Volume.Active, lv.Brightness.Active)
	}
}

func TestProcessHands_ActuationFailurePreservesState(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)
	ctx := context.Background()

	f.app.ProcessHands(ctx, []detector.Hand{rightHand(120)})
	first := f.app.channels[control.ChannelVolume].cell.Value()

	f.volume.SetError(errors.New("device busy"))
	res := f.app.ProcessHands(ctx, []detector.Hand{rightHand(120)})
	if !errors.Is(res.Results[control.ChannelVolume].Err, actuator.ErrActuationFailure) {
		t.Fatalf("expected ErrActuationFailure, got %v", res.Results[control.ChannelVolume].Err)
	}
	failed := f.app.channels[control.ChannelVolume].cell.Value()
	if want := control.Smooth(deviceMaxVolume, first, 0.2); math.Abs(failed-want) > epsilon {
		t.Errorf("smoothed value not persisted on failure: %f, want %f", failed, want)
	}

	f.volume.SetError(nil)
	f.app.ProcessHands(ctx, []detector.Hand{rightHand(120)})
	if v, _ := f.volume.Last(); math.Abs(v-control.Smooth(deviceMaxVolume, failed, 0.2)) > epsilon {
		t.Errorf("next frame did not build on the persisted value: %f", v)
	}

	lv := f.app.Levels()
	if lv.Volume.Failures != 1 || lv.Volume.Error != "" {
		t.Errorf("volume level = %+v", lv.Volume)
	}
}

func TestProcessHands_ActuationTimeout(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.ActuationTimeout = 20 * time.Millisecond })
	f.start(t)

	f.volume.SetDelay(5 * time.Second)
	start := time.Now()
	res := f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(60), leftHand(60)})

	if time.Since(start) > time.Second {
		t.Fatal("stalled backend stalled the frame")
	}
	if !errors.Is(res.Results[control.ChannelVolume].Err, actuator.ErrActuationFailure) {
		t.Errorf("expected timeout failure, got %v", res.Results[control.ChannelVolume].Err)
	}
	if !res.Results[control.ChannelBrightness].OK() {
		t.Errorf("brightness should succeed, got %v", res.Results[control.ChannelBrightness].Err)
	}
}

func TestProcessHands_NotStarted(t *testing.T) {
	f := newFixture(t, nil)
	res := f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(50)})
	if len(res.Results) != 0 || f.volume.Calls() != 0 {
		t.Error("ProcessHands should do nothing before Start")
	}
}

func TestStart_VolumeUnavailable(t *testing.T) {
	t.Run("range query fails", func(t *testing.T) {
		f := newFixture(t, nil)
		f.volume.SetRangeError(errors.New("no audio device"))
		f.start(t)

		res := f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(50), leftHand(50)})
		if _, ok := res.Routes[control.ChannelVolume]; ok {
			t.Error("volume should never be routed once disabled")
		}
		if f.volume.Calls() != 0 {
			t.Error("disabled volume backend was called")
		}
		if f.brightness.Calls() != 1 {
			t.Error("brightness should continue")
		}

		lv := f.app.Levels()
		if lv.Volume.Enabled || !lv.Brightness.Enabled {
			t.Errorf("enabled = %v/%v", lv.Volume.Enabled, lv.Brightness.Enabled)
		}
	})

	t.Run("no backend", func(t *testing.T) {
		cause := errors.New("no plugin declares set-volume")
		f := newFixture(t, func(c *Config) {
			c.Volume = nil
			c.VolumeErr = cause
		})
		f.start(t)

		ch := f.app.channels[control.ChannelVolume]
		if ch.enabled {
			t.Fatal("volume should be disabled")
		}
		if !errors.Is(ch.lastErr, actuator.ErrBackendUnavailable) || !errors.Is(ch.lastErr, cause) {
			t.Errorf("lastErr = %v", ch.lastErr)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.Volume = actuator.NewMock(5, 5) })
		f.start(t)
		if f.app.channels[control.ChannelVolume].enabled {
			t.Error("empty range should disable volume")
		}
	})

	t.Run("brightness missing", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.Brightness = nil })
		f.start(t)
		res := f.app.ProcessHands(context.Background(), []detector.Hand{rightHand(50), leftHand(50)})
		if len(res.Results) != 1 || !res.Results[control.ChannelVolume].OK() {
			t.Errorf("only volume should run, got %v", res.Results)
		}
	})
}

func TestReset(t *testing.T) {
	t.Run("sets baselines", func(t *testing.T) {
		f := newFixture(t, nil)
		f.start(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			f.app.ProcessHands(ctx, []detector.Hand{rightHand(120), leftHand(20)})
		}

		results := f.app.applyReset(ctx)
		if len(results) != 2 {
			t.Fatalf("expected 2 reset results, got %d", len(results))
		}
		if got := f.app.channels[control.ChannelBrightness].cell.Value(); got != 50 {
			t.Errorf("brightness baseline = %f, want 50", got)
		}
		wantVol := deviceMinVolume / 2
		if got := f.app.channels[control.ChannelVolume].cell.Value(); got != wantVol {
			t.Errorf("volume baseline = %f, want %f", got, wantVol)
		}
		if v, _ := f.volume.Last(); v != wantVol {
			t.Errorf("volume backend got %f, want %f", v, wantVol)
		}
	})

	t.Run("one backend failing does not block the other", func(t *testing.T) {
		f := newFixture(t, nil)
		f.start(t)
		ctx := context.Background()

		f.app.ProcessHands(ctx, []detector.Hand{rightHand(120), leftHand(120)})
		f.volume.SetError(errors.New("device busy"))

		results := f.app.applyReset(ctx)
		if results[control.ChannelVolume].OK() {
			t.Error("volume reset should fail")
		}
		if !results[control.ChannelBrightness].OK() {
			t.Error("brightness reset should succeed")
		}
		if got := f.app.channels[control.ChannelVolume].cell.Value(); got != deviceMinVolume/2 {
			t.Errorf("volume state should still reset, got %f", got)
		}
		if b, _ := f.brightness.Last(); b != 50 {
			t.Errorf("brightness backend got %f, want 50", b)
		}
	})

	t.Run("configured percent", func(t *testing.T) {
		f := newFixture(t, func(c *Config) {
			c.VolumeResetPercent = 25
			c.BrightnessResetPercent = 80
		})
		f.start(t)

		f.app.applyReset(context.Background())
		if got := f.app.channels[control.ChannelVolume].cell.Value(); math.Abs(got-(deviceMinVolume*0.75)) > epsilon {
			t.Errorf("volume baseline = %f", got)
		}
		if got := f.app.channels[control.ChannelBrightness].cell.Value(); got != 80 {
			t.Errorf("brightness baseline = %f", got)
		}
	})

	t.Run("zero percent resets to the bottom of the range", func(t *testing.T) {
		f := newFixture(t, func(c *Config) {
			c.VolumeResetPercent = 0
			c.BrightnessResetPercent = 0
		})
		f.start(t)
		ctx := context.Background()

		f.app.ProcessHands(ctx, []detector.Hand{rightHand(120), leftHand(120)})
		f.app.applyReset(ctx)

		if got := f.app.channels[control.ChannelVolume].cell.Value(); got != deviceMinVolume {
			t.Errorf("volume baseline = %f, want %f", got, deviceMinVolume)
		}
		if got := f.app.channels[control.ChannelBrightness].cell.Value(); got != BrightnessMin {
			t.Errorf("brightness baseline = %f, want %f", got, BrightnessMin)
		}
		if b, _ := f.brightness.Last(); b != BrightnessMin {
			t.Errorf("brightness backend got %f, want %f", b, BrightnessMin)
		}
	})

	t.Run("negative percent selects the default", func(t *testing.T) {
		f := newFixture(t, func(c *Config) {
			c.VolumeResetPercent = -1
			c.BrightnessResetPercent = -1
		})
		f.start(t)

		f.app.applyReset(context.Background())
		if got := f.app.channels[control.ChannelBrightness].cell.Value(); got != 50 {
			t.Errorf("brightness baseline = %f, want 50", got)
		}
	})

	t.Run("disabled channel is left alone", func(t *testing.T) {
		f := newFixture(t, nil)
		f.volume.SetRangeError(errors.New("gone"))
		f.start(t)

		results := f.app.applyReset(context.Background())
		if _, ok := results[control.ChannelVolume]; ok {
			t.Error("disabled volume should not be reset")
		}
		if f.volume.Calls() != 0 {
			t.Error("disabled volume backend was called")
		}
	})
}

func TestRun_QuitAndReset(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.FrameInterval = 2 * time.Millisecond })
	f.detector.SetHands([]detector.Hand{rightHand(120), leftHand(120)})

	updates, cancel := f.app.Subscribe()
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.app.Run(context.Background()) }()

	waitFor(t, func() bool { return f.app.Levels().Frames >= 5 })
	f.app.Reset()
	waitFor(t, func() bool { return contains(f.brightness.Levels(), 50) })
	f.app.Quit()
	f.app.Quit()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	if f.camera.IsOpen() {
		t.Error("camera should be closed after Run")
	}

	// Subscriber channel drains and closes.
	for range updates {
	}
}

func TestRun_ContextCancel(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.FrameInterval = time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.app.Run(ctx) }()

	waitFor(t, func() bool { return f.detector.Calls() > 0 })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_CaptureFailure(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxReadFailures = 3 })
	f.camera.Limit(2)

	err := f.app.Run(context.Background())
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}
	if f.camera.Reads() != 5 {
		t.Errorf("Reads() = %d, want 5", f.camera.Reads())
	}
	if f.camera.IsOpen() {
		t.Error("camera should be closed on failure")
	}
}

func TestRun_OpenFailureReleases(t *testing.T) {
	f := newFixture(t, nil)
	f.camera.SetOpenError(errors.New("no device"))

	updates, cancel := f.app.Subscribe()
	defer cancel()

	err := f.app.Run(context.Background())
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("expected ErrCaptureFailed, got %v", err)
	}

	closed := make(chan struct{})
	go func() {
		for range updates {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("subscription still open after Run returned")
	}

	late, _ := f.app.Subscribe()
	if _, ok := <-late; ok {
		t.Error("Subscribe after stop should return a closed channel")
	}
	if f.detector.Calls() != 0 {
		t.Errorf("detector called %d times without a camera", f.detector.Calls())
	}
}

func TestRun_TransientReadFailures(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.MaxReadFailures = 3
		c.FrameInterval = time.Millisecond
	})
	f.camera.FailNext(2)
	f.detector.SetHands([]detector.Hand{leftHand(60)})

	done := make(chan error, 1)
	go func() { done <- f.app.Run(context.Background()) }()

	waitFor(t, func() bool { return f.brightness.Calls() >= 3 })
	f.app.Quit()
	if err := <-done; err != nil {
		t.Errorf("transient failures should not end Run: %v", err)
	}
}

func TestRun_DetectorErrorContinues(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.FrameInterval = time.Millisecond })
	f.detector.SetError(errors.New("service crashed"))

	done := make(chan error, 1)
	go func() { done <- f.app.Run(context.Background()) }()

	waitFor(t, func() bool { return f.detector.Calls() >= 3 })
	f.detector.SetError(nil)
	f.detector.SetHands([]detector.Hand{leftHand(60)})

	waitFor(t, func() bool { return f.brightness.Calls() >= 2 })
	f.app.Quit()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestRun_Journal(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	f := newFixture(t, func(c *Config) {
		c.Store = s
		c.FrameInterval = time.Millisecond
	})
	f.volume.SetRangeError(errors.New("no audio device"))
	f.brightness.SetError(errors.New("no backlight"))
	f.detector.SetHands([]detector.Hand{leftHand(60)})

	done := make(chan error, 1)
	go func() { done <- f.app.Run(context.Background()) }()
	waitFor(t, func() bool { return f.brightness.Calls() >= 2 })
	f.app.Quit()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sessions, err := s.Sessions().List(1)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions = %v, %v", sessions, err)
	}
	sess := sessions[0]
	if sess.VolumeEnabled || !sess.BrightnessEnabled || sess.EndedAt == nil || sess.ExitReason != "quit" {
		t.Errorf("session = %+v", sess)
	}

	counts, err := s.Events().CountByKind(sess.ID)
	if err != nil {
		t.Fatalf("CountByKind() error = %v", err)
	}
	if counts[store.EventBackendUnavailable] != 1 {
		t.Errorf("backend_unavailable events = %d, want 1", counts[store.EventBackendUnavailable])
	}
	if counts[store.EventActuationFailure] < 2 {
		t.Errorf("actuation_failure events = %d, want >= 2", counts[store.EventActuationFailure])
	}
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	updates, cancel := f.app.Subscribe()
	<-updates // initial snapshot

	for i := 0; i < 3; i++ {
		f.app.ProcessHands(context.Background(), []detector.Hand{leftHand(120)})
	}

	// Only the newest snapshot is kept for a slow subscriber.
	lv := <-updates
	if lv.Frames != 3 {
		t.Errorf("Frames = %d, want 3", lv.Frames)
	}
	if math.Abs(lv.Brightness.Percent-48.8) > 1e-9 {
		t.Errorf("brightness percent = %f, want 48.8", lv.Brightness.Percent)
	}
	select {
	case extra := <-updates:
		t.Errorf("unexpected extra snapshot: %+v", extra)
	default:
	}

	cancel()
	if _, ok := <-updates; ok {
		t.Error("channel should be closed after cancel")
	}
	cancel()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func contains(levels []float64, want float64) bool {
	for _, l := range levels {
		if l == want {
			return true
		}
	}
	return false
}
