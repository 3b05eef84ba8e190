package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"

	"github.com/ayusman/pinchctl/internal/actuator"
	"github.com/ayusman/pinchctl/internal/app"
	"github.com/ayusman/pinchctl/internal/capture"
	"github.com/ayusman/pinchctl/internal/config"
	"github.com/ayusman/pinchctl/internal/console"
	"github.com/ayusman/pinchctl/internal/detector"
	"github.com/ayusman/pinchctl/internal/logging"
	"github.com/ayusman/pinchctl/internal/plugin"
	"github.com/ayusman/pinchctl/internal/server"
	"github.com/ayusman/pinchctl/internal/store"
	"github.com/ayusman/pinchctl/internal/tray"
)

// demoVolumeMin mimics a decibel attenuation range.
const demoVolumeMin = -65.25

// runLoop holds the instance lock and runs the control loop with every
// configured trigger source until it stops.
func runLoop(parent context.Context, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.LockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(cfg.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another pinchctl instance is already running")
	}
	defer lock.Unlock()

	useConsole := cfg.Triggers.Console && isTerminal(os.Stdout)

	logOut := io.Writer(os.Stderr)
	color := isTerminal(os.Stderr)
	if useConsole {
		// The status view owns the terminal; logs go to a file beside the lock.
		f, err := os.OpenFile(filepath.Join(filepath.Dir(cfg.LockPath), "pinchctl.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut, color = f, false
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: logOut,
		Color:  color,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Journal.Enabled {
		st, err = store.New(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer st.Close()
	}

	appCfg, err := buildAppConfig(cfg, logger)
	if err != nil {
		return err
	}
	appCfg.Store = st

	a, err := app.New(appCfg)
	if err != nil {
		appCfg.Detector.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- a.Run(runCtx)
		cancel()
	}()

	serverDone := make(chan struct{})
	if cfg.Server.Enabled {
		srv := server.New(server.Config{Controller: a, Store: st, Logger: logger})
		go func() {
			defer close(serverDone)
			if err := srv.Serve(runCtx, cfg.Server.Bind); err != nil {
				logger.Error("status API stopped", "error", err)
			}
		}()
	} else {
		close(serverDone)
	}

	consoleDone := make(chan struct{})
	if useConsole {
		p := tea.NewProgram(console.New(a), tea.WithAltScreen())
		go func() {
			defer close(consoleDone)
			if _, err := p.Run(); err != nil {
				logger.Warn("console stopped", "error", err)
			}
		}()
	} else {
		close(consoleDone)
	}

	if cfg.Triggers.Tray {
		// Blocks on the main goroutine until the loop stops or Quit is clicked.
		tray.New(a).Run()
	}

	err = <-loopErr
	<-serverDone
	<-consoleDone
	if err != nil {
		logger.Error("control loop failed", "error", err)
		return err
	}
	logger.Info("pinchctl stopped")
	return nil
}

// buildAppConfig assembles the camera, detector and backends for cfg.
func buildAppConfig(cfg *config.Config, logger *slog.Logger) (app.Config, error) {
	appCfg := app.Config{
		Logger:                 logger,
		DistanceMin:            cfg.Control.DistanceMin,
		DistanceMax:            cfg.Control.DistanceMax,
		Smoothing:              cfg.Control.Smoothing,
		ActuationTimeout:       time.Duration(cfg.Actuator.TimeoutMs) * time.Millisecond,
		InitTimeout:            time.Duration(cfg.Actuator.InitTimeoutMs) * time.Millisecond,
		MaxReadFailures:        cfg.Camera.MaxReadFailures,
		VolumeResetPercent:     cfg.Volume.ResetPercent,
		BrightnessResetPercent: cfg.Brightness.ResetPercent,
	}

	if cfg.Actuator.Demo {
		logger.Info("demo mode: synthetic camera, hands and backends")
		appCfg.Camera = capture.NewMockCamera(cfg.Camera.Width, cfg.Camera.Height)
		appCfg.Detector = detector.NewDemoDetector(cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS*4)
		appCfg.FrameInterval = time.Second / time.Duration(cfg.Camera.FPS)
		appCfg.Volume = actuator.NewMock(demoVolumeMin, 0)
		appCfg.Brightness = actuator.NewMock(app.BrightnessMin, app.BrightnessMax)
	} else {
		appCfg.Camera = capture.NewCamera(capture.Config{
			DeviceID: cfg.Camera.DeviceID,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			FPS:      cfg.Camera.FPS,
		})

		det, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        cfg.Detector.MaxHands,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConf,
			ScriptPath:      cfg.Detector.ScriptPath,
			PythonPath:      cfg.Detector.PythonPath,
		})
		if err != nil {
			return app.Config{}, fmt.Errorf("create detector: %w", err)
		}
		appCfg.Detector = det

		wirePluginBackends(&appCfg, cfg, logger)
	}

	if !cfg.Volume.Enabled {
		appCfg.Volume, appCfg.VolumeErr = nil, errors.New("disabled in configuration")
	}
	if !cfg.Brightness.Enabled {
		appCfg.Brightness, appCfg.BrightnessErr = nil, errors.New("disabled in configuration")
	}
	return appCfg, nil
}

// wirePluginBackends discovers plugins and binds one per channel. A channel
// without a usable plugin is left nil with the reason recorded.
func wirePluginBackends(appCfg *app.Config, cfg *config.Config, logger *slog.Logger) {
	mgr := plugin.NewManager(cfg.Actuator.PluginDir)
	if err := mgr.Discover(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.Actuator.PluginDir, "error", err)
	}
	exec := plugin.NewExecutor(cfg.Actuator.InitTimeoutMs)

	if v, err := actuator.NewPluginVolume(mgr, exec, cfg.Volume.Plugin); err != nil {
		appCfg.VolumeErr = err
	} else {
		appCfg.Volume = v
		logger.Info("volume backend bound", "plugin", v.Name())
	}
	if b, err := actuator.NewPluginBrightness(mgr, exec, cfg.Brightness.Plugin); err != nil {
		appCfg.BrightnessErr = err
	} else {
		appCfg.Brightness = b
		logger.Info("brightness backend bound", "plugin", b.Name())
	}
}
