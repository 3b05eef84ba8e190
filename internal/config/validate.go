package config

import (
	"errors"
	"fmt"

	"github.com/ayusman/pinchctl/internal/control"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateControl(); err != nil {
		return err
	}
	if err := c.validateChannels(); err != nil {
		return err
	}
	if err := c.validateActuator(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera.width and camera.height must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS < 0 {
		return errors.New("camera.fps must not be negative")
	}
	if c.Camera.MaxReadFailures < 1 {
		return errors.New("camera.max_read_failures must be at least 1")
	}
	return nil
}

func (c *Config) validateControl() error {
	r := control.Range{InMin: c.Control.DistanceMin, InMax: c.Control.DistanceMax}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("control.distance_min/distance_max: %w", err)
	}
	if c.Control.DistanceMin > c.Control.DistanceMax {
		return errors.New("control.distance_min must be below control.distance_max")
	}
	if !control.ValidFactor(c.Control.Smoothing) {
		return fmt.Errorf("control.smoothing must be in (0, 1], got %g", c.Control.Smoothing)
	}
	return nil
}

func (c *Config) validateChannels() error {
	for name, ch := range map[string]Channel{"volume": c.Volume, "brightness": c.Brightness} {
		if ch.ResetPercent < 0 || ch.ResetPercent > 100 {
			return fmt.Errorf("%s.reset_percent must be between 0 and 100, got %g", name, ch.ResetPercent)
		}
	}
	return nil
}

func (c *Config) validateActuator() error {
	if c.Actuator.TimeoutMs < 1 {
		return errors.New("actuator.timeout_ms must be positive")
	}
	if c.Actuator.InitTimeoutMs < 1 {
		return errors.New("actuator.init_timeout_ms must be positive")
	}
	if !c.Actuator.Demo && c.Actuator.PluginDir == "" {
		return errors.New("actuator.plugin_dir must be set unless actuator.demo is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
