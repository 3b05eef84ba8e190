package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Camera contains capture device settings.
type Camera struct {
	DeviceID        int `toml:"device_id"`
	Width           int `toml:"width"`
	Height          int `toml:"height"`
	FPS             int `toml:"fps"`
	MaxReadFailures int `toml:"max_read_failures"`
}

// Detector contains hand landmark detector settings.
type Detector struct {
	MaxHands        int     `toml:"max_hands"`
	MinConfidence   float64 `toml:"min_confidence"`
	MinTrackingConf float64 `toml:"min_tracking_confidence"`
	ScriptPath      string  `toml:"script_path"`
	PythonPath      string  `toml:"python_path"`
}

// Control contains the pinch calibration window and smoothing factor.
type Control struct {
	DistanceMin float64 `toml:"distance_min"`
	DistanceMax float64 `toml:"distance_max"`
	Smoothing   float64 `toml:"smoothing"`
}

// Channel contains per-output settings.
type Channel struct {
	Enabled bool `toml:"enabled"`
	// Plugin names the actuator plugin; empty picks the first capable one.
	Plugin string `toml:"plugin"`
	// ResetPercent is the reset baseline as a share of the output range.
	ResetPercent float64 `toml:"reset_percent"`
}

// Actuator contains backend call settings.
type Actuator struct {
	PluginDir string `toml:"plugin_dir"`
	// TimeoutMs bounds each SetLevel call made by the control loop.
	TimeoutMs int `toml:"timeout_ms"`
	// InitTimeoutMs bounds backend initialization such as the volume range query.
	InitTimeoutMs int `toml:"init_timeout_ms"`
	// Demo replaces plugins with in-memory backends.
	Demo bool `toml:"demo"`
}

// Server contains the local HTTP status API settings.
type Server struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Journal contains the optional diagnostics journal settings.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Triggers selects which reset/quit sources run alongside the loop.
type Triggers struct {
	Tray    bool `toml:"tray"`
	Console bool `toml:"console"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for pinchctl.
//
// Configuration sections by subsystem:
//   - Camera: capture device and frame geometry (frame width sets the hand split)
//   - Detector: MediaPipe service settings
//   - Control: calibration window and smoothing
//   - Volume, Brightness: per-channel plugin and reset baseline
//   - Actuator: plugin directory and call timeouts
//   - Server: local status API
//   - Journal: sqlite diagnostics journal
//   - Triggers: tray and console trigger sources
//   - Logging: log format and level
type Config struct {
	Camera     Camera   `toml:"camera"`
	Detector   Detector `toml:"detector"`
	Control    Control  `toml:"control"`
	Volume     Channel  `toml:"volume"`
	Brightness Channel  `toml:"brightness"`
	Actuator   Actuator `toml:"actuator"`
	Server     Server   `toml:"server"`
	Journal    Journal  `toml:"journal"`
	Triggers   Triggers `toml:"triggers"`
	Logging    Logging  `toml:"logging"`
	LockPath   string   `toml:"lock_path"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. The returned path is where the file was (or would be)
// read from; exists reports whether it was found.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// WriteSample writes the annotated sample configuration to path.
// An existing file is left untouched unless overwrite is set.
func WriteSample(path string, overwrite bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}

	if !overwrite {
		if _, err := os.Stat(expanded); err == nil {
			return fmt.Errorf("config already exists at %s", expanded)
		}
	}

	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// expandPath resolves a leading ~ to the user's home directory.
func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
