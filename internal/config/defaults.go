package config

const (
	defaultConfigPath      = "~/.config/pinchctl/config.toml"
	defaultPluginDir       = "~/.pinchctl/plugins"
	defaultJournalPath     = "~/.pinchctl/journal.db"
	defaultLockPath        = "~/.pinchctl/pinchctl.lock"
	defaultCameraWidth     = 648
	defaultCameraHeight    = 488
	defaultCameraFPS       = 30
	defaultMaxReadFailures = 30
	defaultMaxHands        = 2
	defaultMinConfidence   = 0.7
	defaultMinTracking     = 0.5
	defaultDistanceMin     = 20.0
	defaultDistanceMax     = 120.0
	defaultSmoothing       = 0.2
	defaultResetPercent    = 50.0
	defaultTimeoutMs       = 100
	defaultInitTimeoutMs   = 3000
	defaultServerBind      = "127.0.0.1:7420"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Camera: Camera{
			Width:           defaultCameraWidth,
			Height:          defaultCameraHeight,
			FPS:             defaultCameraFPS,
			MaxReadFailures: defaultMaxReadFailures,
		},
		Detector: Detector{
			MaxHands:        defaultMaxHands,
			MinConfidence:   defaultMinConfidence,
			MinTrackingConf: defaultMinTracking,
		},
		Control: Control{
			DistanceMin: defaultDistanceMin,
			DistanceMax: defaultDistanceMax,
			Smoothing:   defaultSmoothing,
		},
		Volume: Channel{
			Enabled:      true,
			ResetPercent: defaultResetPercent,
		},
		Brightness: Channel{
			Enabled:      true,
			ResetPercent: defaultResetPercent,
		},
		Actuator: Actuator{
			PluginDir:     defaultPluginDir,
			TimeoutMs:     defaultTimeoutMs,
			InitTimeoutMs: defaultInitTimeoutMs,
		},
		Server: Server{
			Enabled: true,
			Bind:    defaultServerBind,
		},
		Journal: Journal{
			Path: defaultJournalPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		LockPath: defaultLockPath,
	}
}
