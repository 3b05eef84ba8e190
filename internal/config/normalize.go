package config

import "strings"

// normalize expands paths and fills zero values left by a partial file.
func (c *Config) normalize() error {
	var err error
	if c.Actuator.PluginDir, err = expandPath(c.Actuator.PluginDir); err != nil {
		return err
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return err
	}
	if c.LockPath, err = expandPath(c.LockPath); err != nil {
		return err
	}
	if c.Detector.ScriptPath, err = expandPath(c.Detector.ScriptPath); err != nil {
		return err
	}

	if c.Camera.MaxReadFailures == 0 {
		c.Camera.MaxReadFailures = defaultMaxReadFailures
	}
	if c.Actuator.TimeoutMs == 0 {
		c.Actuator.TimeoutMs = defaultTimeoutMs
	}
	if c.Actuator.InitTimeoutMs == 0 {
		c.Actuator.InitTimeoutMs = defaultInitTimeoutMs
	}
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
