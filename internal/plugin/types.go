// Package plugin discovers and runs actuator plugins: external executables
// that receive one JSON request on stdin and answer with one JSON response.
package plugin

import "encoding/json"

// Actions understood by actuator plugins.
const (
	ActionVolumeRange   = "volume-range"
	ActionSetVolume     = "set-volume"
	ActionSetBrightness = "set-brightness"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel,omitempty"`
	Config  json.RawMessage `json:"config,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// LevelParams carries the target level for set-volume and set-brightness.
type LevelParams struct {
	Level float64 `json:"level"`
}

// RangeData is the data payload of a volume-range response.
type RangeData struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the plugin declares action.
func (p *Plugin) Supports(action string) bool {
	for _, a := range p.Manifest.Actions {
		if a == action {
			return true
		}
	}
	return false
}
