// Package main provides the system-control actuator plugin.
// It reports the output volume range and sets absolute volume and display
// brightness levels on macOS (osascript, brightness) and Linux (pactl,
// brightnessctl).
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type levelParams struct {
	Level float64 `json:"level"`
}

type rangeData struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Volume is reported and accepted in percent on every platform.
const (
	volumeMin = 0.0
	volumeMax = 100.0
)

// actionHandler handles one action and optionally returns response data.
type actionHandler func(req Request) (any, error)

var actionHandlers = map[string]actionHandler{
	"volume-range":   volumeRange,
	"set-volume":     setVolume,
	"set-brightness": setBrightness,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	data, err := handler(req)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse(data)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data any) {
	resp := Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			writeErrorResponse(fmt.Sprintf("failed to encode data: %v", err))
			return
		}
		resp.Data = raw
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func parseLevel(req Request, min, max float64) (float64, error) {
	var p levelParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return 0, fmt.Errorf("invalid params: %w", err)
	}
	if math.IsNaN(p.Level) || p.Level < min || p.Level > max {
		return 0, fmt.Errorf("level %g outside [%g, %g]", p.Level, min, max)
	}
	return p.Level, nil
}

// volumeRange fails when no volume tool exists, which disables the volume channel.
func volumeRange(Request) (any, error) {
	switch runtime.GOOS {
	case "darwin":
		if _, err := exec.LookPath("osascript"); err != nil {
			return nil, err
		}
	case "linux":
		if _, err := exec.LookPath("pactl"); err != nil {
			return nil, err
		}
		if err := run("pactl", "get-sink-volume", "@DEFAULT_SINK@"); err != nil {
			return nil, fmt.Errorf("no default sink: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	return rangeData{Min: volumeMin, Max: volumeMax}, nil
}

func setVolume(req Request) (any, error) {
	level, err := parseLevel(req, volumeMin, volumeMax)
	if err != nil {
		return nil, err
	}
	pct := strconv.Itoa(int(math.Round(level)))

	switch runtime.GOOS {
	case "darwin":
		return nil, run("osascript", "-e", "set volume output volume "+pct)
	case "linux":
		return nil, run("pactl", "set-sink-volume", "@DEFAULT_SINK@", pct+"%")
	default:
		return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

func setBrightness(req Request) (any, error) {
	level, err := parseLevel(req, 0, 100)
	if err != nil {
		return nil, err
	}

	switch runtime.GOOS {
	case "darwin":
		// The brightness CLI takes a 0-1 fraction.
		return nil, run("brightness", strconv.FormatFloat(level/100, 'f', 2, 64))
	case "linux":
		return nil, run("brightnessctl", "--quiet", "set", strconv.Itoa(int(math.Round(level)))+"%")
	default:
		return nil, fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// run executes a command and folds its output into the error.
func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
