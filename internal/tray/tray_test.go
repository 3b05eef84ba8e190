package tray

import (
	"testing"

	"github.com/ayusman/pinchctl/internal/app"
	"github.com/ayusman/pinchctl/internal/control"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name  string
		level app.ChannelLevel
		want  string
	}{
		{"volume", app.ChannelLevel{Channel: control.ChannelVolume, Enabled: true, Percent: 48.8}, "Volume: 49%"},
		{"brightness", app.ChannelLevel{Channel: control.ChannelBrightness, Enabled: true, Percent: 100}, "Brightness: 100%"},
		{"disabled", app.ChannelLevel{Channel: control.ChannelVolume}, "Volume: unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.level); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	lv := app.Levels{
		Volume:     app.ChannelLevel{Channel: control.ChannelVolume, Enabled: true, Percent: 20},
		Brightness: app.ChannelLevel{Channel: control.ChannelBrightness},
	}
	if got := Title(lv); got != "V20 B-" {
		t.Errorf("Title() = %q, want %q", got, "V20 B-")
	}
}
