// Package tray provides a system tray interface for pinchctl. The tray shows
// the live volume and brightness levels and offers reset and quit.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pinchctl/internal/app"
	"github.com/ayusman/pinchctl/internal/control"
)

// Controller is the part of the control loop the tray drives.
type Controller interface {
	Subscribe() (<-chan app.Levels, func())
	Reset()
	Quit()
}

// Tray represents the system tray application.
type Tray struct {
	controller Controller
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuVolume     *systray.MenuItem
	menuBrightness *systray.MenuItem
}

// New creates a new Tray bound to the given controller.
func New(c Controller) *Tray {
	return &Tray{controller: c}
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("pinch")
	systray.SetTooltip("pinchctl: pinch to set volume and brightness")

	t.mu.Lock()
	t.menuVolume = systray.AddMenuItem(Label(app.ChannelLevel{Channel: control.ChannelVolume}), "Right hand pinch")
	t.menuVolume.Disable()
	t.menuBrightness = systray.AddMenuItem(Label(app.ChannelLevel{Channel: control.ChannelBrightness}), "Left hand pinch")
	t.menuBrightness.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuReset := systray.AddMenuItem("Reset Levels", "Return both channels to their baseline")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit pinchctl")

	updates, cancel := t.controller.Subscribe()
	go func() {
		defer cancel()
		for lv := range updates {
			t.update(lv)
		}
		// Loop stopped on its own.
		systray.Quit()
	}()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuReset.ClickedCh:
				t.controller.Reset()
			case <-menuQuit.ClickedCh:
				t.controller.Quit()
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	t.controller.Quit()
}

// update refreshes the level rows and the title.
func (t *Tray) update(lv app.Levels) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuVolume != nil {
		t.menuVolume.SetTitle(Label(lv.Volume))
	}
	if t.menuBrightness != nil {
		t.menuBrightness.SetTitle(Label(lv.Brightness))
	}
	systray.SetTitle(Title(lv))
}

// Label renders one channel row, e.g. "Volume: 48%".
func Label(c app.ChannelLevel) string {
	name := "Volume"
	if c.Channel == control.ChannelBrightness {
		name = "Brightness"
	}
	if !c.Enabled {
		return name + ": unavailable"
	}
	return fmt.Sprintf("%s: %.0f%%", name, c.Percent)
}

// Title renders the compact menu bar text, e.g. "V48 B100".
func Title(lv app.Levels) string {
	part := func(prefix string, c app.ChannelLevel) string {
		if !c.Enabled {
			return prefix + "-"
		}
		return fmt.Sprintf("%s%.0f", prefix, c.Percent)
	}
	return part("V", lv.Volume) + " " + part("B", lv.Brightness)
}
