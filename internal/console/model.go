// Package console renders a live terminal status view of the control loop.
// Keys: r resets both channels, q or ctrl+c quits.
package console

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ayusman/pinchctl/internal/app"
)

// Controller is the part of the control loop the console drives.
type Controller interface {
	Subscribe() (<-chan app.Levels, func())
	Reset()
	Quit()
}

// levelsMsg carries a fresh snapshot into the model.
type levelsMsg app.Levels

// stoppedMsg reports that the control loop closed its subscription.
type stoppedMsg struct{}

// shared holds the subscription. Bubble Tea copies the model by value, so
// the pointer keeps every copy reading the same channel.
type shared struct {
	updates <-chan app.Levels
	cancel  func()
}

// Model is the Bubble Tea model for the status view.
type Model struct {
	controller Controller
	shared     *shared

	width   int
	levels  app.Levels
	resets  int
	stopped bool
}

// New subscribes to c and returns a model ready for tea.NewProgram.
func New(c Controller) Model {
	updates, cancel := c.Subscribe()
	return Model{
		controller: c,
		shared:     &shared{updates: updates, cancel: cancel},
	}
}

func (m Model) Init() tea.Cmd {
	return m.waitForLevels()
}

// waitForLevels blocks on the subscription for the next snapshot.
func (m Model) waitForLevels() tea.Cmd {
	updates := m.shared.updates
	return func() tea.Msg {
		lv, ok := <-updates
		if !ok {
			return stoppedMsg{}
		}
		return levelsMsg(lv)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			m.controller.Quit()
			m.shared.cancel()
			return m, tea.Quit
		case "r", "R":
			m.controller.Reset()
			m.resets++
		}
		return m, nil

	case levelsMsg:
		m.levels = app.Levels(msg)
		return m, m.waitForLevels()

	case stoppedMsg:
		m.stopped = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("pinchctl"))
	b.WriteString(styleHelp.Render(fmt.Sprintf("  %d frames  %.1f fps", m.levels.Frames, m.levels.FPS)))
	b.WriteString("\n\n")
	b.WriteString(RenderChannel("Volume", m.levels.Volume, m.barWidth()))
	b.WriteString("\n")
	b.WriteString(RenderChannel("Brightness", m.levels.Brightness, m.barWidth()))
	b.WriteString("\n\n")

	if m.stopped {
		b.WriteString(styleWarning.Render("control loop stopped"))
	} else {
		b.WriteString(styleHelp.Render("r reset  q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) barWidth() int {
	w := m.width - 30
	if w < 10 {
		return 20
	}
	if w > 50 {
		return 50
	}
	return w
}

// RenderChannel draws one labelled level bar.
func RenderChannel(name string, c app.ChannelLevel, width int) string {
	label := styleLabel.Render(fmt.Sprintf("%-10s", name))
	if !c.Enabled {
		reason := "unavailable"
		if c.Error != "" {
			reason = c.Error
		}
		return label + " " + styleDisabled.Render(reason)
	}

	filled := int(c.Percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := styleBarOn.Render(strings.Repeat("█", filled)) + styleBarOff.Render(strings.Repeat("░", width-filled))
	line := fmt.Sprintf("%s %s %3.0f%%", label, bar, c.Percent)

	if c.Failures > 0 {
		line += " " + styleWarning.Render(fmt.Sprintf("%d failed", c.Failures))
	}
	return line
}
