package console

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#00CC88")
	colorDim     = lipgloss.Color("#555555")
	colorWarning = lipgloss.Color("#FFAA00")
)

var (
	styleTitle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	styleLabel = lipgloss.NewStyle().
			Bold(true)

	styleBarOn = lipgloss.NewStyle().
			Foreground(colorAccent)

	styleBarOff = lipgloss.NewStyle().
			Foreground(colorDim)

	styleDisabled = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorWarning)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorDim)
)
