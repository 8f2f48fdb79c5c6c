package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-boardlink/internal/workflow"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(Green).
				Bold(true)

	StatusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(Red).
				Bold(true)

	// Partial: a session is open but the connect steps are not finished.
	StatusPartialStyle = lipgloss.NewStyle().
				Foreground(Yellow).
				Bold(true)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Surface2).
			Padding(0, 1)

	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Mauve).
			Padding(1, 2)

	ButtonEnabledStyle = lipgloss.NewStyle().
				Foreground(Base).
				Background(Blue).
				Bold(true).
				Padding(0, 1)

	ButtonDisabledStyle = lipgloss.NewStyle().
				Foreground(Overlay0).
				Background(Surface0).
				Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red)

	InfoStyle = lipgloss.NewStyle().
			Foreground(Subtext0)
)

// ForState returns the indicator style of a connection state.
func ForState(s workflow.State) lipgloss.Style {
	switch s {
	case workflow.Connected:
		return StatusConnectedStyle
	case workflow.Partial:
		return StatusPartialStyle
	default:
		return StatusDisconnectedStyle
	}
}

// Button renders a dialog action label.
func Button(label string, enabled bool) string {
	if enabled {
		return ButtonEnabledStyle.Render(label)
	}
	return ButtonDisabledStyle.Render(label)
}
