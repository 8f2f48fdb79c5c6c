package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/allbin/go-boardlink/internal/workflow"
)

// Steps renders the connect dialog: either the availability notice or the two
// connect steps with their buttons.
type Steps struct {
	Available bool
	Buttons   workflow.Buttons
	Folder    string
	Err       error
}

func (s Steps) View() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Connect to a board"))
	b.WriteString("\n\n")

	if !s.Available {
		b.WriteString(styles.ErrorStyle.Render("Serial ports are not available on this host."))
		b.WriteString("\n")
		b.WriteString(styles.InfoStyle.Render("Check that /dev is readable and you are in the dialout group."))
		return styles.DialogStyle.Render(b.String())
	}

	b.WriteString("1. Pick the board to talk to\n   ")
	b.WriteString(styles.Button("r  Request device", s.Buttons.Request))
	b.WriteString("\n\n2. Bind a host folder for its files\n   ")
	b.WriteString(styles.Button("f  Select folder", s.Buttons.Select))

	if s.Folder != "" {
		b.WriteString("\n\n   ")
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Green).Render("📁 " + s.Folder))
		b.WriteString("  ")
		b.WriteString(styles.Button("u  Use folder", true))
	}

	if s.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(styles.ErrorStyle.Render(s.Err.Error()))
	}
	return styles.DialogStyle.Render(b.String())
}
