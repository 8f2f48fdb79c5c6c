package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/allbin/go-boardlink/internal/workflow"
)

// ConnectionInfo is the line format shown in the status bar.
type ConnectionInfo struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   boardlink.Parity
}

// NewConnectionInfo describes a port opened with config.
func NewConnectionInfo(config boardlink.Config) ConnectionInfo {
	return ConnectionInfo{
		BaudRate: boardlink.BaudRate,
		DataBits: config.DataBits,
		StopBits: config.StopBits,
		Parity:   config.Parity,
	}
}

func (c ConnectionInfo) String() string {
	return fmt.Sprintf("%d baud %d%s%d", c.BaudRate, c.DataBits, parityToString(c.Parity), c.StopBits)
}

func parityToString(p boardlink.Parity) string {
	switch p {
	case boardlink.ParityEven:
		return "E"
	case boardlink.ParityOdd:
		return "O"
	default:
		return "N"
	}
}

type StatusBar struct {
	width      int
	event      workflow.Event
	device     string
	folder     string
	err        error
	connection ConnectionInfo
}

func NewStatusBar(info ConnectionInfo) *StatusBar {
	return &StatusBar{connection: info}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

// SetEvent records the latest workflow transition. A disconnect trigger is kept as
// the error until the next successful step.
func (sb *StatusBar) SetEvent(ev workflow.Event) {
	sb.event = ev
	switch {
	case ev.Err != nil:
		sb.err = ev.Err
	case ev.State != workflow.Disconnected:
		sb.err = nil
	}
}

func (sb *StatusBar) SetError(err error) {
	sb.err = err
}

func (sb *StatusBar) SetDevice(label string) {
	sb.device = label
}

func (sb *StatusBar) SetFolder(name string) {
	sb.folder = name
}

// Status is the short text for the current phase.
func (sb *StatusBar) Status() string {
	if sb.err != nil {
		return sb.err.Error()
	}
	switch sb.event.Phase {
	case workflow.PhaseSelecting:
		return "selecting device..."
	case workflow.PhaseDeviceChosen:
		return "opening..."
	case workflow.PhasePartial:
		return "identifying..."
	case workflow.PhaseFolderOffered:
		return "folder offered"
	case workflow.PhaseConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Render draws the bottom bar: mode, device and state on the left, identity, folder,
// line format and clock on the right.
func (sb *StatusBar) Render(inputMode, sendingMode string, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(styles.Base).
		Background(styles.Blue).
		Bold(true).
		Padding(0, 1)
	switch inputMode {
	case "INSERT":
		modeStyle = modeStyle.Background(styles.Green)
	case "FOLDER":
		modeStyle = modeStyle.Background(styles.Mauve)
	}
	mode := modeStyle.Render(inputMode)

	device := sb.device
	if device == "" {
		device = "no device"
	}
	port := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(device)

	indicator := "○"
	if sb.event.State == workflow.Connected {
		indicator = "●"
	} else if sb.event.State == workflow.Partial {
		indicator = "◐"
	}
	stateStyle := styles.ForState(sb.event.State)
	if sb.err != nil {
		stateStyle, indicator = styles.StatusDisconnectedStyle, "✗"
	}
	state := stateStyle.Padding(0, 1).Render(indicator + " " + sb.Status())

	divider := lipgloss.NewStyle().
		Foreground(styles.Surface2).
		Padding(0, 1).
		Render("│")

	leftParts := []string{mode, port, state}
	if inputMode == "INSERT" {
		leftParts = append(leftParts, lipgloss.NewStyle().
			Foreground(styles.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	leftParts = append(leftParts, divider)
	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, leftParts...)

	detailStyle := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1)
	var rightParts []string
	if sb.event.Identity != "" {
		rightParts = append(rightParts, detailStyle.Render("uid "+sb.event.Identity), divider)
	}
	if sb.folder != "" {
		rightParts = append(rightParts, detailStyle.Render("📁 "+sb.folder), divider)
	}
	rightParts = append(rightParts,
		detailStyle.Render("⚡ "+sb.connection.String()),
		divider,
		lipgloss.NewStyle().Foreground(styles.Subtext1).Padding(0, 1).Render(timestamp),
	)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, rightParts...)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
