package components

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-boardlink/internal/tui/styles"
)

type SendingMode int

const (
	SendingModeText SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	switch s {
	case SendingModeHex:
		return "HEX"
	default:
		return "TEXT"
	}
}

// LineEnding terminates lines typed in text mode; the REPL expects a carriage return.
const LineEnding = "\r"

const historySize = 100

const (
	textPlaceholder   = "Type a line for the board and press Enter..."
	hexPlaceholder    = "Enter hex (e.g. 03 or 0D0A)..."
	folderPlaceholder = "Path of the host folder to bind..."
)

type Input struct {
	textInput     textinput.Model
	sendingMode   SendingMode
	history       []string
	historyIndex  int
	currentInput  string // stashed while browsing history
	terminalWidth int
}

func NewInput() *Input {
	ti := textinput.New()
	ti.Placeholder = textPlaceholder
	ti.CharLimit = 512
	ti.Prompt = ""

	return &Input{
		textInput:    ti,
		sendingMode:  SendingModeText,
		historyIndex: -1,
	}
}

func (i *Input) SetWidth(width int) {
	i.terminalWidth = width
	// border(2) + padding(2) + prompt(1) + space(1)
	usableWidth := width - 6
	if usableWidth < 20 {
		usableWidth = 20
	}
	i.textInput.Width = usableWidth
}

func (i *Input) Focus() {
	i.textInput.Focus()
}

func (i *Input) Blur() {
	i.textInput.Blur()
}

func (i *Input) Value() string {
	return i.textInput.Value()
}

func (i *Input) SetValue(value string) {
	i.textInput.SetValue(value)
}

// SetFolderMode switches the placeholder between sending and folder entry.
func (i *Input) SetFolderMode(enabled bool) {
	switch {
	case enabled:
		i.textInput.Placeholder = folderPlaceholder
	case i.sendingMode == SendingModeHex:
		i.textInput.Placeholder = hexPlaceholder
	default:
		i.textInput.Placeholder = textPlaceholder
	}
}

func (i *Input) ToggleSendingMode() {
	switch i.sendingMode {
	case SendingModeText:
		i.sendingMode = SendingModeHex
		i.textInput.Placeholder = hexPlaceholder
	case SendingModeHex:
		i.sendingMode = SendingModeText
		i.textInput.Placeholder = textPlaceholder
	}
}

func (i *Input) GetSendingMode() SendingMode {
	return i.sendingMode
}

// Payload converts the current value to the bytes to send.
func (i *Input) Payload() ([]byte, error) {
	value := i.textInput.Value()
	if i.sendingMode == SendingModeHex {
		return ParseHex(value)
	}
	return []byte(value + LineEnding), nil
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

func (i *Input) ViewWithMode(inputMode string, active bool) string {
	var promptSymbol string
	promptStyle := lipgloss.NewStyle().Bold(true)
	switch {
	case inputMode == "FOLDER":
		promptSymbol = "@"
		promptStyle = promptStyle.Foreground(styles.Mauve)
	case i.sendingMode == SendingModeHex:
		promptSymbol = "#"
		promptStyle = promptStyle.Foreground(styles.Yellow)
	default:
		promptSymbol = ">"
		promptStyle = promptStyle.Foreground(styles.Green)
	}
	styledPrompt := promptStyle.Render(promptSymbol)

	var inputContent string
	if active {
		inputContent = lipgloss.JoinHorizontal(lipgloss.Left, styledPrompt, " ", i.textInput.View())
	} else {
		instruction := lipgloss.NewStyle().
			Foreground(styles.Overlay0).
			Render("Press 'i' to type to the board")
		inputContent = lipgloss.JoinHorizontal(lipgloss.Left, styledPrompt, " ", instruction)
	}

	// RoundedBorder and horizontal padding take four columns.
	adjustedWidth := i.terminalWidth - 4
	if adjustedWidth < 10 {
		adjustedWidth = 10
	}

	inputStyle := styles.InputStyle.
		Width(adjustedWidth).
		AlignHorizontal(lipgloss.Left)
	if active {
		inputStyle = inputStyle.BorderForeground(promptStyle.GetForeground())
	}

	return inputStyle.Render(inputContent)
}

// AddToHistory records a non-empty entry unless it repeats the last one.
func (i *Input) AddToHistory(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}

	if len(i.history) == 0 || i.history[len(i.history)-1] != entry {
		i.history = append(i.history, entry)
		if len(i.history) > historySize {
			i.history = i.history[1:]
		}
	}

	i.historyIndex = -1
	i.currentInput = ""
}

func (i *Input) NavigateHistoryUp() {
	if len(i.history) == 0 {
		return
	}

	if i.historyIndex == -1 {
		i.currentInput = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}

	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) NavigateHistoryDown() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
		return
	}

	i.historyIndex = -1
	i.textInput.SetValue(i.currentInput)
	i.currentInput = ""
}

// ParseHex converts "48656C6C6F", "48 65 6C 6C 6F" or "0x48 0x65" to bytes.
func ParseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return nil, errors.New("empty input")
	}
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(clean))
	}

	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		b, err := strconv.ParseUint(clean[i:i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s'", clean[i:i+2])
		}
		out = append(out, byte(b))
	}
	return out, nil
}
