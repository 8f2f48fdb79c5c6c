package components

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// MaxMessages bounds the terminal scrollback.
const MaxMessages = 5000

type Terminal struct {
	viewport  viewport.Model
	formatter *DataFormatter
	msgs      []OutputMsg
	limit     int
	follow    bool
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewDataFormatter(DisplayText),
		limit:     MaxMessages,
		follow:    true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

func (t *Terminal) Width() int {
	return t.viewport.Width
}

func (t *Terminal) Height() int {
	return t.viewport.Height
}

func (t *Terminal) Append(msg OutputMsg) {
	t.msgs = append(t.msgs, msg)
	if len(t.msgs) > t.limit {
		t.msgs = t.msgs[len(t.msgs)-t.limit:]
	}
	t.refresh()
}

func (t *Terminal) Messages() []OutputMsg {
	return t.msgs
}

func (t *Terminal) Clear() {
	t.msgs = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.refresh()
}

func (t *Terminal) DisplayMode() DisplayMode {
	return t.formatter.Mode()
}

func (t *Terminal) GotoTop() {
	t.follow = false
	t.viewport.GotoTop()
}

func (t *Terminal) GotoBottom() {
	t.follow = true
	t.viewport.GotoBottom()
}

func (t *Terminal) refresh() {
	t.viewport.SetContent(t.formatter.Format(t.msgs))
	if t.follow {
		t.viewport.GotoBottom()
	}
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Key messages stay with the model so the viewport does not eat its bindings.
	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		var cmd tea.Cmd
		t.viewport, cmd = t.viewport.Update(msg)
		t.follow = t.viewport.AtBottom()
		return t.viewport, cmd
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
