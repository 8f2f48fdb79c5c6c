package models

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/registry"
	"github.com/allbin/go-boardlink/internal/tui/components"
)

// ProgramChooser runs the device chooser as its own program, for commands that do
// not otherwise own the terminal.
type ProgramChooser struct {
	options []tea.ProgramOption
}

var _ registry.Chooser = (*ProgramChooser)(nil)

// NewProgramChooser uses stdin and stdout unless in and out are set.
func NewProgramChooser(in io.Reader, out io.Writer) *ProgramChooser {
	var opts []tea.ProgramOption
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	return &ProgramChooser{options: opts}
}

type chooserProgram struct {
	chooser *components.Chooser
	result  components.ChosenMsg
}

func (m *chooserProgram) Init() tea.Cmd {
	return nil
}

func (m *chooserProgram) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if chosen, ok := msg.(components.ChosenMsg); ok {
		m.result = chosen
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.chooser, cmd = m.chooser.Update(msg)
	return m, cmd
}

func (m *chooserProgram) View() string {
	if m.chooser.Done() {
		return ""
	}
	return m.chooser.View() + "\n"
}

// Choose implements registry.Chooser.
func (c *ProgramChooser) Choose(ctx context.Context, ports []boardlink.PortInfo) (boardlink.PortInfo, error) {
	m := &chooserProgram{chooser: components.NewChooser(ports)}
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, c.options...)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		if ctx.Err() != nil {
			return boardlink.PortInfo{}, ctx.Err()
		}
		return boardlink.PortInfo{}, err
	}
	if !m.result.OK {
		return boardlink.PortInfo{}, boardlink.ErrSelectionCancelled
	}
	return m.result.Port, nil
}
