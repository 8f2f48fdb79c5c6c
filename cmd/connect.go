/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/config"
	"github.com/allbin/go-boardlink/internal/reconnect"
	"github.com/allbin/go-boardlink/internal/registry"
	"github.com/allbin/go-boardlink/internal/tui/components"
	"github.com/allbin/go-boardlink/internal/tui/keys"
	"github.com/allbin/go-boardlink/internal/tui/models"
	"github.com/allbin/go-boardlink/internal/tui/styles"
	"github.com/allbin/go-boardlink/internal/workflow"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect to a board with the interactive dialog and REPL terminal",
	Long: `Open the connect dialog and, once a board is connected, a terminal for its REPL.

The dialog walks through two steps:
  1. Request device: reuses the one remembered board that is plugged in, or
     asks you to pick one and remembers it.
  2. Select folder: binds a host folder to the board's UID. A folder bound on a
     previous connect is offered again automatically.

If the board is unplugged while connected, boardlink waits for it to come back
and reconnects without asking.

Example usage:
  boardlink connect
  boardlink connect --auto-reconnect=false`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runConnectTUI(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().Bool(config.KeyAutoReconnect, true, "reconnect after the board drops off the bus")
	connectCmd.Flags().Bool(config.KeyAutoUseFolder, true, "complete the connection with a remembered folder without asking")
	connectCmd.Flags().Duration(config.KeyReconnectMaxElapsed, 30*time.Second, "give up reconnecting after this long")
	for _, k := range []string{config.KeyAutoReconnect, config.KeyAutoUseFolder, config.KeyReconnectMaxElapsed} {
		if err := v.BindPFlag(k, connectCmd.Flags().Lookup(k)); err != nil {
			panic(err)
		}
	}
}

// opDoneMsg reports the end of a workflow operation started from a key press.
type opDoneMsg struct {
	op  string
	err error
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.SessionModel
	ctx      context.Context
	logger   *zap.SugaredLogger
	workflow *workflow.Workflow
	bridge   *models.Bridge

	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	steps     components.Steps
	chooser   *components.Chooser
	choose    *models.ChooseMsg
	help      help.Model
	keys      keys.ConnectKeys

	width, height int
}

func runConnectTUI() error {
	bridge := models.NewBridge()
	a, err := newApp(bridge, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := a.workflow(true)
	w.Observe(bridge.Observe)
	w.Subscribe(bridge.Output)

	var manager *reconnect.Manager
	if a.cfg.AutoReconnect {
		hotplug, err := registry.Watch(ctx, boardlink.DeviceDir(), registry.DefaultSettle, a.logger)
		if err != nil {
			a.logger.Warnw("hotplug watch unavailable, reconnect will poll", "error", err)
		}
		manager = reconnect.New(w, a.logger,
			reconnect.WithHotplug(hotplug),
			reconnect.WithMaxElapsed(a.cfg.ReconnectMaxElapsed),
		)
		w.Observe(manager.Handle)
	}

	portConfig := boardlink.DefaultConfig()
	m := &connectModel{
		SessionModel: models.NewSessionModel(),
		ctx:          ctx,
		logger:       a.logger.Named("tui"),
		workflow:     w,
		bridge:       bridge,
		terminal:     components.NewTerminal(0, 0),
		statusBar:    components.NewStatusBar(components.NewConnectionInfo(portConfig)),
		input:        components.NewInput(),
		help:         help.New(),
		keys:         keys.NewConnectKeys(),
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	bridge.Attach(p)
	_ = m.showConnect()

	_, runErr := p.Run()

	cancel()
	w.CloseView()
	if manager != nil {
		manager.Stop()
	}
	if err := w.Disconnect(context.Background()); err != nil {
		a.logger.Warnw("disconnect failed", "error", err)
	}
	return runErr
}

// showConnect reopens the dialog, as the workflow drops its view once connected.
func (m *connectModel) showConnect() error {
	m.bridge.Reset()
	m.SetDialogOpen(true)
	err := m.workflow.ShowConnect(m.bridge)
	if err != nil {
		m.logger.Warnw("serial unavailable", "error", err)
	}
	m.steps.Err = err
	return err
}

func (m *connectModel) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m *connectModel) Init() tea.Cmd {
	// A single remembered board connects on start; anything else waits for the user.
	return m.run("autoconnect", func(ctx context.Context) error {
		err := m.workflow.AutoConnect(ctx)
		if errors.Is(err, workflow.ErrNoCandidate) || errors.Is(err, boardlink.ErrPlatformUnavailable) {
			return nil
		}
		return err
	})
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.SetReady(true)

	case models.RefreshMsg:
		m.applyBatch(m.bridge.Drain())

	case models.ChooseMsg:
		m.chooser = components.NewChooser(msg.Ports)
		m.choose = &msg

	case components.ChosenMsg:
		if m.choose != nil {
			m.choose.Reply(msg)
		}
		m.chooser, m.choose = nil, nil

	case opDoneMsg:
		m.steps.Err = nil
		if msg.err != nil && !cancelled(msg.err) {
			m.logger.Infow("operation failed", "op", msg.op, "error", msg.err)
			m.steps.Err = msg.err
			m.statusBar.SetError(msg.err)
		}

	case tea.KeyMsg:
		if m.chooser != nil {
			var cmd tea.Cmd
			m.chooser, cmd = m.chooser.Update(msg)
			return m, cmd
		}
		if key.Matches(msg, m.keys.Interrupt) {
			m.workflow.Send([]byte{0x03})
			return m, nil
		}
		if m.InputActive() {
			return m, m.updateInput(msg)
		}
		if cmd, quit := m.updateNormal(msg); quit {
			return m, tea.Quit
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	if m.chooser != nil {
		if _, isKey := msg.(tea.KeyMsg); !isKey {
			var cmd tea.Cmd
			m.chooser, cmd = m.chooser.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	switch msg.(type) {
	case tea.WindowSizeMsg, tea.MouseMsg:
		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *connectModel) resize() {
	// top border (1) + input (3 with border) + status bar (1)
	contentHeight := m.height - 5
	if m.help.ShowAll {
		contentHeight -= lipgloss.Height(m.help.View(m.keys))
	}
	if contentHeight < 1 {
		contentHeight = 1
	}
	m.terminal.SetSize(m.width, contentHeight)
	m.input.SetWidth(m.width)
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
}

func (m *connectModel) applyBatch(batch models.Batch) {
	m.SetDialogOpen(batch.View.Open)
	m.steps.Available = batch.View.Available
	m.steps.Buttons = batch.View.Buttons
	m.steps.Folder = batch.View.Folder

	for _, ev := range batch.Events {
		m.statusBar.SetEvent(ev)
		if ev.State == workflow.Disconnected && m.GetInputMode() != models.InputModeNormal {
			m.leaveInput()
		}
		if ev.Reconnect {
			m.terminal.Append(components.OutputMsg{Time: time.Now(), Text: "\n[board disconnected, waiting for it to return]\n"})
		}
	}
	if h, ok := m.workflow.Device(); ok {
		m.statusBar.SetDevice(h.Label)
	} else {
		m.statusBar.SetDevice("")
	}
	m.statusBar.SetFolder(m.workflow.WorkingFolder())

	for _, out := range batch.Output {
		m.terminal.Append(components.OutputMsg{Time: out.Time, Data: out.Data, Text: out.Text})
	}
}

func (m *connectModel) leaveInput() {
	m.SetInputMode(models.InputModeNormal)
	m.input.SetFolderMode(false)
	m.input.Blur()
}

// updateNormal handles keys outside the input line. quit ends the program.
func (m *connectModel) updateNormal(msg tea.KeyMsg) (cmd tea.Cmd, quit bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return nil, true

	case key.Matches(msg, m.keys.RequestDevice):
		if m.workflow.State() != workflow.Disconnected {
			return nil, false
		}
		if !m.DialogOpen() && m.showConnect() != nil {
			return nil, false
		}
		return m.run("connect", m.workflow.Connect), false

	case key.Matches(msg, m.keys.SelectFolder):
		if m.workflow.Step() < 2 {
			return nil, false
		}
		m.SetInputMode(models.InputModeFolder)
		m.input.SetFolderMode(true)
		m.input.SetValue("")
		m.input.Focus()

	case key.Matches(msg, m.keys.UseFolder):
		if m.steps.Folder == "" {
			return nil, false
		}
		return m.run("use folder", m.workflow.UseFolder), false

	case key.Matches(msg, m.keys.Disconnect):
		return m.run("disconnect", m.workflow.Disconnect), false

	case key.Matches(msg, m.keys.InsertMode):
		if m.workflow.State() == workflow.Disconnected {
			return nil, false
		}
		m.SetInputMode(models.InputModeInsert)
		m.input.Focus()

	case key.Matches(msg, m.keys.Clear):
		m.terminal.Clear()

	case key.Matches(msg, m.keys.ToggleHex):
		m.terminal.ToggleHex()

	case key.Matches(msg, m.keys.GotoTop):
		m.terminal.GotoTop()

	case key.Matches(msg, m.keys.GotoBottom):
		m.terminal.GotoBottom()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	}
	return nil, false
}

func (m *connectModel) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.leaveInput()
		return nil

	case key.Matches(msg, m.keys.Enter):
		if m.GetInputMode() == models.InputModeFolder {
			path := m.input.Value()
			m.leaveInput()
			m.input.SetValue("")
			return m.run("select folder", func(ctx context.Context) error {
				return m.workflow.SelectFolder(ctx, path)
			})
		}
		return m.sendInput()

	case key.Matches(msg, m.keys.Up):
		m.input.NavigateHistoryUp()
		return nil

	case key.Matches(msg, m.keys.Down):
		m.input.NavigateHistoryDown()
		return nil

	case key.Matches(msg, m.keys.ToggleSendMode):
		if m.GetInputMode() == models.InputModeInsert {
			m.input.ToggleSendingMode()
		}
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *connectModel) sendInput() tea.Cmd {
	value := m.input.Value()
	payload, err := m.input.Payload()
	if err != nil {
		m.statusBar.SetError(fmt.Errorf("invalid hex input: %w", err))
		return nil
	}

	m.terminal.Append(components.OutputMsg{Time: time.Now(), Data: payload, Text: string(payload), IsTX: true})
	m.input.AddToHistory(value)
	m.input.SetValue("")

	w := m.workflow
	return func() tea.Msg {
		w.Send(payload)
		return nil
	}
}

func (m *connectModel) View() string {
	if !m.IsReady() {
		return "Initializing..."
	}

	var content string
	switch {
	case m.chooser != nil:
		content = lipgloss.Place(m.width, m.terminal.Height(), lipgloss.Center, lipgloss.Center, m.chooser.View())
	case m.DialogOpen():
		content = lipgloss.Place(m.width, m.terminal.Height(), lipgloss.Center, lipgloss.Center, m.steps.View())
	default:
		content = m.terminal.View()
	}

	inputMode := m.GetInputMode()
	input := m.input.ViewWithMode(inputMode.String(), inputMode != models.InputModeNormal)
	statusBar := m.statusBar.Render(inputMode.String(), m.input.GetSendingMode().String(), time.Now().Format("15:04:05"))

	parts := []string{styles.ContentBorderStyle.Render(content), input, statusBar}
	if m.help.ShowAll {
		parts = append(parts, m.help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
