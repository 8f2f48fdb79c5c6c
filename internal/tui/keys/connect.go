package keys

import "github.com/charmbracelet/bubbles/key"

// ConnectKeys drives the connect dialog plus the terminal and input.
type ConnectKeys struct {
	TerminalKeys
	RequestDevice  key.Binding
	SelectFolder   key.Binding
	UseFolder      key.Binding
	Disconnect     key.Binding
	Enter          key.Binding
	ToggleSendMode key.Binding
	Interrupt      key.Binding
	Up             key.Binding
	Down           key.Binding
}

func NewConnectKeys() ConnectKeys {
	return ConnectKeys{
		TerminalKeys: NewTerminalKeys(),
		RequestDevice: key.NewBinding(
			key.WithKeys("r", "c"),
			key.WithHelp("r/c", "connect"),
		),
		SelectFolder: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "select folder"),
		),
		UseFolder: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "use folder"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send line"),
		),
		ToggleSendMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle send mode"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "send ctrl-c to board"),
		),
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "history up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "history down"),
		),
	}
}

func (k ConnectKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.RequestDevice, k.InsertMode, k.Disconnect, k.Quit}
}

func (k ConnectKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.RequestDevice, k.SelectFolder, k.UseFolder, k.Disconnect},
		{k.InsertMode, k.Escape, k.Enter, k.ToggleSendMode, k.Interrupt},
		{k.Clear, k.ToggleHex, k.GotoTop, k.GotoBottom},
		{k.Help, k.Quit},
	}
}

// ChooserKeys drive the device chooser.
type ChooserKeys struct {
	Select key.Binding
	Cancel key.Binding
}

func NewChooserKeys() ChooserKeys {
	return ChooserKeys{
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func (k ChooserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Cancel}
}

func (k ChooserKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Select, k.Cancel}}
}
