package components

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/tui/keys"
	"github.com/allbin/go-boardlink/internal/tui/styles"
)

const (
	columnIndex  = "index"
	columnPort   = "port"
	columnDevice = "device"
	columnUSB    = "usb"
	columnSerial = "serial"
)

// ChosenMsg ends a chooser. OK is false when the user cancelled.
type ChosenMsg struct {
	Port boardlink.PortInfo
	OK   bool
}

// Chooser is a table of attached ports the user picks one device from.
type Chooser struct {
	table table.Model
	ports []boardlink.PortInfo
	keys  keys.ChooserKeys
	help  help.Model
	done  bool
}

func NewChooser(ports []boardlink.PortInfo) *Chooser {
	return &Chooser{
		table: PortTable(ports).
			Focused(true).
			WithPageSize(10).
			HighlightStyle(lipgloss.NewStyle().Foreground(styles.Base).Background(styles.Mauve)),
		ports: ports,
		keys:  keys.NewChooserKeys(),
		help:  help.New(),
	}
}

// PortTable lays ports out as a bubble-table model, one row per port.
func PortTable(ports []boardlink.PortInfo) table.Model {
	columns := []table.Column{
		table.NewColumn(columnPort, "Port", 18),
		table.NewColumn(columnDevice, "Device", 30),
		table.NewColumn(columnUSB, "VID:PID", 11),
		table.NewColumn(columnSerial, "Serial", 26),
	}

	rows := make([]table.Row, len(ports))
	for i, p := range ports {
		usb := ""
		if p.IsUSB() {
			usb = p.VendorID + ":" + p.ProductID
		}
		rows[i] = table.NewRow(table.RowData{
			columnIndex:  i,
			columnPort:   p.Path,
			columnDevice: p.Label(),
			columnUSB:    usb,
			columnSerial: p.SerialNumber,
		})
	}

	return table.New(columns).
		WithRows(rows).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().Foreground(styles.Text).BorderForeground(styles.Surface2))
}

func (c *Chooser) Done() bool {
	return c.done
}

func (c *Chooser) Update(msg tea.Msg) (*Chooser, tea.Cmd) {
	if c.done {
		return c, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, c.keys.Cancel):
			c.done = true
			return c, func() tea.Msg { return ChosenMsg{} }
		case key.Matches(msg, c.keys.Select):
			port, ok := c.highlighted()
			if !ok {
				return c, nil
			}
			c.done = true
			return c, func() tea.Msg { return ChosenMsg{Port: port, OK: true} }
		}
	}

	var cmd tea.Cmd
	c.table, cmd = c.table.Update(msg)
	return c, cmd
}

func (c *Chooser) highlighted() (boardlink.PortInfo, bool) {
	if len(c.ports) == 0 {
		return boardlink.PortInfo{}, false
	}
	i, ok := c.table.HighlightedRow().Data[columnIndex].(int)
	if !ok || i < 0 || i >= len(c.ports) {
		return boardlink.PortInfo{}, false
	}
	return c.ports[i], true
}

func (c *Chooser) View() string {
	title := styles.TitleStyle.Render("Select a board")
	body := c.table.View()
	if len(c.ports) == 0 {
		body = styles.InfoStyle.Render("No serial devices attached.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, "", body, c.help.View(c.keys))
}
