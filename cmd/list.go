/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/registry"
	"github.com/allbin/go-boardlink/internal/tui/components"
	"github.com/allbin/go-boardlink/internal/tui/styles"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached serial ports and authorized boards",
	Long: `List the serial ports attached to this host.

With --authorized, list the boards you have picked before instead, with
whether each one is currently attached (readable) and free to open (writable).

Examples:
  boardlink list
  boardlink list --filter usb --table
  boardlink list --authorized`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		authorized, _ := cmd.Flags().GetBool("authorized")

		if authorized {
			if err := listAuthorized(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
				os.Exit(1)
			}
			return
		}

		ports, err := registry.ListAttached()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			fmt.Printf("Found %d serial port(s):\n\n", len(filtered))
			fmt.Println(components.PortTable(filtered).View())
			return
		}
		for _, p := range filtered {
			fmt.Println(p.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().BoolP("authorized", "a", false, "List authorized boards instead of attached ports")
}

// filterPorts keeps the ports of the given type
func filterPorts(ports []boardlink.PortInfo, filterType string) []boardlink.PortInfo {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []boardlink.PortInfo
	for _, port := range ports {
		if portType(port) == strings.ToLower(filterType) {
			filtered = append(filtered, port)
		}
	}
	return filtered
}

// portType classifies a port as usb, standard or arm
func portType(info boardlink.PortInfo) string {
	name := strings.ToLower(info.Name)
	switch {
	case info.IsUSB(),
		strings.HasPrefix(name, "ttyusb"),
		strings.HasPrefix(name, "ttyacm"),
		strings.Contains(name, "usbmodem"),
		strings.Contains(name, "usbserial"):
		return "usb"
	case strings.HasPrefix(name, "ttyama"):
		return "arm"
	default:
		return "standard"
	}
}

func listAuthorized(ctx context.Context) error {
	a, err := newApp(nil, false)
	if err != nil {
		return err
	}
	defer a.Close()

	handles, err := a.registry.Authorized(ctx)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		fmt.Println("No authorized boards. Run 'boardlink connect' to pick one.")
		return nil
	}
	fmt.Println(authorizedTable(handles).View())
	return nil
}

func authorizedTable(handles []registry.Handle) table.Model {
	yes := lipgloss.NewStyle().Foreground(styles.Green).Render("yes")
	no := lipgloss.NewStyle().Foreground(styles.Red).Render("no")
	flag := func(b bool) string {
		if b {
			return yes
		}
		return no
	}

	rows := make([]table.Row, len(handles))
	for i, h := range handles {
		rows[i] = table.NewRow(table.RowData{
			"key":      h.Key,
			"label":    h.Label,
			"path":     h.Path,
			"readable": flag(h.Readable),
			"writable": flag(h.Writable),
		})
	}

	return table.New([]table.Column{
		table.NewColumn("key", "Key", 36),
		table.NewColumn("label", "Board", 28),
		table.NewColumn("path", "Last path", 16),
		table.NewColumn("readable", "Attached", 9),
		table.NewColumn("writable", "Free", 6),
	}).WithRows(rows).BorderRounded()
}
