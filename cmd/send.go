/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-boardlink/internal/transport"
	"github.com/allbin/go-boardlink/internal/tui/components"
	"github.com/allbin/go-boardlink/internal/tui/models"
	"github.com/allbin/go-boardlink/internal/tui/styles"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data]",
	Short: "Send a line of text to a board",
	Long: `Send data to a board without waiting for a reply.

Data can be provided as:
- Command line argument: boardlink send "print('hi')"
- From stdin (pipe): echo "import os" | boardlink send
- Interactive mode: boardlink send (prompts for input)

Without --port the single remembered board that is plugged in is used, or you
are asked to pick one.

Example usage:
  boardlink send "print('hi')"
  boardlink send --hex 03            # Ctrl-C, interrupt the running program
  boardlink send --port /dev/ttyACM0 "import board"`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		if len(args) == 1 {
			data = args[0]
		} else {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		}

		portPath, _ := cmd.Flags().GetString("port")
		noNewline, _ := cmd.Flags().GetBool("no-newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		payload := []byte(data)
		if hexMode {
			var err error
			payload, err = components.ParseHex(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
		} else if !noNewline {
			payload = append(payload, components.LineEnding...)
		}

		if err := sendData(portPath, payload, timeout); err != nil {
			if cancelled(err) {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringP("port", "p", "", "Port path to use instead of a remembered board")
	sendCmd.Flags().BoolP("no-newline", "n", false, "Do not end the line with a carriage return")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '03' for Ctrl-C)")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Timeout for opening and sending")
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Mauve)

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(portPath string, data []byte, timeout time.Duration) error {
	infoStyle := lipgloss.NewStyle().Foreground(styles.Mauve).Bold(true)
	successStyle := lipgloss.NewStyle().Foreground(styles.Green).Bold(true)

	a, err := newApp(models.NewProgramChooser(nil, nil), false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	h, err := a.pickDevice(ctx, portPath)
	if err != nil {
		return err
	}

	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), h.Path)
	sess, err := a.openSession(ctx, h, func(transport.Message) {})
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.TrySend(data); err != nil {
		return err
	}
	fmt.Printf("%s Sent %d bytes to %s\n", successStyle.Render("✓"), len(data), h.Label)
	return nil
}
