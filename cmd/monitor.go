/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-boardlink/internal/transport"
	"github.com/allbin/go-boardlink/internal/tui/components"
	"github.com/allbin/go-boardlink/internal/tui/models"
)

var (
	monitorPort    string
	monitorTimeout time.Duration
	monitorRaw     bool
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream board output to stdout",
	Long: `Stream everything the board prints until it is unplugged or Ctrl+C is pressed.

Terminal escapes and carriage returns are stripped unless --raw is given.

Examples:
  boardlink monitor
  boardlink monitor --port /dev/ttyACM0 --timeout 30s
  boardlink monitor --raw > boot.log`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMonitor(); err != nil {
			if cancelled(err) {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVarP(&monitorPort, "port", "p", "", "Port path to use instead of a remembered board")
	monitorCmd.Flags().DurationVarP(&monitorTimeout, "timeout", "t", 0, "Stop after this long (0 = until interrupted)")
	monitorCmd.Flags().BoolVar(&monitorRaw, "raw", false, "Print output unfiltered")
}

func runMonitor() error {
	a, err := newApp(models.NewProgramChooser(nil, nil), false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if monitorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, monitorTimeout)
		defer cancel()
	}

	h, err := a.pickDevice(ctx, monitorPort)
	if err != nil {
		return err
	}

	clean := components.NewStripper()
	sess, err := a.openSession(ctx, h, func(msg transport.Message) {
		text := msg.Text
		if !monitorRaw {
			text = clean.Write(text)
		}
		fmt.Print(text)
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	fmt.Fprintf(os.Stderr, "Monitoring %s (%s). Press Ctrl+C to stop.\n", h.Label, h.Path)
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "\nStopped")
		return nil
	case <-sess.Done():
		if err := sess.Err(); err != nil {
			return fmt.Errorf("board went away: %w", err)
		}
		return nil
	}
}
