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

	"github.com/spf13/cobra"

	"github.com/allbin/go-boardlink/internal/tui/models"
)

// uidCmd represents the uid command
var uidCmd = &cobra.Command{
	Use:   "uid",
	Short: "Print the hardware UID of a board",
	Long: `Connect to a board, ask it for its hardware UID and print it.

The board's running program is interrupted to enter the raw REPL.

Examples:
  boardlink uid
  boardlink uid --timeout 20s`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		uid, err := probeUID(timeout)
		if err != nil {
			if cancelled(err) {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(uid)
	},
}

func init() {
	rootCmd.AddCommand(uidCmd)

	uidCmd.Flags().DurationP("timeout", "t", 30*time.Second, "Give up after this long, including device selection")
}

func probeUID(timeout time.Duration) (string, error) {
	a, err := newApp(models.NewProgramChooser(nil, nil), false)
	if err != nil {
		return "", err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	w := a.workflow(false)
	if err := w.Connect(ctx); err != nil {
		return "", err
	}
	defer w.Disconnect(context.Background())

	uid := w.Identity()
	if uid == "" {
		return "", errors.New("board did not report a UID")
	}
	return uid, nil
}
