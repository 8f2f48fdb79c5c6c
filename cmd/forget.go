/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/go-boardlink/internal/registry"
)

// forgetCmd represents the forget command
var forgetCmd = &cobra.Command{
	Use:   "forget <key|path>",
	Short: "Revoke a remembered board",
	Long: `Remove a board from the authorized list so connect asks for a board again.

The board can be given by its key or by the port path it was last seen on.

Examples:
  boardlink forget 239A:80F4:DF625857C74F3B2C
  boardlink forget /dev/ttyACM0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(nil, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		target := args[0]
		for _, d := range a.store.Devices() {
			if !strings.EqualFold(d.Key, target) && d.Path != target {
				continue
			}
			if err := a.registry.Forget(registry.Handle{Key: d.Key, Path: d.Path, Label: d.Label}); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Forgot %s (%s)\n", d.Label, d.Key)
			return
		}

		fmt.Fprintf(os.Stderr, "No authorized board matches %s\n", target)
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}
