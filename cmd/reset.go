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

	"github.com/allbin/go-boardlink"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port|--key key>",
	Short: "Reset a hung USB board",
	Long: `Perform a USB-level reset on a board. This can recover boards that are hung
or unresponsive without physically unplugging them.

The board re-enumerates after the reset, which may change its port path.
Use the device key (see 'boardlink list --authorized') to find it reliably.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo boardlink reset /dev/ttyACM0
  sudo boardlink reset --key 239A:80F4:DF625857C74F3B2C`,
	Args: func(cmd *cobra.Command, args []string) error {
		keyFlag, _ := cmd.Flags().GetString("key")
		if keyFlag == "" && len(args) != 1 {
			return errors.New("requires either a port path argument or --key flag")
		}
		if keyFlag != "" && len(args) > 0 {
			return errors.New("cannot specify both port path and --key flag")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !boardlink.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		keyFlag, _ := cmd.Flags().GetString("key")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var err error
		if keyFlag != "" {
			fmt.Printf("Resetting USB device with key: %s\n", keyFlag)
			err = boardlink.ResetUSBDeviceByKey(ctx, keyFlag)
		} else {
			fmt.Printf("Resetting USB device: %s\n", args[0])
			err = boardlink.ResetUSBDevice(ctx, args[0])
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, boardlink.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "This device does not appear to be a USB device")
			}
			os.Exit(1)
		}

		fmt.Println("USB device reset successfully")
		fmt.Println("Device will re-enumerate (port path may change)")
		fmt.Println("\nUse 'boardlink list --table' to see updated device list")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("key", "k", "", "Reset device by its key (VID:PID:SERIAL)")
	resetCmd.Flags().Duration("timeout", 10*time.Second, "Give up if the reset takes longer")
}
