/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-boardlink"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  boardlink info /dev/ttyACM0

For USB devices this shows vendor/product IDs, the serial number and the
device key boardlink remembers the board under.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := boardlink.GetPortInfo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)
		fmt.Printf("  Key:         %s\n", info.Key())

		if !info.IsUSB() {
			return
		}

		fmt.Println("\nUSB Device Information:")
		fields := []struct{ label, value string }{
			{"Vendor ID", info.VendorID},
			{"Product ID", info.ProductID},
			{"Serial", info.SerialNumber},
			{"Interface", info.InterfaceNumber},
			{"Bus", info.BusNumber},
			{"Device", info.DeviceNumber},
			{"Manufacturer", info.Manufacturer},
			{"Product", info.Product},
		}
		for _, f := range fields {
			if f.value != "" {
				fmt.Printf("  %-13s %s\n", f.label+":", f.value)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
