/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/go-boardlink/internal/config"
	"github.com/allbin/go-boardlink/internal/state"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "boardlink",
	Short: "Talk to CircuitPython boards over USB serial",
	Long: `boardlink finds CircuitPython boards on USB serial ports, remembers the ones
you have picked, and connects to them with a terminal for the REPL.

Each board is identified by its hardware UID so a host folder bound to it is
found again on the next connect, whatever tty it enumerates as.

Configuration is read from $XDG_CONFIG_HOME/boardlink/config.yaml and
BOARDLINK_* environment variables; flags take precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(v, cfgFile); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		c, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = c
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(v)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/boardlink/config.yaml)")
	flags.String(config.KeyStateFile, state.DefaultPath(), "file holding authorized devices and bound folders")
	flags.String(config.KeyLogFile, v.GetString(config.KeyLogFile), "log file used while the TUI owns the terminal")
	flags.Bool(config.KeyDebug, false, "enable debug logging")
	flags.Duration(config.KeyProbeTimeout, v.GetDuration(config.KeyProbeTimeout), "timeout for the board identity probe")

	for _, key := range []string{config.KeyStateFile, config.KeyLogFile, config.KeyDebug, config.KeyProbeTimeout} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}
}
