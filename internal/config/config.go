// Package config loads boardlink settings through viper.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/allbin/go-boardlink/internal/state"
)

// EnvPrefix is the prefix for environment overrides, e.g. BOARDLINK_DEBUG.
const EnvPrefix = "BOARDLINK"

// Keys
const (
	KeyStateFile           = "state-file"
	KeyLogFile             = "log-file"
	KeyDebug               = "debug"
	KeyProbeTimeout        = "probe-timeout"
	KeyAutoReconnect       = "auto-reconnect"
	KeyAutoUseFolder       = "auto-use-folder"
	KeyReconnectMaxElapsed = "reconnect-max-elapsed"
)

// Config holds the settings shared by all commands.
type Config struct {
	StateFile           string        `mapstructure:"state-file"`
	LogFile             string        `mapstructure:"log-file"`
	Debug               bool          `mapstructure:"debug"`
	ProbeTimeout        time.Duration `mapstructure:"probe-timeout"`
	AutoReconnect       bool          `mapstructure:"auto-reconnect"`
	AutoUseFolder       bool          `mapstructure:"auto-use-folder"`
	ReconnectMaxElapsed time.Duration `mapstructure:"reconnect-max-elapsed"`
}

// Dir returns the boardlink config directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "boardlink")
}

// SetDefaults registers defaults and environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStateFile, state.DefaultPath())
	v.SetDefault(KeyLogFile, filepath.Join(Dir(), "boardlink.log"))
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyProbeTimeout, 5*time.Second)
	v.SetDefault(KeyAutoReconnect, true)
	v.SetDefault(KeyAutoUseFolder, true)
	v.SetDefault(KeyReconnectMaxElapsed, 30*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// ReadFile reads the config file if one exists. An explicit path must exist.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		return v.ReadInConfig()
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ProbeTimeout <= 0 {
		return errors.New("probe-timeout must be positive")
	}
	if c.ReconnectMaxElapsed < 0 {
		return errors.New("reconnect-max-elapsed must not be negative")
	}
	if c.StateFile == "" {
		return errors.New("state-file must be set")
	}
	return nil
}
