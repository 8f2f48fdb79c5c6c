package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.viam.com/test"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	c, err := Load(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.ProbeTimeout, test.ShouldEqual, 5*time.Second)
	test.That(t, c.AutoReconnect, test.ShouldBeTrue)
	test.That(t, c.AutoUseFolder, test.ShouldBeTrue)
	test.That(t, c.ReconnectMaxElapsed, test.ShouldEqual, 30*time.Second)
	test.That(t, c.StateFile, test.ShouldNotBeEmpty)
	test.That(t, c.Debug, test.ShouldBeFalse)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "probe-timeout: 2s\nauto-use-folder: false\nstate-file: /tmp/state.yaml\n"
	test.That(t, os.WriteFile(path, []byte(content), 0o644), test.ShouldBeNil)
	t.Setenv("BOARDLINK_DEBUG", "true")

	v := viper.New()
	SetDefaults(v)
	test.That(t, ReadFile(v, path), test.ShouldBeNil)

	c, err := Load(v)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.ProbeTimeout, test.ShouldEqual, 2*time.Second)
	test.That(t, c.AutoUseFolder, test.ShouldBeFalse)
	test.That(t, c.StateFile, test.ShouldEqual, "/tmp/state.yaml")
	test.That(t, c.Debug, test.ShouldBeTrue)
}

func TestReadFileMissingExplicitPath(t *testing.T) {
	v := viper.New()
	err := ReadFile(v, filepath.Join(t.TempDir(), "nope.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyProbeTimeout, 0)

	_, err := Load(v)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "probe-timeout")

	v.Set(KeyProbeTimeout, time.Second)
	v.Set(KeyReconnectMaxElapsed, -time.Second)
	_, err = Load(v)
	test.That(t, err, test.ShouldNotBeNil)
}
