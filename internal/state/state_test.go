package state

import (
	"testing"

	"github.com/spf13/afero"
	"go.viam.com/test"
)

const statePath = "/home/user/.config/boardlink/state.yaml"

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(afero.NewMemMapFs(), statePath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Devices(), test.ShouldBeEmpty)
	test.That(t, s.Folders(), test.ShouldBeEmpty)
	test.That(t, s.Path(), test.ShouldEqual, statePath)
}

func TestDevicesPersist(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, statePath)
	test.That(t, err, test.ShouldBeNil)

	pico := Device{Key: "239A:80F4:DF625857C74F3B2C", Path: "/dev/ttyACM0", Label: "Pico"}
	test.That(t, s.PutDevice(pico), test.ShouldBeNil)
	test.That(t, s.PutDevice(Device{Key: "/dev/cu.usbmodem1101", Path: "/dev/cu.usbmodem1101"}), test.ShouldBeNil)

	// same key replaces
	pico.Path = "/dev/ttyACM1"
	test.That(t, s.PutDevice(pico), test.ShouldBeNil)

	reopened, err := Open(fs, statePath)
	test.That(t, err, test.ShouldBeNil)
	devices := reopened.Devices()
	test.That(t, devices, test.ShouldHaveLength, 2)
	test.That(t, devices[0], test.ShouldResemble, pico)
	test.That(t, devices[1].Key, test.ShouldEqual, "/dev/cu.usbmodem1101")

	removed, err := reopened.RemoveDevice(pico.Key)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, removed, test.ShouldBeTrue)

	removed, err = reopened.RemoveDevice(pico.Key)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, removed, test.ShouldBeFalse)

	again, err := Open(fs, statePath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.Devices(), test.ShouldHaveLength, 1)
}

func TestFoldersPersist(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open(fs, statePath)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, s.SetFolder("E6614C311B7A4C2F", "/home/user/code.d"), test.ShouldBeNil)
	test.That(t, s.SetFolder("E6614C311B7A4C2F", "/home/user/project"), test.ShouldBeNil)

	reopened, err := Open(fs, statePath)
	test.That(t, err, test.ShouldBeNil)
	path, ok := reopened.Folder("E6614C311B7A4C2F")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, path, test.ShouldEqual, "/home/user/project")

	_, ok = reopened.Folder("0000")
	test.That(t, ok, test.ShouldBeFalse)

	removed, err := reopened.RemoveFolder("E6614C311B7A4C2F")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, removed, test.ShouldBeTrue)
	test.That(t, reopened.Folders(), test.ShouldBeEmpty)
}

func TestOpenInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	test.That(t, afero.WriteFile(fs, statePath, []byte("devices: [\n"), 0o644), test.ShouldBeNil)

	_, err := Open(fs, statePath)
	test.That(t, err, test.ShouldNotBeNil)
}
