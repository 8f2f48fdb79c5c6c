package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/state"
	"github.com/allbin/go-boardlink/internal/testutils"
)

var pico = boardlink.PortInfo{
	Name:         "ttyACM0",
	Path:         "/dev/ttyACM0",
	VendorID:     "239a",
	ProductID:    "80f4",
	SerialNumber: "DF625857C74F3B2C",
	Product:      "Pico",
}

type pickFirst struct{ calls int }

func (p *pickFirst) Choose(ctx context.Context, ports []boardlink.PortInfo) (boardlink.PortInfo, error) {
	p.calls++
	if len(ports) == 0 {
		return boardlink.PortInfo{}, boardlink.ErrSelectionCancelled
	}
	return ports[0], nil
}

func newLocal(t *testing.T, attached []boardlink.PortInfo, open boardlink.OpenFunc) (*Local, *state.Store, *pickFirst) {
	t.Helper()
	store, err := state.Open(afero.NewMemMapFs(), "/state.yaml")
	test.That(t, err, test.ShouldBeNil)
	chooser := &pickFirst{}
	l := NewLocal(store, chooser, zap.NewNop().Sugar(),
		WithLister(func() ([]boardlink.PortInfo, error) { return attached, nil }),
		WithOpenFunc(open),
	)
	return l, store, chooser
}

func openFake(port boardlink.Port) boardlink.OpenFunc {
	return func(path string, opts ...boardlink.Option) (boardlink.Port, error) {
		return port, nil
	}
}

func openErr(err error) boardlink.OpenFunc {
	return func(path string, opts ...boardlink.Option) (boardlink.Port, error) {
		return nil, err
	}
}

func TestClaims(t *testing.T) {
	c := NewClaims()
	test.That(t, c.TryClaim("b"), test.ShouldBeTrue)
	test.That(t, c.TryClaim("a"), test.ShouldBeTrue)
	test.That(t, c.TryClaim("a"), test.ShouldBeFalse)
	test.That(t, c.Claimed("a"), test.ShouldBeTrue)
	test.That(t, c.Keys(), test.ShouldResemble, []string{"a", "b"})

	c.Release("a")
	c.Release("a")
	test.That(t, c.Claimed("a"), test.ShouldBeFalse)
	test.That(t, c.TryClaim("a"), test.ShouldBeTrue)
}

func TestCandidates(t *testing.T) {
	handles := []Handle{
		{Key: "attached", Readable: true, Writable: true},
		{Key: "claimed", Readable: true},
		{Key: "unplugged"},
	}
	got := Candidates(handles)
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, got[0].Key, test.ShouldEqual, "attached")
	test.That(t, Candidates(nil), test.ShouldBeEmpty)
}

func TestRequestAuthorizesAndForget(t *testing.T) {
	l, store, chooser := newLocal(t, []boardlink.PortInfo{pico}, openErr(boardlink.ErrDeviceNotFound))

	h, err := l.Request(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chooser.calls, test.ShouldEqual, 1)
	test.That(t, h.Key, test.ShouldEqual, "239A:80F4:DF625857C74F3B2C")
	test.That(t, h.Capable(), test.ShouldBeTrue)
	test.That(t, store.Devices(), test.ShouldHaveLength, 1)

	test.That(t, l.Forget(h), test.ShouldBeNil)
	test.That(t, store.Devices(), test.ShouldBeEmpty)
	test.That(t, l.Forget(h), test.ShouldBeNil)
}

func TestRequestCancelled(t *testing.T) {
	l, store, _ := newLocal(t, nil, openErr(boardlink.ErrDeviceNotFound))
	_, err := l.Request(context.Background())
	test.That(t, errors.Is(err, boardlink.ErrSelectionCancelled), test.ShouldBeTrue)
	test.That(t, store.Devices(), test.ShouldBeEmpty)

	noChooser := NewLocal(store, nil, zap.NewNop().Sugar())
	_, err = noChooser.Request(context.Background())
	test.That(t, errors.Is(err, boardlink.ErrSelectionCancelled), test.ShouldBeTrue)
}

func TestAuthorizedCapabilityFlags(t *testing.T) {
	l, store, _ := newLocal(t, []boardlink.PortInfo{pico}, openErr(boardlink.ErrDeviceNotFound))
	test.That(t, store.PutDevice(state.Device{Key: pico.Key(), Path: "/dev/ttyACM7", Label: "Pico"}), test.ShouldBeNil)
	test.That(t, store.PutDevice(state.Device{Key: "2E8A:0005:GONE", Path: "/dev/ttyACM1"}), test.ShouldBeNil)

	handles, err := l.Authorized(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, handles, test.ShouldHaveLength, 2)

	// attached device is found by key even though its path moved
	test.That(t, handles[0].Path, test.ShouldEqual, "/dev/ttyACM0")
	test.That(t, handles[0].Capable(), test.ShouldBeTrue)
	test.That(t, handles[1].Readable, test.ShouldBeFalse)
	test.That(t, handles[1].Capable(), test.ShouldBeFalse)

	l.Claims().TryClaim(pico.Key())
	handles, err = l.Authorized(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, handles[0].Readable, test.ShouldBeTrue)
	test.That(t, handles[0].Writable, test.ShouldBeFalse)
}

func TestOpenClaimsUntilClose(t *testing.T) {
	port := testutils.NewPort()
	l, _, _ := newLocal(t, []boardlink.PortInfo{pico}, openFake(port))
	h := Handle{Key: pico.Key(), Path: pico.Path, Readable: true, Writable: true}

	res := l.Open(context.Background(), h)
	test.That(t, res.Status, test.ShouldEqual, OpenOK)
	test.That(t, res.Err, test.ShouldBeNil)
	test.That(t, l.Claims().Claimed(h.Key), test.ShouldBeTrue)

	second := l.Open(context.Background(), h)
	test.That(t, second.Status, test.ShouldEqual, OpenBusy)
	test.That(t, errors.Is(second.Err, boardlink.ErrOpen), test.ShouldBeTrue)
	test.That(t, errors.Is(second.Err, boardlink.ErrDeviceInUse), test.ShouldBeTrue)

	test.That(t, res.Port.Close(), test.ShouldBeNil)
	test.That(t, l.Claims().Claimed(h.Key), test.ShouldBeFalse)
	test.That(t, port.IsClosed(), test.ShouldBeTrue)
}

func TestOpenStatusMapping(t *testing.T) {
	h := Handle{Key: pico.Key(), Path: pico.Path}
	tests := []struct {
		name     string
		attached []boardlink.PortInfo
		openErr  error
		want     OpenStatus
	}{
		{"unplugged", nil, nil, OpenNotFound},
		{"in use elsewhere", []boardlink.PortInfo{pico}, boardlink.ErrDeviceInUse, OpenBusy},
		{"permission denied", []boardlink.PortInfo{pico}, boardlink.ErrPermissionDenied, OpenBusy},
		{"vanished", []boardlink.PortInfo{pico}, boardlink.ErrDeviceNotFound, OpenNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, _ := newLocal(t, tt.attached, openErr(tt.openErr))
			res := l.Open(context.Background(), h)
			test.That(t, res.Status, test.ShouldEqual, tt.want)
			test.That(t, res.Port, test.ShouldBeNil)
			test.That(t, errors.Is(res.Err, boardlink.ErrOpen), test.ShouldBeTrue)
			test.That(t, l.Claims().Keys(), test.ShouldBeEmpty)
		})
	}
}

func TestOpenStatusString(t *testing.T) {
	test.That(t, OpenOK.String(), test.ShouldEqual, "ok")
	test.That(t, OpenBusy.String(), test.ShouldEqual, "busy")
	test.That(t, OpenNotFound.String(), test.ShouldEqual, "not found")
}

func TestIsSerialNode(t *testing.T) {
	test.That(t, IsSerialNode("ttyACM0"), test.ShouldBeTrue)
	test.That(t, IsSerialNode("ttyUSB3"), test.ShouldBeTrue)
	test.That(t, IsSerialNode("cu.usbmodem1101"), test.ShouldBeTrue)
	test.That(t, IsSerialNode("tty0"), test.ShouldBeFalse)
	test.That(t, IsSerialNode("null"), test.ShouldBeFalse)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := Watch(ctx, dir, 10*time.Millisecond, zap.NewNop().Sugar())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, os.WriteFile(filepath.Join(dir, "null"), nil, 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "ttyACM0"), nil, 0o644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "ttyACM1"), nil, 0o644), test.ShouldBeNil)

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("no hotplug event")
	}

	cancel()
	for range events {
	}
}

func TestWatchMissingDir(t *testing.T) {
	_, err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Millisecond, zap.NewNop().Sugar())
	test.That(t, err, test.ShouldNotBeNil)
}
