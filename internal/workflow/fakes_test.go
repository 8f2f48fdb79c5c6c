package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/registry"
	"github.com/allbin/go-boardlink/internal/state"
	"github.com/allbin/go-boardlink/internal/testutils"
)

const testUID = "E6614C311B7A4C2F"

type fakeChooser struct {
	mu     sync.Mutex
	calls  int
	pick   string
	onCall func()
}

func (c *fakeChooser) Choose(ctx context.Context, ports []boardlink.PortInfo) (boardlink.PortInfo, error) {
	c.mu.Lock()
	c.calls++
	pick, onCall := c.pick, c.onCall
	c.mu.Unlock()

	if onCall != nil {
		onCall()
	}
	for _, p := range ports {
		if pick != "" && p.Path == pick {
			return p, nil
		}
	}
	return boardlink.PortInfo{}, boardlink.ErrSelectionCancelled
}

func (c *fakeChooser) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type env struct {
	t       *testing.T
	store   *state.Store
	chooser *fakeChooser
	reg     *registry.Local

	mu       sync.Mutex
	attached []boardlink.PortInfo
	ports    map[string]*testutils.Port
	openErr  map[string]error
	opens    int
	lists    int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := state.Open(afero.NewMemMapFs(), "/state.yaml")
	test.That(t, err, test.ShouldBeNil)

	e := &env{
		t:       t,
		store:   store,
		chooser: &fakeChooser{},
		ports:   make(map[string]*testutils.Port),
		openErr: make(map[string]error),
	}
	e.reg = registry.NewLocal(store, e.chooser, zap.NewNop().Sugar(),
		registry.WithLister(e.list),
		registry.WithOpenFunc(e.open),
	)
	return e
}

func (e *env) list() ([]boardlink.PortInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lists++
	return append([]boardlink.PortInfo(nil), e.attached...), nil
}

func (e *env) open(path string, opts ...boardlink.Option) (boardlink.Port, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opens++
	if err := e.openErr[path]; err != nil {
		return nil, err
	}
	port, ok := e.ports[path]
	if !ok {
		return nil, boardlink.ErrDeviceNotFound
	}
	return port, nil
}

// attach plugs in a board answering the identity probe with uid.
func (e *env) attach(n int, uid string) (boardlink.PortInfo, *testutils.Port) {
	info := boardlink.PortInfo{
		Name:         fmt.Sprintf("ttyACM%d", n),
		Path:         fmt.Sprintf("/dev/ttyACM%d", n),
		VendorID:     "239a",
		ProductID:    "80f4",
		SerialNumber: fmt.Sprintf("SN%d", n),
		Product:      "Pico",
	}
	port := testutils.NewPort()
	testutils.NewBoard(port, testutils.IdentityResponder(uid))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.attached = append(e.attached, info)
	e.ports[info.Path] = port
	return info, port
}

func (e *env) authorize(info boardlink.PortInfo) {
	err := e.store.PutDevice(state.Device{Key: info.Key(), Path: info.Path, Label: info.Label()})
	test.That(e.t, err, test.ShouldBeNil)
}

func (e *env) failOpen(path string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openErr[path] = err
}

func (e *env) Opens() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

func (e *env) Lists() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lists
}

type fakeView struct {
	mu        sync.Mutex
	available *bool
	buttons   []Buttons
	folder    string
	closed    bool
}

func (v *fakeView) SetPlatformAvailable(available bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.available = &available
}

func (v *fakeView) SetButtons(b Buttons) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.buttons = append(v.buttons, b)
}

func (v *fakeView) SetWorkingFolder(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.folder = name
}

func (v *fakeView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

func (v *fakeView) lastButtons() Buttons {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.buttons) == 0 {
		return Buttons{}
	}
	return v.buttons[len(v.buttons)-1]
}

func (v *fakeView) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *fakeView) workingFolder() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.folder
}

type fakeStorage struct {
	mu         sync.Mutex
	remembered bool
	bound      string
	identity   string
	attached   []string
	detaches   int
}

func (s *fakeStorage) Attach(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.attached = append(s.attached, identity)
}

func (s *fakeStorage) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = ""
	s.bound = ""
	s.detaches++
}

func (s *fakeStorage) LoadRemembered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remembered && s.identity != "" {
		s.bound = "blinky"
		return true
	}
	return false
}

func (s *fakeStorage) Select(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == s.bound {
		return false, nil
	}
	s.bound = path
	return true, nil
}

func (s *fakeStorage) WorkingFolderName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

func (s *fakeStorage) ListRoot() ([]string, error) {
	return []string{"code.py", "lib/"}, nil
}

type runnerFunc func(ctx context.Context, code string) (string, error)

func (f runnerFunc) RunCode(ctx context.Context, code string) (string, error) {
	return f(ctx, code)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newEventLog(w *Workflow) *eventLog {
	l := &eventLog{ch: make(chan Event, 64)}
	w.Observe(func(ev Event) {
		l.mu.Lock()
		l.events = append(l.events, ev)
		l.mu.Unlock()
		select {
		case l.ch <- ev:
		default:
		}
	})
	return l
}

func (l *eventLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []State
	for _, ev := range l.events {
		if len(out) == 0 || out[len(out)-1] != ev.State {
			out = append(out, ev.State)
		}
	}
	return out
}

func (l *eventLog) waitFor(t *testing.T, pred func(Event) bool) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-l.ch:
			if pred(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}
}

func available() error { return nil }

func unavailable() error {
	return fmt.Errorf("%w: test host", boardlink.ErrPlatformUnavailable)
}
