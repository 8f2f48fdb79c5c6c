// Package registry tracks which serial devices the user has authorized, which of them
// are attached right now, and which are owned by a session in this process.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/state"
)

// Handle is an authorized device. Readable means it is attached; Writable means it is
// attached and not owned by another session.
type Handle struct {
	Key      string
	Path     string
	Label    string
	Readable bool
	Writable bool
}

// Capable reports whether h can be opened without prompting.
func (h Handle) Capable() bool {
	return h.Readable && h.Writable
}

// OpenStatus is the outcome of Registry.Open.
type OpenStatus int

const (
	OpenOK OpenStatus = iota
	OpenBusy
	OpenNotFound
)

func (s OpenStatus) String() string {
	switch s {
	case OpenOK:
		return "ok"
	case OpenBusy:
		return "busy"
	case OpenNotFound:
		return "not found"
	default:
		return fmt.Sprintf("OpenStatus(%d)", int(s))
	}
}

// OpenResult carries the opened port for OpenOK, or the cause otherwise. Err always
// wraps boardlink.ErrOpen when Status is not OpenOK.
type OpenResult struct {
	Status OpenStatus
	Port   boardlink.Port
	Err    error
}

// Chooser asks the user to pick one of the attached ports. It returns
// boardlink.ErrSelectionCancelled when the user dismisses it.
type Chooser interface {
	Choose(ctx context.Context, ports []boardlink.PortInfo) (boardlink.PortInfo, error)
}

// Registry is the device registry used by the connection workflow.
type Registry interface {
	// Authorized lists previously authorized devices with current capability flags.
	Authorized(ctx context.Context) ([]Handle, error)
	// Request prompts the user for a device and authorizes it.
	Request(ctx context.Context) (Handle, error)
	// Forget revokes authorization for h.
	Forget(h Handle) error
	// Open claims and opens h at the fixed baud rate.
	Open(ctx context.Context, h Handle) OpenResult
	// Release returns a claimed device to the registry.
	Release(h Handle)
}

// Candidates keeps the handles that are both readable and writable.
func Candidates(handles []Handle) []Handle {
	var out []Handle
	for _, h := range handles {
		if h.Capable() {
			out = append(out, h)
		}
	}
	return out
}

// ListAttached returns info for every serial port currently present.
func ListAttached() ([]boardlink.PortInfo, error) {
	paths, err := boardlink.ListPorts()
	if err != nil {
		return nil, err
	}
	infos := make([]boardlink.PortInfo, 0, len(paths))
	for _, path := range paths {
		info, err := boardlink.GetPortInfo(path)
		if err != nil {
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// Local is the Registry backed by the state file and local port discovery.
type Local struct {
	store    *state.Store
	chooser  Chooser
	claims   *Claims
	logger   *zap.SugaredLogger
	openFn   boardlink.OpenFunc
	listFn   func() ([]boardlink.PortInfo, error)
	portOpts []boardlink.Option
}

var _ Registry = (*Local)(nil)

// Option configures a Local registry.
type Option func(*Local)

// WithOpenFunc replaces boardlink.Open.
func WithOpenFunc(fn boardlink.OpenFunc) Option {
	return func(l *Local) { l.openFn = fn }
}

// WithLister replaces ListAttached.
func WithLister(fn func() ([]boardlink.PortInfo, error)) Option {
	return func(l *Local) { l.listFn = fn }
}

// WithPortOptions sets the options passed to every port open.
func WithPortOptions(opts ...boardlink.Option) Option {
	return func(l *Local) { l.portOpts = opts }
}

// WithClaims shares a claim table between registries.
func WithClaims(c *Claims) Option {
	return func(l *Local) { l.claims = c }
}

// NewLocal returns a registry over store. chooser may be nil for non-interactive use,
// in which case Request always reports ErrSelectionCancelled.
func NewLocal(store *state.Store, chooser Chooser, logger *zap.SugaredLogger, opts ...Option) *Local {
	l := &Local{
		store:   store,
		chooser: chooser,
		claims:  NewClaims(),
		logger:  logger.Named("registry"),
		openFn:  boardlink.Open,
		listFn:  ListAttached,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Claims returns the claim table.
func (l *Local) Claims() *Claims {
	return l.claims
}

// Authorized implements Registry.
func (l *Local) Authorized(ctx context.Context) ([]Handle, error) {
	attached, err := l.listFn()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	devices := l.store.Devices()
	handles := make([]Handle, 0, len(devices))
	for _, d := range devices {
		h := Handle{Key: d.Key, Path: d.Path, Label: d.Label}
		if info, ok := findByKey(attached, d.Key); ok {
			h.Path = info.Path
			h.Readable = true
			h.Writable = !l.claims.Claimed(d.Key)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Request implements Registry.
func (l *Local) Request(ctx context.Context) (Handle, error) {
	if l.chooser == nil {
		return Handle{}, boardlink.ErrSelectionCancelled
	}

	attached, err := l.listFn()
	if err != nil {
		return Handle{}, fmt.Errorf("failed to list ports: %w", err)
	}

	info, err := l.chooser.Choose(ctx, attached)
	if err != nil {
		return Handle{}, err
	}

	h := Handle{
		Key:      info.Key(),
		Path:     info.Path,
		Label:    info.Label(),
		Readable: true,
		Writable: !l.claims.Claimed(info.Key()),
	}
	if err := l.store.PutDevice(state.Device{Key: h.Key, Path: h.Path, Label: h.Label}); err != nil {
		return Handle{}, err
	}
	l.logger.Infow("device authorized", "key", h.Key, "path", h.Path)
	return h, nil
}

// Forget implements Registry.
func (l *Local) Forget(h Handle) error {
	removed, err := l.store.RemoveDevice(h.Key)
	if err != nil {
		return err
	}
	if removed {
		l.logger.Infow("device forgotten", "key", h.Key)
	}
	return nil
}

// Open implements Registry. The returned port releases its claim when closed.
func (l *Local) Open(ctx context.Context, h Handle) OpenResult {
	if err := ctx.Err(); err != nil {
		return OpenResult{Status: OpenNotFound, Err: fmt.Errorf("%w: %w", boardlink.ErrOpen, err)}
	}
	if !l.claims.TryClaim(h.Key) {
		return OpenResult{
			Status: OpenBusy,
			Err:    fmt.Errorf("%w: %s: %w", boardlink.ErrOpen, h.Key, boardlink.ErrDeviceInUse),
		}
	}

	path := h.Path
	if attached, err := l.listFn(); err == nil {
		info, ok := findByKey(attached, h.Key)
		if !ok {
			l.claims.Release(h.Key)
			return OpenResult{
				Status: OpenNotFound,
				Err:    fmt.Errorf("%w: %s: %w", boardlink.ErrOpen, h.Key, boardlink.ErrDeviceNotFound),
			}
		}
		path = info.Path
	}

	port, err := l.openFn(path, l.portOpts...)
	if err != nil {
		l.claims.Release(h.Key)
		status := OpenNotFound
		if errors.Is(err, boardlink.ErrDeviceInUse) || errors.Is(err, boardlink.ErrPermissionDenied) {
			status = OpenBusy
		}
		return OpenResult{Status: status, Err: fmt.Errorf("%w: %s: %w", boardlink.ErrOpen, path, err)}
	}

	l.logger.Debugw("device opened", "key", h.Key, "path", path)
	return OpenResult{Status: OpenOK, Port: &claimedPort{Port: port, release: func() { l.Release(h) }}}
}

// Release implements Registry.
func (l *Local) Release(h Handle) {
	l.claims.Release(h.Key)
}

func findByKey(ports []boardlink.PortInfo, key string) (boardlink.PortInfo, bool) {
	for _, p := range ports {
		if p.Key() == key {
			return p, true
		}
	}
	return boardlink.PortInfo{}, false
}

// claimedPort releases the registry claim on first Close.
type claimedPort struct {
	boardlink.Port
	once    sync.Once
	release func()
}

func (p *claimedPort) Close() error {
	err := p.Port.Close()
	p.once.Do(p.release)
	return err
}
