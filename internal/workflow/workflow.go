// Package workflow sequences a serial connection: availability check, device
// selection, session open, identity probe and host folder binding, plus the reverse
// teardown path.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/allbin/go-boardlink"
	"github.com/allbin/go-boardlink/internal/probe"
	"github.com/allbin/go-boardlink/internal/registry"
	"github.com/allbin/go-boardlink/internal/repl"
	"github.com/allbin/go-boardlink/internal/transport"
)

// DefaultProbeTimeout bounds the identity probe.
const DefaultProbeTimeout = 5 * time.Second

var (
	// ErrNotConnected is returned by folder operations without an open session.
	ErrNotConnected = errors.New("no open serial session")
	// ErrNoStorage is returned by folder operations when no Storage is configured.
	ErrNoStorage = errors.New("host folder binding not configured")
	// ErrNoCandidate is returned by AutoConnect unless exactly one authorized
	// device is capable.
	ErrNoCandidate = errors.New("no unambiguous device to reconnect")
)

// Deps are the collaborators of a Workflow. Registry is required.
type Deps struct {
	Registry registry.Registry
	// Platform defaults to boardlink.Available.
	Platform Platform
	// Storage is optional; without it the workflow connects right after the probe.
	Storage Storage
	// Runner defaults to a raw REPL runner over the session.
	Runner probe.Runner
	Logger *zap.SugaredLogger
}

type options struct {
	probeTimeout  time.Duration
	autoUseFolder bool
	transport     []transport.Option
}

// Option configures a Workflow.
type Option func(*options)

// WithProbeTimeout bounds the identity probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.probeTimeout = d
		}
	}
}

// WithAutoUseFolder controls whether a remembered folder completes the connection
// without the user confirming it.
func WithAutoUseFolder(enabled bool) Option {
	return func(o *options) { o.autoUseFolder = enabled }
}

// WithTransportOptions is passed to every session start.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(o *options) { o.transport = append(o.transport, opts...) }
}

// feeder receives session text; the default repl runner implements it.
type feeder interface {
	Feed(text string)
}

// Workflow is the connection state machine. All session mutation goes through it.
type Workflow struct {
	registry registry.Registry
	platform Platform
	storage  Storage
	runner   probe.Runner
	logger   *zap.SugaredLogger
	opts     options

	// opMu serializes operations that open, bind or tear down the session.
	opMu  sync.Mutex
	group singleflight.Group

	mu          sync.Mutex
	phase       Phase
	step        int
	identity    string
	view        View
	session     *transport.Session
	handle      registry.Handle
	hasHandle   bool
	observers   []func(Event)
	subscribers []func(transport.Message)
}

// New returns a disconnected workflow.
func New(deps Deps, opts ...Option) *Workflow {
	o := options{probeTimeout: DefaultProbeTimeout, autoUseFolder: true}
	for _, opt := range opts {
		opt(&o)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	platform := deps.Platform
	if platform == nil {
		platform = PlatformFunc(boardlink.Available)
	}

	w := &Workflow{
		registry: deps.Registry,
		platform: platform,
		storage:  deps.Storage,
		runner:   deps.Runner,
		logger:   logger.Named("workflow"),
		opts:     o,
	}
	if w.runner == nil {
		w.runner = repl.New(repl.SenderFunc(w.Send))
	}
	w.opts.transport = append([]transport.Option{transport.WithLogger(logger)}, w.opts.transport...)
	return w
}

// Observe registers fn for state transitions. fn runs synchronously and must not
// call back into workflow operations.
func (w *Workflow) Observe(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

// Subscribe registers fn for messages received from the device. fn runs on the read
// loop goroutine.
func (w *Workflow) Subscribe(fn func(transport.Message)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// State returns the coarse connection state.
func (w *Workflow) State() State {
	return w.Phase().State()
}

// Phase returns the current phase.
func (w *Workflow) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// Step returns the connect dialog step.
func (w *Workflow) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Identity returns the probed identity, or "" when unknown.
func (w *Workflow) Identity() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.identity
}

// Device returns the handle owned by the current session.
func (w *Workflow) Device() (registry.Handle, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handle, w.hasHandle
}

// WorkingFolder returns the bound folder name, or "".
func (w *Workflow) WorkingFolder() string {
	if w.storage == nil {
		return ""
	}
	return w.storage.WorkingFolderName()
}

// Holds reports the session's reader, writer and open flags. All are false without a
// session.
func (w *Workflow) Holds() (reader, writer, open bool) {
	if sess := w.currentSession(); sess != nil {
		return sess.Holds()
	}
	return false, false, false
}

func (w *Workflow) currentSession() *transport.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// ShowConnect binds v as the connect dialog and gates its steps on platform
// availability. The returned error wraps boardlink.ErrPlatformUnavailable.
func (w *Workflow) ShowConnect(v View) error {
	w.mu.Lock()
	w.view = v
	w.mu.Unlock()

	err := w.platform.Available()
	v.SetPlatformAvailable(err == nil)
	if err != nil {
		w.setStep(0)
		return err
	}
	if w.currentSession() != nil {
		w.setStep(2)
		if name := w.WorkingFolder(); name != "" {
			v.SetWorkingFolder(name)
		}
		return nil
	}
	w.setStep(1)
	return nil
}

// CloseView drops the bound view without touching the session.
func (w *Workflow) CloseView() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.view = nil
}

// Connect checks platform availability and, only if it succeeds, runs device
// selection and session open. Concurrent calls share one attempt.
func (w *Workflow) Connect(ctx context.Context) error {
	if err := w.platform.Available(); err != nil {
		w.setStep(0)
		return err
	}
	return w.ConnectToSerial(ctx)
}

// ConnectToSerial selects and opens a device. A single capable authorized device is
// opened without prompting; if that fails it is forgotten and the user is prompted.
// It is a no-op while a session is open.
func (w *Workflow) ConnectToSerial(ctx context.Context) error {
	_, err, _ := w.group.Do("connect", func() (any, error) {
		return nil, w.connectSerial(ctx)
	})
	return err
}

func (w *Workflow) connectSerial(ctx context.Context) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if w.currentSession() != nil {
		return nil
	}
	w.setPhase(PhaseSelecting)

	handles, err := w.registry.Authorized(ctx)
	if err != nil {
		return w.fail(err)
	}

	candidates := registry.Candidates(handles)
	if len(candidates) == 1 {
		h := candidates[0]
		err := w.switchTo(ctx, h)
		if err == nil {
			w.setStep(2)
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, boardlink.ErrTransportFailure) {
			return w.fail(err)
		}
		w.logger.Warnw("failed to open saved device, prompting for another", "key", h.Key, "error", err)
		if ferr := w.registry.Forget(h); ferr != nil {
			w.logger.Warnw("failed to forget device", "key", h.Key, "error", ferr)
		}
	}

	h, err := w.registry.Request(ctx)
	if err != nil {
		if errors.Is(err, boardlink.ErrSelectionCancelled) {
			w.logger.Debug("device selection cancelled")
		}
		return w.fail(err)
	}
	if err := w.switchTo(ctx, h); err != nil {
		return w.fail(err)
	}
	w.setStep(2)
	return nil
}

// fail resets to Disconnected after a failed connect attempt. Only a transport
// failure asks for reconnection.
func (w *Workflow) fail(err error) error {
	reconnect := errors.Is(err, boardlink.ErrTransportFailure)
	return multierr.Append(err, w.teardownLocked(Event{Err: err, Reconnect: reconnect}))
}

// AutoConnect opens the single capable authorized device without ever prompting.
// It returns ErrNoCandidate when there is not exactly one, and nil if a session is
// already open. An unavailable platform is returned before anything else.
func (w *Workflow) AutoConnect(ctx context.Context) error {
	if err := w.platform.Available(); err != nil {
		w.setStep(0)
		return err
	}
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if w.currentSession() != nil {
		return nil
	}
	handles, err := w.registry.Authorized(ctx)
	if err != nil {
		return err
	}
	candidates := registry.Candidates(handles)
	if len(candidates) != 1 {
		return fmt.Errorf("%w: %d capable devices", ErrNoCandidate, len(candidates))
	}

	w.setPhase(PhaseSelecting)
	if err := w.switchTo(ctx, candidates[0]); err != nil {
		return w.fail(err)
	}
	w.setStep(2)
	return nil
}

// switchTo opens h, starts the session and resolves identity and storage. Called with
// opMu held. On error no session or claim is left behind.
func (w *Workflow) switchTo(ctx context.Context, h registry.Handle) error {
	res := w.registry.Open(ctx, h)
	if res.Status != registry.OpenOK {
		w.logger.Infow("open failed", "key", h.Key, "status", res.Status, "error", res.Err)
		return res.Err
	}

	sess, err := transport.Start(context.WithoutCancel(ctx), res.Port, w.dispatch, w.opts.transport...)
	if err != nil {
		w.registry.Release(h)
		return fmt.Errorf("%w: %w", boardlink.ErrOpen, err)
	}

	w.mu.Lock()
	w.session = sess
	w.handle = h
	w.hasHandle = true
	w.mu.Unlock()
	w.logger.Infow("session opened", "key", h.Key, "path", h.Path, "session", sess.ID())
	w.setPhase(PhaseDeviceChosen)
	go w.watch(sess)

	w.setPhase(PhasePartial)
	identity := w.probeIdentity(ctx, sess)

	select {
	case <-sess.Done():
		if err := sess.Err(); err != nil {
			return err
		}
	default:
	}

	w.mu.Lock()
	w.identity = identity
	w.mu.Unlock()
	w.notify(Event{})

	if w.storage == nil {
		w.onConnectedLocked()
		return nil
	}
	if w.onSessionPartial(identity) && w.opts.autoUseFolder {
		if err := w.useFolderLocked(); err != nil {
			w.logger.Warnw("failed to use remembered folder", "error", err)
		}
	}
	return nil
}

// probeIdentity returns "" on failure. The probe is cut short if the session ends.
func (w *Workflow) probeIdentity(ctx context.Context, sess *transport.Session) string {
	ctx, cancel := context.WithTimeout(ctx, w.opts.probeTimeout)
	defer cancel()
	go func() {
		select {
		case <-sess.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	id, err := probe.Identify(ctx, w.runner)
	if err != nil {
		w.logger.Warnw("identity probe failed", "error", err)
		return ""
	}
	w.logger.Infow("device identified", "identity", id)
	return id
}

// onSessionPartial invites storage to load the folder remembered for identity and
// reports whether one is bound.
func (w *Workflow) onSessionPartial(identity string) bool {
	w.storage.Attach(identity)
	if !w.storage.LoadRemembered() {
		w.logger.Debugw("no remembered folder", "identity", identity)
		return false
	}
	w.folderChanged()
	return true
}

func (w *Workflow) folderChanged() {
	name := w.storage.WorkingFolderName()
	if name == "" {
		return
	}
	w.logger.Infow("working folder", "name", name)

	w.mu.Lock()
	view := w.view
	phase := w.phase
	w.mu.Unlock()
	if view != nil {
		view.SetWorkingFolder(name)
	}
	if phase < PhaseFolderOffered {
		w.setPhase(PhaseFolderOffered)
	}
}

// SelectFolder binds path for the connected device.
func (w *Workflow) SelectFolder(ctx context.Context, path string) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if w.currentSession() == nil {
		return ErrNotConnected
	}
	if w.storage == nil {
		return ErrNoStorage
	}
	changed, err := w.storage.Select(path)
	if err != nil {
		return err
	}
	if changed {
		w.folderChanged()
	}
	return nil
}

// UseFolder lists the bound folder and completes the connection.
func (w *Workflow) UseFolder(ctx context.Context) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if w.currentSession() == nil {
		return ErrNotConnected
	}
	if w.storage == nil {
		return ErrNoStorage
	}
	return w.useFolderLocked()
}

func (w *Workflow) useFolderLocked() error {
	names, err := w.storage.ListRoot()
	if err != nil {
		return err
	}
	w.logger.Debugw("host folder listed", "entries", len(names))
	w.onConnectedLocked()
	return nil
}

// OnConnected closes the connect dialog and reports Connected. It fires once per
// session.
func (w *Workflow) OnConnected(ctx context.Context) {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	w.onConnectedLocked()
}

func (w *Workflow) onConnectedLocked() {
	w.mu.Lock()
	if w.session == nil || w.phase == PhaseConnected {
		w.mu.Unlock()
		return
	}
	view := w.view
	w.view = nil
	w.mu.Unlock()

	if view != nil {
		view.Close()
	}
	w.setPhase(PhaseConnected)
}

// OnDisconnected tears the session down. trigger is the cause, nil if none. With
// reconnect set observers are asked to run their reconnect policy.
func (w *Workflow) OnDisconnected(trigger error, reconnect bool) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	return w.teardownLocked(Event{Err: trigger, Reconnect: reconnect})
}

// Disconnect is the user initiated teardown. It always runs and is idempotent.
func (w *Workflow) Disconnect(ctx context.Context) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.logger.Info("disconnect requested")
	return w.teardownLocked(Event{Explicit: true})
}

// teardownLocked releases the reader and writer, closes the port, returns the handle
// to the registry and clears the identity. Every step is a no-op when already done.
// ev carries the trigger and is delivered if the phase changed or ev is explicit.
func (w *Workflow) teardownLocked(ev Event) error {
	w.mu.Lock()
	sess := w.session
	w.session = nil
	h, hadHandle := w.handle, w.hasHandle
	w.handle = registry.Handle{}
	w.hasHandle = false
	w.identity = ""
	prev := w.phase
	w.mu.Unlock()

	var err error
	if sess != nil {
		err = multierr.Append(err, sess.Close())
	}
	if hadHandle {
		w.registry.Release(h)
	}
	if w.storage != nil {
		w.storage.Detach()
	}

	if w.platform.Available() == nil {
		w.setStep(1)
	} else {
		w.setStep(0)
	}
	if prev != PhaseDisconnected || ev.Explicit {
		w.setPhaseWith(PhaseDisconnected, ev)
	}
	if sess != nil {
		w.logger.Infow("session closed", "session", sess.ID(), "trigger", ev.Err, "reconnect", ev.Reconnect)
	}
	return err
}

// watch tears down the session if its read loop ends on its own.
func (w *Workflow) watch(sess *transport.Session) {
	<-sess.Done()
	err := sess.Err()
	if err == nil {
		return
	}

	w.opMu.Lock()
	defer w.opMu.Unlock()
	if w.currentSession() != sess {
		return
	}
	w.logger.Warnw("transport failure, disconnecting", "error", err)
	_ = w.teardownLocked(Event{Err: err, Reconnect: true})
}

// Send writes data to the device. Failures and sends without a session are logged
// and dropped.
func (w *Workflow) Send(data []byte) {
	sess := w.currentSession()
	if sess == nil {
		w.logger.Debugw("send without session dropped", "bytes", len(data))
		return
	}
	sess.Send(data)
}

func (w *Workflow) dispatch(msg transport.Message) {
	if f, ok := w.runner.(feeder); ok {
		f.Feed(msg.Text)
	}
	w.mu.Lock()
	subscribers := slices.Clone(w.subscribers)
	w.mu.Unlock()
	for _, fn := range subscribers {
		fn(msg)
	}
}

func (w *Workflow) setStep(step int) {
	step = ClampStep(step)
	w.mu.Lock()
	w.step = step
	view := w.view
	w.mu.Unlock()
	if view != nil {
		view.SetButtons(StepButtons(step))
	}
}

func (w *Workflow) setPhase(p Phase) {
	w.setPhaseWith(p, Event{})
}

func (w *Workflow) setPhaseWith(p Phase, ev Event) {
	w.mu.Lock()
	prev := w.phase
	w.phase = p
	w.mu.Unlock()

	if prev != p {
		w.logger.Debugw("transition", "from", prev, "to", p)
	}
	w.notify(ev)
}

// notify fills ev with the current state and delivers it to observers.
func (w *Workflow) notify(ev Event) {
	w.mu.Lock()
	ev.Phase = w.phase
	ev.State = w.phase.State()
	ev.Identity = w.identity
	observers := slices.Clone(w.observers)
	w.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
