// Package reconnect retries a lost connection when the board comes back.
package reconnect

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/allbin/go-boardlink/internal/workflow"
)

// Target reopens the connection without prompting. *workflow.Workflow implements it.
type Target interface {
	AutoConnect(ctx context.Context) error
}

// Manager runs the reconnect loop after a transport failure and stops it on an
// explicit disconnect.
type Manager struct {
	target     Target
	hotplug    <-chan struct{}
	maxElapsed time.Duration
	initial    time.Duration
	logger     *zap.SugaredLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithHotplug wakes the loop early when a device node appears.
func WithHotplug(events <-chan struct{}) Option {
	return func(m *Manager) { m.hotplug = events }
}

// WithMaxElapsed bounds the whole loop. Zero retries until stopped.
func WithMaxElapsed(d time.Duration) Option {
	return func(m *Manager) { m.maxElapsed = d }
}

// WithInitialInterval sets the first backoff interval.
func WithInitialInterval(d time.Duration) Option {
	return func(m *Manager) { m.initial = d }
}

// New returns a manager for target.
func New(target Target, logger *zap.SugaredLogger, opts ...Option) *Manager {
	m := &Manager{
		target:     target,
		maxElapsed: 30 * time.Second,
		initial:    500 * time.Millisecond,
		logger:     logger.Named("reconnect"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle consumes workflow events. Register it with Workflow.Observe. It never
// blocks: observers run while the workflow holds its operation lock.
func (m *Manager) Handle(ev workflow.Event) {
	switch {
	case ev.Explicit:
		m.cancelLoop()
	case ev.State == workflow.Disconnected && ev.Reconnect:
		m.start()
	}
}

// Running reports whether a reconnect loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			cancel()
		}()
		if err := m.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Warnw("giving up reconnecting", "error", err)
		}
	}()
}

func (m *Manager) cancelLoop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop cancels a running loop and waits for it. It must not be called from a
// workflow observer.
func (m *Manager) Stop() {
	m.cancelLoop()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) error {
	m.logger.Info("connection lost, waiting for device")

	// first attempt after a hotplug event or the initial interval
	timer := time.NewTimer(m.initial)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.hotplug:
	case <-timer.C:
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.initial
	b.MaxElapsedTime = m.maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		return m.target.AutoConnect(ctx)
	}
	notify := func(err error, next time.Duration) {
		m.logger.Debugw("reconnect attempt failed", "attempt", attempt, "error", err, "next", next)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return err
	}
	m.logger.Infow("reconnected", "attempts", attempt)
	return nil
}
