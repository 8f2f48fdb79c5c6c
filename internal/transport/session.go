// Package transport runs a serial session: one background read loop delivering decoded
// messages and one serialized writer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/allbin/go-boardlink"
)

// DefaultBufferSize is the read chunk size.
const DefaultBufferSize = 4096

// Message is one chunk received from the device.
type Message struct {
	Data []byte
	Text string
	Time time.Time
}

// Handler receives messages on the read loop goroutine. It must not block and must
// not close the session.
type Handler func(Message)

type options struct {
	logger     *zap.SugaredLogger
	bufferSize int
}

// Option configures Start.
type Option func(*options)

// WithLogger sets the session logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBufferSize sets the read chunk size.
func WithBufferSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// Session owns an open port for its lifetime. Close releases the reader and the
// writer before closing the port.
type Session struct {
	id      string
	port    boardlink.Port
	handler Handler
	logger  *zap.SugaredLogger
	cancel  context.CancelFunc

	reading atomic.Bool
	open    atomic.Bool
	writer  atomic.Pointer[writer]

	done chan struct{}
	err  error

	closeMu sync.Mutex
	closed  bool
}

// writer serializes all outbound data.
type writer struct {
	mu   sync.Mutex
	port boardlink.Port
}

// ready waits for previously written data to leave the port.
func (w *writer) ready() error {
	if err := w.port.Drain(); err != nil {
		return fmt.Errorf("writer not ready: %w", err)
	}
	return nil
}

func (w *writer) write(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ready(); err != nil {
		return err
	}
	if _, err := w.port.Write(data); err != nil {
		return err
	}
	return w.ready()
}

// Start begins a session on port. The read loop runs until ctx is cancelled, Close is
// called or the port fails. The writer is ready when Start returns.
func Start(ctx context.Context, port boardlink.Port, handler Handler, opts ...Option) (*Session, error) {
	if port == nil {
		return nil, errors.New("transport: nil port")
	}
	o := options{logger: zap.NewNop().Sugar(), bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	if handler == nil {
		handler = func(Message) {}
	}

	id := uuid.NewString()
	s := &Session{
		id:      id,
		port:    port,
		handler: handler,
		logger:  o.logger.Named("transport").With("session", id),
		done:    make(chan struct{}),
	}
	s.open.Store(true)

	w := &writer{port: port}
	if err := w.ready(); err != nil {
		return nil, multierr.Append(err, port.Close())
	}
	s.writer.Store(w)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.reading.Store(true)
	go s.readLoop(loopCtx, o.bufferSize)

	s.logger.Debug("session started")
	return s, nil
}

// ID returns the session id used in logs.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) readLoop(ctx context.Context, size int) {
	defer close(s.done)
	defer s.reading.Store(false)

	decoder := newStreamDecoder()
	buf := make([]byte, size)
	for {
		n, err := s.port.ReadContext(ctx, buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			s.handler(Message{Data: data, Text: decoder.decode(data), Time: time.Now()})
		}
		if err == nil {
			continue
		}

		switch {
		case ctx.Err() != nil:
			s.logger.Debug("read loop cancelled")
		case errors.Is(err, boardlink.ErrPortClosed) && s.isClosed():
			s.logger.Debug("read loop stopped by close")
		case errors.Is(err, io.EOF):
			s.err = fmt.Errorf("%w: stream ended: %w", boardlink.ErrTransportFailure, err)
			s.logger.Infow("read loop ended", "error", err, "dropped", decoder.buffered())
		default:
			s.err = fmt.Errorf("%w: %w", boardlink.ErrTransportFailure, err)
			s.logger.Warnw("read loop failed", "error", err)
		}
		return
	}
}

// Done is closed when the read loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns nil if the read loop was cancelled, or an error wrapping
// boardlink.ErrTransportFailure if the stream ended or failed. Valid after Done.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// TrySend writes data through the session writer.
func (s *Session) TrySend(data []byte) error {
	w := s.writer.Load()
	if w == nil {
		return fmt.Errorf("%w: %w", boardlink.ErrSendFailure, boardlink.ErrPortClosed)
	}
	if err := w.write(data); err != nil {
		return fmt.Errorf("%w: %w", boardlink.ErrSendFailure, err)
	}
	return nil
}

// Send writes data and drops it on failure. Failures are logged, never returned.
func (s *Session) Send(data []byte) {
	if err := s.TrySend(data); err != nil {
		s.logger.Warnw("send dropped", "error", err, "bytes", len(data))
	}
}

// Holds reports whether the session still has a reader, a writer and an open port.
func (s *Session) Holds() (reader, writer, open bool) {
	return s.reading.Load(), s.writer.Load() != nil, s.open.Load()
}

func (s *Session) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}

// Close stops the read loop, releases the writer and closes the port. Calling it
// again is a no-op.
func (s *Session) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.cancel()
	<-s.done
	s.writer.Store(nil)

	var err error
	if s.open.Swap(false) {
		if cerr := s.port.Close(); cerr != nil && !errors.Is(cerr, boardlink.ErrPortClosed) {
			err = cerr
		}
	}
	s.logger.Debug("session closed")
	return err
}
