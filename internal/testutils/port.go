// Package testutils provides fakes shared by package tests.
package testutils

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/allbin/go-boardlink"
)

// Port is an in-memory boardlink.Port. Chunks pushed with Push are returned by reads
// one at a time, in order; Hangup makes reads return io.EOF once they are drained.
type Port struct {
	chunks chan []byte
	hangup chan struct{}
	closed chan struct{}

	hangupOnce sync.Once

	mu         sync.Mutex
	written    bytes.Buffer
	writes     int
	closeCalls int
	writeErr   error
	drainErr   error
	dtr, rts   bool
	onWrite    func([]byte)
	blockWrite chan struct{}
}

var _ boardlink.Port = (*Port)(nil)

// NewPort returns an open fake port.
func NewPort() *Port {
	return &Port{
		chunks: make(chan []byte, 256),
		hangup: make(chan struct{}),
		closed: make(chan struct{}),
		dtr:    true,
	}
}

// Push queues a chunk for reading.
func (p *Port) Push(chunk []byte) {
	p.chunks <- append([]byte(nil), chunk...)
}

// Hangup simulates the device disappearing.
func (p *Port) Hangup() {
	p.hangupOnce.Do(func() { close(p.hangup) })
}

// FailWrites makes subsequent writes return err.
func (p *Port) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// FailDrain makes subsequent drains return err.
func (p *Port) FailDrain(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drainErr = err
}

// BlockWrites makes writes block until the port is closed.
func (p *Port) BlockWrites() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockWrite = p.closed
}

// OnWrite registers fn to be called with each successful write.
func (p *Port) OnWrite(fn func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onWrite = fn
}

// Written returns everything written so far.
func (p *Port) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

// Writes returns the number of successful writes.
func (p *Port) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// CloseCalls returns how many times Close was called.
func (p *Port) CloseCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalls
}

// IsClosed reports whether Close has been called.
func (p *Port) IsClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

func (p *Port) Read(buf []byte) (int, error) {
	return p.ReadContext(context.Background(), buf)
}

func (p *Port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if p.IsClosed() {
		return 0, boardlink.ErrPortClosed
	}
	select {
	case chunk := <-p.chunks:
		return copy(buf, chunk), nil
	default:
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-p.closed:
		return 0, boardlink.ErrPortClosed
	case chunk := <-p.chunks:
		return copy(buf, chunk), nil
	case <-p.hangup:
		select {
		case chunk := <-p.chunks:
			return copy(buf, chunk), nil
		default:
			return 0, io.EOF
		}
	}
}

func (p *Port) Write(data []byte) (int, error) {
	return p.WriteContext(context.Background(), data)
}

func (p *Port) WriteContext(ctx context.Context, data []byte) (int, error) {
	p.mu.Lock()
	block := p.blockWrite
	p.mu.Unlock()
	if block != nil {
		select {
		case <-block:
			return 0, boardlink.ErrPortClosed
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	if p.IsClosed() {
		return 0, boardlink.ErrPortClosed
	}
	select {
	case <-p.hangup:
		return 0, io.ErrClosedPipe
	default:
	}

	p.mu.Lock()
	if p.writeErr != nil {
		err := p.writeErr
		p.mu.Unlock()
		return 0, err
	}
	p.written.Write(data)
	p.writes++
	onWrite := p.onWrite
	p.mu.Unlock()

	if onWrite != nil {
		onWrite(append([]byte(nil), data...))
	}
	return len(data), nil
}

func (p *Port) Drain() error {
	if p.IsClosed() {
		return boardlink.ErrPortClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drainErr
}

func (p *Port) FlushInput() error {
	for {
		select {
		case <-p.chunks:
		default:
			return nil
		}
	}
}

func (p *Port) SetDTR(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dtr = state
	return nil
}

func (p *Port) SetRTS(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rts = state
	return nil
}

// DTR returns the DTR line state.
func (p *Port) DTR() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dtr
}

func (p *Port) Close() error {
	p.mu.Lock()
	p.closeCalls++
	p.mu.Unlock()

	if p.IsClosed() {
		return boardlink.ErrPortClosed
	}
	close(p.closed)
	return nil
}

// ErrUnplugged is a convenience error for simulated removal.
var ErrUnplugged = errors.New("device unplugged")
