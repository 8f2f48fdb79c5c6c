//go:build !linux

package boardlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.bug.st/serial"
)

// port wraps a go.bug.st/serial port on hosts without the termios backend
type port struct {
	mu      sync.RWMutex
	sp      serial.Port
	config  Config
	closed  bool
	closing atomic.Bool
}

var _ Port = (*port)(nil)

// Open opens path at BaudRate. The driver opens the device exclusively, so a
// second opener gets ErrDeviceInUse.
func Open(path string, opts ...Option) (Port, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: config.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch config.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	}
	if config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	if config.InitialDTR != nil || config.InitialRTS != nil {
		mode.InitialStatusBits = &serial.ModemOutputBits{}
		if config.InitialDTR != nil {
			mode.InitialStatusBits.DTR = *config.InitialDTR
		}
		if config.InitialRTS != nil {
			mode.InitialStatusBits.RTS = *config.InitialRTS
		}
	}

	sp, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, classifyPortError(err))
	}
	if err := sp.SetReadTimeout(config.PollInterval); err != nil {
		sp.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &port{sp: sp, config: config}, nil
}

func classifyPortError(err error) error {
	var perr *serial.PortError
	if !errors.As(err, &perr) {
		return err
	}
	switch perr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	case serial.PortBusy:
		return fmt.Errorf("%w: %v", ErrDeviceInUse, err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return err
	}
}

// Close closes the serial port
func (p *port) Close() error {
	p.closing.Store(true)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	return p.sp.Close()
}

// Read waits up to ReadTimeout for data
func (p *port) Read(buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ReadTimeout)
	defer cancel()

	n, err := p.ReadContext(ctx, buf)
	if errors.Is(err, context.DeadlineExceeded) {
		return n, ErrReadTimeout
	}
	return n, err
}

// Write blocks until all of data has been written
func (p *port) Write(data []byte) (int, error) {
	return p.WriteContext(context.Background(), data)
}

// ReadContext blocks until at least one byte is read. The driver's read timeout
// returns (0, nil), which is the cue to re-check ctx and closure.
func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if p.closing.Load() {
			return 0, ErrPortClosed
		}

		n, err := p.readOnce(buf)
		if err != nil {
			var perr *serial.PortError
			if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
				return 0, io.EOF
			}
			return 0, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

// WriteContext writes all of data, checking ctx between chunks
func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if p.closing.Load() {
			return written, ErrPortClosed
		}

		p.mu.RLock()
		if p.closed {
			p.mu.RUnlock()
			return written, ErrPortClosed
		}
		n, err := p.sp.Write(data[written:])
		p.mu.RUnlock()
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func (p *port) readOnce(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return p.sp.Read(buf)
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.sp.Drain()
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.sp.ResetInputBuffer()
}

// SetDTR sets the DTR line
func (p *port) SetDTR(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.sp.SetDTR(state)
}

// SetRTS sets the RTS line
func (p *port) SetRTS(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return p.sp.SetRTS(state)
}
