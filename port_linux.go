//go:build linux

package boardlink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// port is the linux implementation of Port
type port struct {
	mu      sync.RWMutex
	fd      int
	path    string
	config  Config
	closed  bool
	closing atomic.Bool
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// Open opens path at BaudRate in raw mode and takes exclusive ownership of it.
// A second opener, in this process or another, gets ErrDeviceInUse.
func Open(path string, opts ...Option) (Port, error) {
	config, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	flags := unix.O_RDWR | unix.O_NOCTTY | unix.O_NONBLOCK | unix.O_CLOEXEC
	if config.WriteMode == WriteModeSynced {
		flags |= unix.O_SYNC
	}

	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, classifyErrno(err))
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to lock %s: %w", path, classifyErrno(err))
	}
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to claim %s: %w", path, classifyErrno(err))
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if config.InitialDTR != nil {
		if err := setModemLine(fd, unix.TIOCM_DTR, *config.InitialDTR); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}
	if config.InitialRTS != nil {
		if err := setModemLine(fd, unix.TIOCM_RTS, *config.InitialRTS); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}

	return &port{fd: fd, path: path, config: config}, nil
}

// classifyErrno maps open/lock errors onto the package sentinels
func classifyErrno(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	case errors.Is(err, unix.EBUSY), errors.Is(err, unix.EWOULDBLOCK):
		return fmt.Errorf("%w: %v", ErrDeviceInUse, err)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return err
	}
}

// configurePort puts the tty in raw 8N1 (or configured framing) at BaudRate.
// Reads are driven by poll(2), so VMIN=1 VTIME=0.
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %v", err)
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	}

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | unix.B115200
	termios.Ispeed = unix.B115200
	termios.Ospeed = unix.B115200

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %v", err)
	}
	return nil
}

func setModemLine(fd int, line int, state bool) error {
	if state {
		return unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, line)
	}
	return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, line)
}

// Close closes the serial port. In-flight reads and writes notice within one
// poll interval and return ErrPortClosed.
func (p *port) Close() error {
	p.closing.Store(true)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	p.closed = true
	unix.Flock(p.fd, unix.LOCK_UN)
	return unix.Close(p.fd)
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

// Write blocks until all of data has been handed to the kernel
func (p *port) Write(data []byte) (int, error) {
	return p.WriteContext(context.Background(), data)
}

// ReadContext blocks until at least one byte is read. A hangup reports io.EOF.
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

		ready, err := p.wait(unix.POLLIN)
		if err != nil {
			return 0, err
		}
		if !ready {
			continue
		}

		n, err := p.readOnce(buf)
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.EIO) {
			// A yanked CDC device reports EIO on the final read
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

// WriteContext writes all of data. ctx is only checked between chunks; a write
// already handed to the kernel is never abandoned.
func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if p.closing.Load() {
			return written, ErrPortClosed
		}

		ready, err := p.wait(unix.POLLOUT)
		if err != nil {
			return written, err
		}
		if !ready {
			continue
		}

		n, err := p.writeOnce(data[written:])
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// wait polls for events for at most one poll interval. It reports io.EOF when
// the device hung up with nothing left to read.
func (p *port) wait(events int16) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false, ErrPortClosed
	}

	fds := []unix.PollFd{{Fd: int32(p.fd), Events: events}}
	n, err := unix.Poll(fds, int(p.config.PollInterval/time.Millisecond))
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	revents := fds[0].Revents
	if revents&events != 0 {
		return true, nil
	}
	if revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		return false, io.EOF
	}
	return false, nil
}

func (p *port) readOnce(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return unix.Read(p.fd, buf)
}

func (p *port) writeOnce(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	return unix.Write(p.fd, data)
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}

// SetDTR sets the DTR line
func (p *port) SetDTR(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return setModemLine(p.fd, unix.TIOCM_DTR, state)
}

// SetRTS sets the RTS line
func (p *port) SetRTS(state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}
	return setModemLine(p.fd, unix.TIOCM_RTS, state)
}
