package boardlink

import (
	"context"
	"io"
)

// Port is an open serial endpoint. ReadContext and WriteContext block until data,
// hangup (io.EOF), closure (ErrPortClosed) or ctx cancellation.
type Port interface {
	io.ReadWriteCloser
	ReadContext(ctx context.Context, buf []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)

	// Drain waits until all output written to the port has been transmitted
	Drain() error
	FlushInput() error

	SetDTR(state bool) error
	SetRTS(state bool) error
}

// OpenFunc opens a port by path. Open satisfies it.
type OpenFunc func(path string, opts ...Option) (Port, error)
