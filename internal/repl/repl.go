// Package repl runs code on a board through the raw REPL. The session stays owned by
// the caller: outbound bytes go through a Sender and inbound text arrives via Feed.
package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Control sequences
const (
	interrupt = "\r\x03\x03"
	enterRaw  = "\r\x01"
	exitRaw   = "\x02"
	execute   = "\x04"

	rawBanner = "raw REPL; CTRL-B to exit"
	okMarker  = "OK"
	eot       = "\x04"
	prompt    = ">"
)

// ErrDeviceException is returned when the code raised on the board.
var ErrDeviceException = errors.New("exception on device")

// Sender delivers bytes to the board.
type Sender interface {
	Send(data []byte)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func([]byte)

// Send implements Sender.
func (f SenderFunc) Send(data []byte) { f(data) }

// Runner executes one code block at a time.
type Runner struct {
	sender Sender
	runMu  sync.Mutex

	mu      sync.Mutex
	active  bool
	buf     strings.Builder
	changed chan struct{}
}

// New returns a runner writing through sender.
func New(sender Sender) *Runner {
	return &Runner{sender: sender, changed: make(chan struct{})}
}

// Feed appends received text. Text arriving while no RunCode is in progress is
// dropped.
func (r *Runner) Feed(text string) {
	if text == "" {
		return
	}
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.buf.WriteString(text)
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
}

// begin clears the buffer and starts collecting fed text.
func (r *Runner) begin() {
	r.mu.Lock()
	r.active = true
	r.buf.Reset()
	r.mu.Unlock()
}

// end stops collecting and releases the buffer.
func (r *Runner) end() {
	r.mu.Lock()
	r.active = false
	r.buf = strings.Builder{}
	r.mu.Unlock()
}

// Buffered reports how many received bytes are held.
func (r *Runner) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}

// waitFor blocks until marker is received and returns the text before it. The text up
// to and including marker is consumed.
func (r *Runner) waitFor(ctx context.Context, marker string) (string, error) {
	for {
		r.mu.Lock()
		s := r.buf.String()
		if i := strings.Index(s, marker); i >= 0 {
			r.buf.Reset()
			r.buf.WriteString(s[i+len(marker):])
			r.mu.Unlock()
			return s[:i], nil
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for %q: %w", marker, ctx.Err())
		case <-changed:
		}
	}
}

// RunCode interrupts any running program, runs code in raw mode and returns what it
// printed. An exception on the board is returned as ErrDeviceException with the
// traceback.
func (r *Runner) RunCode(ctx context.Context, code string) (string, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.begin()
	defer r.end()
	r.sender.Send([]byte(interrupt))
	r.sender.Send([]byte(enterRaw))
	defer r.sender.Send([]byte(exitRaw))

	if _, err := r.waitFor(ctx, rawBanner); err != nil {
		return "", err
	}
	if _, err := r.waitFor(ctx, prompt); err != nil {
		return "", err
	}

	r.sender.Send([]byte(code + execute))
	if _, err := r.waitFor(ctx, okMarker); err != nil {
		return "", err
	}
	stdout, err := r.waitFor(ctx, eot)
	if err != nil {
		return "", err
	}
	stderr, err := r.waitFor(ctx, eot)
	if err != nil {
		return stdout, err
	}
	if _, err := r.waitFor(ctx, prompt); err != nil {
		return stdout, err
	}

	if tb := strings.TrimSpace(stderr); tb != "" {
		return stdout, fmt.Errorf("%w: %s", ErrDeviceException, tb)
	}
	return stdout, nil
}
