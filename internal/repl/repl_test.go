package repl

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/allbin/go-boardlink/internal/testutils"
)

// pipe feeds a fake board's output back into the runner.
func pipe(t *testing.T, respond func(string) (string, string)) (*Runner, *testutils.Board, func()) {
	t.Helper()
	port := testutils.NewPort()
	board := testutils.NewBoard(port, respond)
	r := New(SenderFunc(func(b []byte) { _, _ = port.Write(b) }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 256)
		for {
			n, err := port.ReadContext(ctx, buf)
			if n > 0 {
				r.Feed(string(buf[:n]))
			}
			if err != nil {
				return
			}
		}
	}()
	return r, board, func() {
		cancel()
		<-done
	}
}

func TestRunCode(t *testing.T) {
	r, board, stop := pipe(t, testutils.IdentityResponder("E6614C311B7A4C2F"))
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := r.RunCode(ctx, "import microcontroller\nprint(microcontroller.cpu.uid)")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "'E6614C311B7A4C2F'\r\n")
	test.That(t, board.Runs(), test.ShouldHaveLength, 1)

	out, err = r.RunCode(ctx, "print(1)")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "")
	test.That(t, board.Runs(), test.ShouldHaveLength, 2)
}

func TestRunCodeException(t *testing.T) {
	r, _, stop := pipe(t, func(string) (string, string) {
		return "", "Traceback (most recent call last):\r\nImportError: no module named 'binascii'\r\n"
	})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.RunCode(ctx, "import binascii")
	test.That(t, errors.Is(err, ErrDeviceException), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ImportError")
}

func TestRunCodeTimeout(t *testing.T) {
	var sent strings.Builder
	r := New(SenderFunc(func(b []byte) { sent.Write(b) }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.RunCode(ctx, "print(1)")
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
	test.That(t, sent.String(), test.ShouldEqual, interrupt+enterRaw+exitRaw)
}

func TestWaitForSplitMarker(t *testing.T) {
	r := New(SenderFunc(func([]byte) {}))
	r.begin()
	defer r.end()
	go func() {
		r.Feed("raw RE")
		r.Feed("PL; CTRL-B to exit\r\n>rest")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	before, err := r.waitFor(ctx, rawBanner)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, before, test.ShouldEqual, "")

	before, err = r.waitFor(ctx, prompt)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, before, test.ShouldEqual, "\r\n")
}

func TestFeedWhileIdleIsDropped(t *testing.T) {
	r, _, stop := pipe(t, testutils.IdentityResponder("E6614C311B7A4C2F"))
	defer stop()

	chunk := strings.Repeat("x", 1024)
	for i := 0; i < 64; i++ {
		r.Feed(chunk)
	}
	test.That(t, r.Buffered(), test.ShouldEqual, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := r.RunCode(ctx, "print(1)")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldEqual, "")

	r.Feed(chunk)
	test.That(t, r.Buffered(), test.ShouldEqual, 0)
}
