package testutils

import (
	"bytes"
	"sync"
)

const rawPrompt = "raw REPL; CTRL-B to exit\r\n>"

// Board answers raw REPL traffic written to a Port. Respond maps submitted code to
// stdout and stderr.
type Board struct {
	port    *Port
	respond func(code string) (stdout, stderr string)

	mu   sync.Mutex
	raw  bool
	code bytes.Buffer
	runs []string
}

// NewBoard attaches a board to port.
func NewBoard(port *Port, respond func(code string) (stdout, stderr string)) *Board {
	b := &Board{port: port, respond: respond}
	port.OnWrite(b.handle)
	return b
}

// IdentityResponder answers the identity command with uid in repr quoting.
func IdentityResponder(uid string) func(string) (string, string) {
	return func(code string) (string, string) {
		if bytes.Contains([]byte(code), []byte("microcontroller.cpu.uid")) {
			return "'" + uid + "'\r\n", ""
		}
		return "", ""
	}
}

// Runs returns the code submitted so far.
func (b *Board) Runs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.runs...)
}

func (b *Board) handle(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range data {
		switch {
		case c == 0x01:
			b.raw = true
			b.code.Reset()
			b.port.Push([]byte(rawPrompt))
		case c == 0x02:
			b.raw = false
			b.port.Push([]byte("\r\nAdafruit CircuitPython 9.2.1\r\n>>> "))
		case c == 0x03:
			b.code.Reset()
		case c == 0x04 && b.raw:
			code := b.code.String()
			b.code.Reset()
			b.runs = append(b.runs, code)
			stdout, stderr := b.respond(code)
			b.port.Push([]byte("OK" + stdout + "\x04" + stderr + "\x04>"))
		case b.raw:
			b.code.WriteByte(c)
		}
	}
}
