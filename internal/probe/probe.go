// Package probe asks a connected board for its hardware unique id.
package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/allbin/go-boardlink"
)

// Command prints the cpu uid hex encoded, upper case and repr quoted.
const Command = `import microcontroller
import binascii
print(repr(binascii.hexlify(microcontroller.cpu.uid).decode('ascii').upper()))`

// Runner executes code on the board and returns its textual output.
type Runner interface {
	RunCode(ctx context.Context, code string) (string, error)
}

// Identify runs Command and parses the result.
func Identify(ctx context.Context, r Runner) (string, error) {
	out, err := r.RunCode(ctx, Command)
	if err != nil {
		return "", fmt.Errorf("%w: %w", boardlink.ErrIdentityProbeFailure, err)
	}
	return ParseIdentity(out)
}

// ParseIdentity extracts the identity from command output: the last non-empty line,
// trimmed, with one layer of matching quotes removed. The result is upper-cased and
// must be hexadecimal.
func ParseIdentity(out string) (string, error) {
	var line string
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			line = l
			break
		}
	}

	if len(line) >= 2 {
		first, last := line[0], line[len(line)-1]
		if first == last && (first == '\'' || first == '"') {
			line = strings.TrimSpace(line[1 : len(line)-1])
		}
	}
	if line == "" {
		return "", fmt.Errorf("%w: empty result", boardlink.ErrIdentityProbeFailure)
	}

	id := strings.ToUpper(line)
	for _, c := range id {
		if !strings.ContainsRune("0123456789ABCDEF", c) {
			return "", fmt.Errorf("%w: malformed result %q", boardlink.ErrIdentityProbeFailure, line)
		}
	}
	return id, nil
}
