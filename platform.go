package boardlink

import (
	"fmt"
	"os"
	"runtime"
)

// Available reports whether this host exposes serial devices at all. It returns
// an error wrapping ErrPlatformUnavailable otherwise.
func Available() error {
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd", "openbsd", "netbsd", "windows":
	default:
		return fmt.Errorf("%w: unsupported OS %s", ErrPlatformUnavailable, runtime.GOOS)
	}

	dir := DeviceDir()
	if dir == "" {
		return nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not accessible", ErrPlatformUnavailable, dir)
	}
	return nil
}
