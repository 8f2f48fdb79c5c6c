package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long device node events must stay quiet before a hotplug
// event is emitted. Enumeration creates several nodes in a burst.
const DefaultSettle = 250 * time.Millisecond

var portPrefixes = []string{"ttyACM", "ttyUSB", "cu.usbmodem", "cu.usbserial", "tty.usbmodem"}

// IsSerialNode reports whether a device node name looks like a USB serial port.
func IsSerialNode(name string) bool {
	for _, prefix := range portPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Watch emits on the returned channel after serial device nodes appear in dir.
// The channel is closed when ctx is done.
func Watch(ctx context.Context, dir string, settle time.Duration, logger *zap.SugaredLogger) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logger = logger.Named("hotplug")
	events := make(chan struct{}, 1)
	// fired is never closed; the debounce timer may run after the loop exits.
	fired := make(chan struct{}, 1)
	notify := func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}
	debounced := debounce.New(settle)

	go func() {
		defer close(events)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-fired:
				select {
				case events <- struct{}{}:
				default:
				}
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) || !IsSerialNode(filepath.Base(ev.Name)) {
					continue
				}
				logger.Debugw("device node created", "path", ev.Name)
				debounced(notify)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("watch error", "error", err)
			}
		}
	}()
	return events, nil
}
