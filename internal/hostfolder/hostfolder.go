// Package hostfolder binds a local working folder to an identified board and remembers
// the choice per board identity.
package hostfolder

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrNotBound is returned when no folder is bound.
var ErrNotBound = errors.New("no host folder bound")

// Store remembers folders by identity. *state.Store implements it.
type Store interface {
	Folder(identity string) (string, bool)
	SetFolder(identity, path string) error
	RemoveFolder(identity string) (bool, error)
}

// Binder holds the folder bound for the current board.
type Binder struct {
	fs     afero.Fs
	store  Store
	logger *zap.SugaredLogger

	mu       sync.Mutex
	identity string
	root     string
}

// New returns a binder over fs.
func New(fs afero.Fs, store Store, logger *zap.SugaredLogger) *Binder {
	return &Binder{fs: fs, store: store, logger: logger.Named("hostfolder")}
}

// Attach sets the identity used to remember folders. An empty identity binds
// folders without remembering them.
func (b *Binder) Attach(identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.identity != identity {
		b.root = ""
	}
	b.identity = identity
}

// Detach clears the identity and the bound folder.
func (b *Binder) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity = ""
	b.root = ""
}

// LoadRemembered binds the folder remembered for the attached identity. It reports
// whether a folder is now bound.
func (b *Binder) LoadRemembered() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.identity == "" {
		return false
	}
	path, ok := b.store.Folder(b.identity)
	if !ok {
		return false
	}
	exists, err := afero.DirExists(b.fs, path)
	if err != nil || !exists {
		b.logger.Infow("remembered folder missing", "identity", b.identity, "path", path, "error", err)
		return false
	}
	b.root = path
	b.logger.Debugw("loaded remembered folder", "identity", b.identity, "path", path)
	return true
}

// Select binds path and remembers it for the attached identity. It reports whether the
// bound folder changed.
func (b *Binder) Select(path string) (bool, error) {
	path = filepath.Clean(path)
	exists, err := afero.DirExists(b.fs, path)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("%s is not a directory", path)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if path == b.root {
		return false, nil
	}
	b.root = path
	if b.identity != "" {
		if err := b.store.SetFolder(b.identity, path); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Forget drops the remembered folder for the attached identity.
func (b *Binder) Forget() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.root = ""
	if b.identity == "" {
		return nil
	}
	_, err := b.store.RemoveFolder(b.identity)
	return err
}

// Root returns the bound folder path.
func (b *Binder) Root() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.root
}

// WorkingFolderName returns the bound folder's base name, or "" when unbound.
func (b *Binder) WorkingFolderName() string {
	root := b.Root()
	if root == "" {
		return ""
	}
	return filepath.Base(root)
}

// ListRoot returns the sorted entry names of the bound folder.
func (b *Binder) ListRoot() ([]string, error) {
	root := b.Root()
	if root == "" {
		return nil, ErrNotBound
	}
	entries, err := afero.ReadDir(b.fs, root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
