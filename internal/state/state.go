// Package state persists the authorized device list and remembered host folders.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	devicesKey = "devices"
	foldersKey = "folders"
)

// Device is an authorized serial device.
type Device struct {
	Key   string `mapstructure:"key"`
	Path  string `mapstructure:"path"`
	Label string `mapstructure:"label"`
}

// Folder maps a device identity to a host folder.
type Folder struct {
	Identity string `mapstructure:"identity"`
	Path     string `mapstructure:"path"`
}

// Store is a yaml state file. Entries are kept as lists since device keys and
// paths contain viper's key delimiter.
type Store struct {
	mu      sync.Mutex
	v       *viper.Viper
	fs      afero.Fs
	path    string
	devices []Device
	folders []Folder
}

// DefaultPath returns the state file location under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "boardlink", "state.yaml")
}

// Open loads the state file at path. A missing file yields an empty store.
func Open(fs afero.Fs, path string) (*Store, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	s := &Store{v: v, fs: fs, path: path}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat state file %s: %w", path, err)
	}
	if !exists {
		return s, nil
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", path, err)
	}
	if err := v.UnmarshalKey(devicesKey, &s.devices); err != nil {
		return nil, fmt.Errorf("invalid %s in %s: %w", devicesKey, path, err)
	}
	if err := v.UnmarshalKey(foldersKey, &s.folders); err != nil {
		return nil, fmt.Errorf("invalid %s in %s: %w", foldersKey, path, err)
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Devices returns a copy of the authorized devices.
func (s *Store) Devices() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Device(nil), s.devices...)
}

// PutDevice adds d or replaces the entry with the same key.
func (s *Store) PutDevice(d Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.devices {
		if s.devices[i].Key == d.Key {
			s.devices[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		s.devices = append(s.devices, d)
	}
	return s.save()
}

// RemoveDevice drops the device with key. It reports whether one was removed.
func (s *Store) RemoveDevice(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.devices {
		if s.devices[i].Key == key {
			s.devices = append(s.devices[:i], s.devices[i+1:]...)
			return true, s.save()
		}
	}
	return false, nil
}

// Folder returns the folder remembered for identity.
func (s *Store) Folder(identity string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.folders {
		if f.Identity == identity {
			return f.Path, true
		}
	}
	return "", false
}

// Folders returns a copy of all remembered folders.
func (s *Store) Folders() []Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Folder(nil), s.folders...)
}

// SetFolder remembers path for identity.
func (s *Store) SetFolder(identity, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.folders {
		if s.folders[i].Identity == identity {
			s.folders[i].Path = path
			return s.save()
		}
	}
	s.folders = append(s.folders, Folder{Identity: identity, Path: path})
	return s.save()
}

// RemoveFolder forgets the folder for identity.
func (s *Store) RemoveFolder(identity string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.folders {
		if s.folders[i].Identity == identity {
			s.folders = append(s.folders[:i], s.folders[i+1:]...)
			return true, s.save()
		}
	}
	return false, nil
}

// save must be called with mu held.
func (s *Store) save() error {
	devices := make([]map[string]any, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, map[string]any{"key": d.Key, "path": d.Path, "label": d.Label})
	}
	folders := make([]map[string]any, 0, len(s.folders))
	for _, f := range s.folders {
		folders = append(folders, map[string]any{"identity": f.Identity, "path": f.Path})
	}
	s.v.Set(devicesKey, devices)
	s.v.Set(foldersKey, folders)

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", s.path, err)
	}
	return nil
}
