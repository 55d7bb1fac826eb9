// Package identity persists the small per-device strings that survive
// application restarts: the client identifier used to recognize this
// device's conversation, and the accepted API credential. Message content is
// never persisted.
package identity

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists one opaque string under a fixed key.
type Store interface {
	Load() (string, bool)
	Save(value string) error
	Clear() error
}

// FileStore keeps the value in a single file under the user config dir.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath resolves the on-disk location for a named value, honoring
// XDG_CONFIG_HOME and falling back to ~/.config.
func DefaultPath(name string) (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "nymia", name), nil
}

// Load reads the stored value. A missing or empty file reads as absent.
func (s *FileStore) Load() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(string(data))
	return value, value != ""
}

// Save writes the value, creating parent directories as needed.
func (s *FileStore) Save(value string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(value+"\n"), 0o600)
}

// Clear removes the stored value. Clearing an absent value is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemoryStore implements Store in memory, suitable for tests.
type MemoryStore struct {
	mu    sync.Mutex
	value string
	set   bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load reads the stored value.
func (s *MemoryStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set && s.value != ""
}

// Save stores the value.
func (s *MemoryStore) Save(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.set = true
	return nil
}

// Clear drops the stored value.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = ""
	s.set = false
	return nil
}
