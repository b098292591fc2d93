package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LastOrderStore persists the id of the customer's most recent order across
// restarts, so a reopened app can pick its tracking view back up.
type LastOrderStore struct {
	mu   sync.Mutex
	path string
}

// NewLastOrderStore creates a store backed by the given file path.
func NewLastOrderStore(path string) *LastOrderStore {
	return &LastOrderStore{path: path}
}

// Save writes the order id.
func (s *LastOrderStore) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(id), 0o644)
}

// Load returns the saved order id, or empty when none is saved.
func (s *LastOrderStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// Clear forgets the saved order id.
func (s *LastOrderStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
