package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store as a single JSON file, the closest analogue
// to a browser profile's localStorage. The whole map is rewritten on
// every mutation; state here is tiny (a handful of short keys).
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// NewFileStore opens or creates the backing file.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session: file store path is empty")
	}
	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, &s.values); err != nil {
			// Corrupt state file: start fresh rather than fail the widget.
			s.values = make(map[string]string)
		}
	}
	return s, nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.flushLocked()
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return s.flushLocked()
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushLocked()
}

// flushLocked writes through a temp file so a crash mid-write cannot
// leave a truncated state file behind.
func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
