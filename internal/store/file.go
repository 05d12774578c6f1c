package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// fileItem is the on-disk representation of a single entry.
type fileItem struct {
	Value     []byte `json:"value"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // Unix-nano. 0 for no expiry.
}

// FileStore is a key-value store persisted to a single JSON file. The whole
// map is rewritten on every mutation, which is acceptable for the small
// payloads this module stores (response cache, password record, queues).
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string]fileItem
}

// NewFileStore opens (or creates) a file-backed store at path. A missing
// or corrupt file degrades to an empty store rather than failing: losing a
// cache is recoverable, refusing to start is not.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file store: create directory: %w", err)
		}
	}

	s := &FileStore{
		path: path,
		data: make(map[string]fileItem),
	}
	s.load()
	return s, nil
}

func (s *FileStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).Warn("FileStore: could not read state file, starting empty")
		}
		return
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		logrus.WithError(err).Warn("FileStore: state file is corrupt, starting empty")
		s.data = make(map[string]fileItem)
	}
}

// save rewrites the state file. Callers must hold the mutex.
func (s *FileStore) save() error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("file store: encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("file store: write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("file store: replace state: %w", err)
	}
	return nil
}

// Set stores a key-value pair and persists the store.
func (s *FileStore) Set(key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().UnixNano() + ttl.Nanoseconds()
	}
	s.data[key] = fileItem{Value: value, ExpiresAt: expiresAt}
	return s.save()
}

// Get retrieves a value by its key.
func (s *FileStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.data[key]
	if !exists {
		return nil, ErrNotFound
	}
	if item.ExpiresAt > 0 && time.Now().UnixNano() > item.ExpiresAt {
		delete(s.data, key)
		if err := s.save(); err != nil {
			logrus.WithError(err).Warn("FileStore: could not persist expiry cleanup")
		}
		return nil, ErrNotFound
	}
	return item.Value, nil
}

// Delete removes a value by its key and persists the store.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		return nil
	}
	delete(s.data, key)
	return s.save()
}

// Exists checks if a key exists and has not expired.
func (s *FileStore) Exists(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.data[key]
	if !exists {
		return false, nil
	}
	if item.ExpiresAt > 0 && time.Now().UnixNano() > item.ExpiresAt {
		return false, nil
	}
	return true, nil
}

// Close is a no-op; every mutation is persisted immediately.
func (s *FileStore) Close() error {
	return nil
}
