package permission

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the permission table.
type Store interface {
	// Load returns every saved record keyed by target. A missing store
	// yields an empty table.
	Load() (map[string]Record, error)

	// Save replaces the saved table.
	Save(records map[string]Record) error
}

const storeVersion = "1"

// FileStore implements Store with a JSON file written atomically.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileFormat struct {
	Version string            `json:"version"`
	Records map[string]Record `json:"records"`
}

// NewFileStore creates a store at path. If path is empty it defaults to
// ~/.tabsweep/permissions.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".tabsweep", "permissions.json")
	}
	return &FileStore{path: path}, nil
}

// Load reads the table from disk.
func (s *FileStore) Load() (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Record), nil
		}
		return nil, fmt.Errorf("failed to read permission file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode permission file: %w", err)
	}
	if f.Records == nil {
		f.Records = make(map[string]Record)
	}
	for target, rec := range f.Records {
		// The key is authoritative.
		rec.Target = target
		f.Records[target] = rec
	}
	return f.Records, nil
}

// Save writes the table through a temp file and rename.
func (s *FileStore) Save(records map[string]Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create permission directory: %w", err)
	}

	data, err := json.MarshalIndent(fileFormat{Version: storeVersion, Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp permission file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// MemoryStore keeps the table in memory. It is used when persistence is not
// wanted and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	saves   int
	SaveErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Load returns a copy of the stored table.
func (m *MemoryStore) Load() (map[string]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

// Save replaces the stored table with a copy of records.
func (m *MemoryStore) Save(records map[string]Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.records = make(map[string]Record, len(records))
	for k, v := range records {
		m.records[k] = v
	}
	return nil
}

// Saves counts Save calls.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
