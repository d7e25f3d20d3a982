package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPath is the state file used when none is configured.
const DefaultPath = "sync_state.json"

// FileStore keeps state in a single JSON document.
//
// A missing file reads as empty state. Saves go to a temp file that is renamed
// over the original, so readers never see a partial document. Update is
// serialized in-process with a mutex and across processes with an advisory
// lock on path+".lock" where the platform supports it.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is not touched until
// the first Load or Save.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing or empty file yields an empty map.
func (s *FileStore) Load() (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	records := map[string]Record{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return records, nil
}

// Save replaces the whole state file with records.
func (s *FileStore) Save(records map[string]Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(records)
}

func (s *FileStore) save(records map[string]Record) error {
	if records == nil {
		records = map[string]Record{}
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Update loads the state, applies fn to the table's record and saves the
// result, holding both the in-process and file locks throughout.
func (s *FileStore) Update(table string, fn func(Record, bool) (Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return fmt.Errorf("failed to lock state file: %w", err)
	}
	defer unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	current, ok := records[table]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	records[table] = next
	return s.save(records)
}
