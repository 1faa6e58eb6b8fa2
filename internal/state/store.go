// Package state persists the last observed canonical value per task.
//
// The store is a single human-readable JSON file mapping task IDs to values,
// rewritten atomically on every change. A value never appears for a task
// that has not completed at least one successful transformation. Set is
// synchronous: when it returns nil the new value is durable, which is what
// lets the runner order persistence before action invocation.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"vigil/internal/fileutil"
)

// ErrCorrupt marks a state file that exists but cannot be parsed. The daemon
// treats it according to the configured on_corrupt policy; it is never fatal
// by itself.
var ErrCorrupt = errors.New("corrupt state")

type document struct {
	Results map[string]string `json:"results"`
}

// Store is the durable task-id to last-canonical-value mapping. All access
// goes through Get/Set/Clear so in-memory and on-disk state never diverge.
type Store struct {
	mu      sync.Mutex
	path    string
	results map[string]string
}

// Open loads the store at path. A missing file yields an empty store. An
// unparseable file yields an empty, usable store together with an error
// wrapping ErrCorrupt so the caller can apply its corruption policy.
func Open(path string) (*Store, error) {
	store := &Store{
		path:    path,
		results: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return store, fmt.Errorf("%w: parse %s: %w", ErrCorrupt, path, err)
	}
	if doc.Results != nil {
		store.results = doc.Results
	}
	return store, nil
}

// OpenWithPolicy opens the store at path and applies the configured
// corruption policy when the file cannot be parsed. Policy "fail" turns
// corruption into a hard error; any other policy (the "rebaseline" default)
// moves the unreadable file to <path>.corrupt and returns an empty store
// together with the backup location, so the caller can report the
// re-baseline before every task's next observation counts as a change.
func OpenWithPolicy(path, onCorrupt string) (*Store, string, error) {
	store, err := Open(path)
	if err == nil {
		return store, "", nil
	}
	if !errors.Is(err, ErrCorrupt) {
		return nil, "", err
	}
	if onCorrupt == "fail" {
		return nil, "", fmt.Errorf("state.on_corrupt=fail: %w", err)
	}
	backup, backupErr := BackupCorrupt(path)
	if backupErr != nil {
		return nil, "", fmt.Errorf("preserve corrupt state before rebaseline: %w", backupErr)
	}
	return store, backup, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the last persisted value for taskID.
func (s *Store) Get(taskID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.results[taskID]
	return value, ok
}

// Set durably records value for taskID. On error the previous in-memory and
// on-disk state are both preserved.
func (s *Store) Set(taskID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.results[taskID]
	s.results[taskID] = value
	if err := s.writeLocked(); err != nil {
		if existed {
			s.results[taskID] = previous
		} else {
			delete(s.results, taskID)
		}
		return err
	}
	return nil
}

// Clear removes the persisted value for taskID. Clearing an unknown task is
// a no-op.
func (s *Store) Clear(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.results[taskID]
	if !existed {
		return nil
	}
	delete(s.results, taskID)
	if err := s.writeLocked(); err != nil {
		s.results[taskID] = previous
		return err
	}
	return nil
}

// ClearAll removes every persisted value.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.results) == 0 {
		return nil
	}
	previous := s.results
	s.results = make(map[string]string)
	if err := s.writeLocked(); err != nil {
		s.results = previous
		return err
	}
	return nil
}

// Snapshot returns a copy of the current mapping.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.results))
	for key, value := range s.results {
		out[key] = value
	}
	return out
}

// TaskIDs returns the stored task IDs in sorted order.
func (s *Store) TaskIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.results))
	for id := range s.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored values.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *Store) writeLocked() error {
	doc := document{Results: s.results}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// BackupCorrupt copies an unreadable state file aside to <path>.corrupt so a
// rebaselining daemon does not destroy the evidence. Missing originals are
// ignored.
func BackupCorrupt(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	backup := path + ".corrupt"
	if err := fileutil.CopyFile(path, backup); err != nil {
		return "", fmt.Errorf("back up corrupt state: %w", err)
	}
	return backup, nil
}
