// Package dedup persists which source documents have been processed so a
// crashed or restarted ingester never double-processes a document.
package dedup

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Status is a processing state. Absence from the store means unprocessed.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record is one source document's processing state.
type Record struct {
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store is a mutex-guarded map keyed by source document identity, persisted
// as a flat JSON file after every transition. The file is written to a temp
// path and renamed so a crash mid-write cannot corrupt it.
//
// A Processing entry has no expiry: a worker that crashed mid-document
// leaves its key Processing until an operator resets it.
type Store struct {
	mu      sync.Mutex
	path    string
	records map[string]Record
}

// Open loads the state file at path into memory. A missing or empty file is
// an empty store. A file that exists but does not parse is a hard error:
// resetting it silently would let completed documents reprocess.
func Open(path string) (*Store, error) {
	s := &Store{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dedup: read state file %s", path)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, eris.Wrapf(err, "dedup: corrupt state file %s", path)
	}

	return s, nil
}

// TryBegin claims key for processing. It returns false when the key is
// already present in any state; terminal states are sticky and only Reset
// makes a key eligible again.
func (s *Store) TryBegin(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key]; exists {
		return false, nil
	}
	s.records[key] = Record{Status: StatusProcessing, StartedAt: time.Now().UTC()}
	if err := s.persistLocked(); err != nil {
		delete(s.records, key)
		return false, err
	}
	return true, nil
}

// MarkCompleted transitions key from Processing to Completed.
func (s *Store) MarkCompleted(key string) error {
	return s.finish(key, StatusCompleted)
}

// MarkFailed transitions key from Processing to Failed.
func (s *Store) MarkFailed(key string) error {
	return s.finish(key, StatusFailed)
}

func (s *Store) finish(key string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]
	if !exists {
		return eris.Errorf("dedup: unknown key %q", key)
	}
	if rec.Status == status {
		return nil
	}
	if rec.Status.Terminal() {
		return eris.Errorf("dedup: key %q already %s", key, rec.Status)
	}

	now := time.Now().UTC()
	rec.Status = status
	rec.CompletedAt = &now
	s.records[key] = rec
	return s.persistLocked()
}

// IsProcessed reports whether key is present in any state. Processing counts:
// an in-flight (or crashed mid-flight) document must not be picked up again.
func (s *Store) IsProcessed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.records[key]
	return exists
}

// Status returns key's record, if present.
func (s *Store) Status(key string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, exists := s.records[key]
	return rec, exists
}

// Reset removes key so it may be processed again. This is the only way out
// of a terminal or stuck-Processing state, and it is deliberately explicit.
func (s *Store) Reset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[key]; !exists {
		return nil
	}
	delete(s.records, key)
	return s.persistLocked()
}

// Snapshot returns a copy of every record, for status reporting.
func (s *Store) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "dedup: marshal state")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "dedup: create state dir %s", dir)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "dedup: write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrapf(err, "dedup: rename %s", tmp)
	}
	return nil
}
