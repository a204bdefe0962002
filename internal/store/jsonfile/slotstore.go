// Package jsonfile provides JSON file-backed persistence.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/hay-kot/msgscope/internal/core/history"
)

// SlotFile is the root JSON structure stored on disk.
type SlotFile struct {
	Slots map[string]json.RawMessage `json:"slots"`
}

// SlotStore implements history.Slot using a JSON file for persistence. Each
// slot value must itself be valid JSON. A file that does not parse reads as
// history.ErrSlotCorrupt and is replaced by the next Write.
type SlotStore struct {
	path string
	mu   sync.RWMutex
}

// NewSlotStore creates a new JSON file slot store at the given path.
func NewSlotStore(path string) *SlotStore {
	return &SlotStore{path: path}
}

// Path returns the backing file path.
func (s *SlotStore) Path() string {
	return s.path
}

// lockPath returns the path to the lock file.
func (s *SlotStore) lockPath() string {
	return s.path + ".lock"
}

// withSharedLock executes fn while holding a shared (read) file lock.
// Multiple processes can hold shared locks simultaneously.
func (s *SlotStore) withSharedLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_SH, fn)
}

// withExclusiveLock executes fn while holding an exclusive (write) file lock.
// Only one process can hold an exclusive lock at a time.
func (s *SlotStore) withExclusiveLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_EX, fn)
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
func (s *SlotStore) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// Read returns the raw value of a slot. Returns history.ErrSlotNotFound if
// the slot has never been written and history.ErrSlotCorrupt if the file
// does not parse.
func (s *SlotStore) Read(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		value []byte
		found bool
	)

	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		var raw json.RawMessage
		raw, found = file.Slots[key]
		value = []byte(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, history.ErrSlotNotFound
	}

	return value, nil
}

// Write replaces the value of a slot, leaving other slots untouched. A
// corrupt file is discarded and rewritten with this slot only.
func (s *SlotStore) Write(ctx context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("slot %q: value is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		file, err := s.load()
		switch {
		case errors.Is(err, history.ErrSlotCorrupt):
			file = SlotFile{Slots: make(map[string]json.RawMessage)}
		case err != nil:
			return err
		}

		file.Slots[key] = json.RawMessage(value)
		return s.save(file)
	})
}

// Keys returns the names of all stored slots, sorted.
func (s *SlotStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string

	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		for k := range file.Slots {
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// load reads the slot file from disk.
// Returns an empty SlotFile if the file doesn't exist.
func (s *SlotStore) load() (SlotFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return SlotFile{Slots: make(map[string]json.RawMessage)}, nil
		}
		return SlotFile{}, fmt.Errorf("read slot file: %w", err)
	}

	if len(data) == 0 {
		return SlotFile{Slots: make(map[string]json.RawMessage)}, nil
	}

	var file SlotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return SlotFile{}, fmt.Errorf("%w: parse %s: %v", history.ErrSlotCorrupt, s.path, err)
	}

	if file.Slots == nil {
		file.Slots = make(map[string]json.RawMessage)
	}

	return file, nil
}

// save writes the slot file to disk atomically.
func (s *SlotStore) save(file SlotFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create slot directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal slots: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
