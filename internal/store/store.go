// Package store persists scheduled actions in a single JSON file.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	appLog "skillsched/internal/log"
	"skillsched/internal/recurrence"
	"skillsched/internal/schedule"
)

var (
	ErrNotFound      = errors.New("store: scheduled action not found")
	ErrInvalidAction = errors.New("store: scheduled action is invalid")
)

const fileVersion = 1

type fileContents struct {
	Version          int                        `json:"version"`
	ScheduledActions []schedule.ScheduledAction `json:"scheduledActions"`
}

// Store is safe for concurrent use. Every write rewrites the whole file.
type Store struct {
	mu      sync.RWMutex
	path    string
	actions []schedule.ScheduledAction
}

// Open loads the store at path. A missing file is an empty store; the file
// is created on the first write.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path is empty")
	}
	s := &Store{path: path, actions: []schedule.ScheduledAction{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		appLog.Info("store: starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read: %w", err)
	}

	var fc fileContents
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	if fc.ScheduledActions != nil {
		s.actions = fc.ScheduledActions
	}
	appLog.Info("store: loaded", "path", path, "count", len(s.actions))
	return s, nil
}

// List returns every action in insertion order.
func (s *Store) List() []schedule.ScheduledAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schedule.ScheduledAction, len(s.actions))
	for i, a := range s.actions {
		out[i] = a.Clone(schedule.Patch{})
	}
	return out
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.actions, func(a schedule.ScheduledAction) bool { return a.ID == id })
}

func (s *Store) Get(id string) (schedule.ScheduledAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return schedule.ScheduledAction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.actions[i].Clone(schedule.Patch{}), nil
}

// Put saves a valid action. New actions get a fresh id; an id that is not
// in the store is ErrNotFound.
func (s *Store) Put(a schedule.ScheduledAction) (schedule.ScheduledAction, error) {
	if !a.IsValid() {
		return schedule.ScheduledAction{}, ErrInvalidAction
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.actions)
	if a.IsNew() {
		id := uuid.NewString()
		a = a.Clone(schedule.Patch{ID: &id})
		next = append(next, a)
	} else {
		i := s.indexOf(a.ID)
		if i < 0 {
			return schedule.ScheduledAction{}, fmt.Errorf("%w: %s", ErrNotFound, a.ID)
		}
		next[i] = a
	}
	if err := s.commit(next); err != nil {
		return schedule.ScheduledAction{}, err
	}
	return a, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.commit(slices.Delete(slices.Clone(s.actions), i, i+1))
}

// RecordRun counts one run of the action against its repeat limit.
func (s *Store) RecordRun(id string) (schedule.ScheduledAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return schedule.ScheduledAction{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a := s.actions[i]
	ran := a.Recurrence.TimesHasRun + 1
	r := a.Recurrence.Clone(recurrence.Patch{TimesHasRun: &ran})
	a = a.Clone(schedule.Patch{Recurrence: &r})

	next := slices.Clone(s.actions)
	next[i] = a
	if err := s.commit(next); err != nil {
		return schedule.ScheduledAction{}, err
	}
	return a, nil
}

// commit writes next to disk and only then makes it visible.
func (s *Store) commit(next []schedule.ScheduledAction) error {
	data, err := json.MarshalIndent(fileContents{Version: fileVersion, ScheduledActions: next}, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	s.actions = next
	return nil
}

// writeAtomic writes to a temp file in the same directory, then renames it
// over path with 0600 permissions.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".skillsched-store-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
