// Package state keeps per-user ReminderMaps in a JSON file under the tickler
// state directory (~/.local/state/tickler/reminders.json).
//
// Every read-modify-write holds an exclusive flock on a sibling lock file,
// so a CLI command and a running `tickler watch` can share the file.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/amonks/tickler/reminder"
)

const (
	fileName      = "reminders.json"
	lockName      = "reminders.lock"
	formatVersion = 1

	lockRetry = 10 * time.Millisecond
)

// ErrUnsupportedVersion is returned for a state file written by a newer tickler.
var ErrUnsupportedVersion = errors.New("unsupported state file version")

// State is the decoded state file.
type State struct {
	Version int `json:"version"`
	// Users maps user id to that user's ReminderMap.
	Users map[string]reminder.Map `json:"users"`
}

func emptyState() *State {
	return &State{Version: formatVersion, Users: make(map[string]reminder.Map)}
}

// Store reads and writes the state file in one directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path() string     { return filepath.Join(s.dir, fileName) }
func (s *Store) lockPath() string { return filepath.Join(s.dir, lockName) }

// Load reads the state file without locking. A missing file is an empty state.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return emptyState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return decodeState(data)
}

func decodeState(data []byte) (*State, error) {
	st := emptyState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	if st.Version > formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, st.Version)
	}
	st.Version = formatVersion
	if st.Users == nil {
		st.Users = make(map[string]reminder.Map)
	}
	return st, nil
}

// Update locks the state file, applies fn to its contents and writes the
// result back. The file is left untouched when fn fails or changes nothing.
func (s *Store) Update(ctx context.Context, fn func(st *State) error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	st, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.write(st)
}

// lock takes the exclusive flock, polling so that ctx can abandon the wait.
func (s *Store) lock(ctx context.Context) (func(), error) {
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	fd := int(f.Fd())
	for {
		err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			f.Close()
			return nil, fmt.Errorf("acquire state lock: %w", err)
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, fmt.Errorf("acquire state lock: %w", ctx.Err())
		case <-time.After(lockRetry):
		}
	}
	return func() {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
	}, nil
}

// write replaces the state file through a synced temp file and rename.
func (s *Store) write(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	data = append(data, '\n')

	existing, err := os.ReadFile(s.path())
	switch {
	case err == nil && bytes.Equal(existing, data):
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("read state file: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(name, s.path()); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
