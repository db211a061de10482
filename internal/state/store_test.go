package state

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amonks/tickler/reminder"
)

func TestStore_LoadMissingFile(t *testing.T) {
	st, err := NewStore(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Version != formatVersion {
		t.Fatalf("expected version %d, got %d", formatVersion, st.Version)
	}
	if len(st.Users) != 0 {
		t.Fatalf("expected no users, got %d", len(st.Users))
	}
}

func TestStore_UpdateRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	trigger := time.Date(2026, time.March, 1, 8, 50, 0, 0, time.UTC)

	err := store.Update(context.Background(), func(st *State) error {
		st.Users["alice"] = reminder.Map{"task-1": {Handle: "h-1", TriggerAt: trigger}}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	entry := loaded.Users["alice"]["task-1"]
	if entry.Handle != "h-1" || !entry.TriggerAt.Equal(trigger) {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	data, err := os.ReadFile(store.path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"version": 1`) {
		t.Fatalf("expected version in file, got %s", data)
	}
}

func TestStore_UnchangedStateIsNotRewritten(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	seed := func(st *State) error {
		st.Users["alice"] = reminder.Map{"task-1": {Handle: "h-1"}}
		return nil
	}
	if err := store.Update(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	old := time.Unix(1, 0)
	if err := os.Chtimes(store.path(), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := store.Update(ctx, seed); err != nil {
		t.Fatalf("second update: %v", err)
	}

	info, err := os.Stat(store.path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.ModTime().Equal(old) {
		t.Fatalf("expected mod time to stay %v, got %v", old, info.ModTime())
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := os.WriteFile(store.path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestStore_RejectsNewerVersion(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := os.WriteFile(store.path(), []byte(`{"version": 2, "users": {}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestStore_UpdateHonorsContextWhileLocked(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := os.MkdirAll(store.dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	unlock, err := store.lock(context.Background())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = store.Update(ctx, func(st *State) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReminderStore_UsersAreIsolated(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	alice := store.ReminderStore("alice")

	err := alice.Update(ctx, func(m reminder.Map) error {
		m["task-1"] = reminder.Entry{Handle: "h-1", TriggerAt: time.Now()}
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	loaded, err := alice.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded["task-1"].Handle != "h-1" {
		t.Fatal("update did not persist")
	}

	other, err := store.ReminderStore("bob").Load(ctx)
	if err != nil {
		t.Fatalf("load bob: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected bob to have no reminders, got %v", other)
	}
}

func TestReminderStore_FailedUpdateLeavesFileAlone(t *testing.T) {
	store := NewStore(t.TempDir())
	failure := errors.New("boom")

	err := store.ReminderStore("alice").Update(context.Background(), func(m reminder.Map) error {
		m["task-1"] = reminder.Entry{Handle: "h-1"}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if _, err := os.Stat(store.path()); !os.IsNotExist(err) {
		t.Fatalf("expected no state file, got %v", err)
	}
}

func TestReminderStore_EmptyMapDropsUser(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	alice := store.ReminderStore("alice")

	if err := alice.Update(ctx, func(m reminder.Map) error {
		m["task-1"] = reminder.Entry{Handle: "h-1"}
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := alice.Update(ctx, func(m reminder.Map) error {
		delete(m, "task-1")
		return nil
	}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	st, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := st.Users["alice"]; ok {
		t.Fatal("expected alice to be dropped from the state file")
	}
}

func TestReminderStore_ConcurrentUpdates(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	const writers = 10

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.ReminderStore("alice").Update(ctx, func(m reminder.Map) error {
				m[string(rune('a'+i))] = reminder.Entry{Handle: "h"}
				return nil
			})
			if err != nil {
				t.Errorf("concurrent update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	loaded, err := store.ReminderStore("alice").Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != writers {
		t.Fatalf("expected %d entries, got %d", writers, len(loaded))
	}
}

func TestReminderStore_SurvivesReopen(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()
	trigger := time.Now().Add(time.Hour).Truncate(time.Second)

	if err := store.ReminderStore("alice").Update(ctx, func(m reminder.Map) error {
		m["7"] = reminder.Entry{Handle: "h-7", TriggerAt: trigger}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	loaded, err := NewStore(store.dir).ReminderStore("alice").Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded["7"].TriggerAt.Equal(trigger) {
		t.Fatalf("expected trigger %v to survive, got %v", trigger, loaded["7"].TriggerAt)
	}
}
