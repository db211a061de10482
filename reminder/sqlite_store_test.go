package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amonks/tickler/internal/db"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "tickler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewSQLiteStore(conn, "alice")
}

func TestSQLiteStore_UpdateAndLoad(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	trigger := time.Date(2026, time.March, 1, 8, 50, 0, 0, time.UTC)

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Update(ctx, func(m Map) error {
		m["a"] = Entry{Handle: "h-a", TriggerAt: trigger}
		m["b"] = Entry{Handle: "h-b", TriggerAt: trigger.Add(time.Hour)}
		return nil
	}))
	require.NoError(t, store.Update(ctx, func(m Map) error {
		delete(m, "a")
		m["b"] = Entry{Handle: "h-b2", TriggerAt: trigger.Add(2 * time.Hour)}
		return nil
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "h-b2", loaded["b"].Handle)
	assert.True(t, loaded["b"].TriggerAt.Equal(trigger.Add(2*time.Hour)))
}

func TestSQLiteStore_FailedUpdateRollsBack(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()
	failure := errors.New("boom")

	err := store.Update(ctx, func(m Map) error {
		m["a"] = Entry{Handle: "h-a", TriggerAt: time.Now()}
		return failure
	})
	assert.ErrorIs(t, err, failure)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStore_IsolatesUsers(t *testing.T) {
	alice := openTestDB(t)
	bob := NewSQLiteStore(alice.db, "bob")
	ctx := context.Background()

	require.NoError(t, alice.Update(ctx, func(m Map) error {
		m["a"] = Entry{Handle: "h-a", TriggerAt: time.Now()}
		return nil
	}))

	loaded, err := bob.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStore_SchedulerRestart(t *testing.T) {
	store := openTestDB(t)
	backend := newFakeBackend()
	ctx := context.Background()
	tasks := []taskFixture{{"a", time.Hour}, {"b", 2 * time.Hour}}

	first := newTestScheduler(t, backend, store)
	_, err := first.Reconcile(ctx, fixtures(tasks))
	require.NoError(t, err)
	backend.Reset()

	second := newTestScheduler(t, backend, store)
	report, err := second.Reconcile(ctx, fixtures(tasks))
	require.NoError(t, err)
	assert.Empty(t, backend.Calls())
	assert.Equal(t, 2, report.Unchanged)
}
