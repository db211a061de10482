package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amonks/tickler/docstore"
	"github.com/amonks/tickler/internal/db"
	"github.com/amonks/tickler/notify"
	"github.com/amonks/tickler/reminder"
	"github.com/amonks/tickler/task"
	"github.com/amonks/tickler/view"
)

var sessionNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store     *docstore.SQLite
	spool     *notify.Spool
	reminders *reminder.SQLiteStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickler.db")
	conn, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testEnv{
		store:     docstore.New(conn, docstore.Options{PollInterval: 20 * time.Millisecond}),
		spool:     notify.NewSpool(conn, notify.SpoolOptions{Now: func() time.Time { return sessionNow }}),
		reminders: reminder.NewSQLiteStore(conn, "alice"),
	}
}

func (env *testEnv) open(t *testing.T, tap func(string)) *Session {
	t.Helper()
	s, err := New(Options{
		UserID:        "alice",
		Client:        env.store,
		Backend:       env.spool.ForUser("alice"),
		Store:         env.reminders,
		LeadTime:      10 * time.Minute,
		Dates:         task.DateOptions{Hour: 9, Location: time.UTC},
		Now:           func() time.Time { return sessionNow },
		OnReminderTap: tap,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitNext(t *testing.T, s *Session, after uint64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.WaitForSnapshot(ctx, after); err != nil {
		t.Fatalf("wait for snapshot: %v", err)
	}
}

func TestSession_CreateFlowsToViewAndReminders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.open(t, nil)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitNext(t, s, 0)

	if err := env.store.Put(ctx, "alice", task.ProfileDocumentID, docstore.Fields{"username": "Alice"}); err != nil {
		t.Fatalf("put profile: %v", err)
	}

	gen := s.Generation()
	id, err := s.Repository().Create(ctx, task.CreateInput{Title: "Ship release", Tag: "work", Date: "15-03"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for {
		waitNext(t, s, gen)
		gen = s.Generation()
		if _, ok := s.Repository().Get(id); ok {
			break
		}
	}

	if s.Repository().Len() != 1 {
		t.Fatalf("expected profile to be excluded, got %d tasks", s.Repository().Len())
	}
	visible := s.Projector().Tasks()
	if len(visible) != 1 || visible[0].ID != id {
		t.Fatalf("expected projector to show %s, got %+v", id, visible)
	}

	entries := s.Scheduler().Entries()
	entry, ok := entries[id]
	if !ok {
		t.Fatalf("expected reminder for %s, got %v", id, entries)
	}
	want := time.Date(2026, time.March, 15, 8, 50, 0, 0, time.UTC)
	if !entry.TriggerAt.Equal(want) {
		t.Fatalf("expected trigger %v, got %v", want, entry.TriggerAt)
	}
	if _, err := env.spool.Get(ctx, entry.Handle); err != nil {
		t.Fatalf("expected spooled notification: %v", err)
	}
}

func TestSession_RemoveCancelsReminder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, err := env.store.Create(ctx, "alice", task.Task{
		Title: "Call mum", Tag: task.TagPersonal, Deadline: sessionNow.Add(24 * time.Hour),
	}.Fields())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := env.open(t, nil)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitNext(t, s, 0)

	handle := s.Scheduler().Entries()[id].Handle
	if handle == "" {
		t.Fatal("expected a reminder after the first snapshot")
	}

	gen := s.Generation()
	if err := s.Repository().Remove(ctx, id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	waitNext(t, s, gen)

	if _, ok := s.Scheduler().Entries()[id]; ok {
		t.Fatal("expected reminder to be cancelled")
	}
	if _, err := env.spool.Get(ctx, handle); !errors.Is(err, notify.ErrNotFound) {
		t.Fatalf("expected spooled notification to be gone, got %v", err)
	}
}

func TestSession_RestartDoesNotDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.store.Create(ctx, "alice", task.Task{
		Title: "Seven", Tag: task.TagWork, Deadline: sessionNow.Add(48 * time.Hour),
	}.Fields()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first := env.open(t, nil)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitNext(t, first, 0)
	before := first.Scheduler().Entries()
	first.Close()

	second := env.open(t, nil)
	if err := second.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitNext(t, second, 0)

	report, err := second.Sync(ctx)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if report.Changed() != 0 || report.Unchanged != 1 {
		t.Fatalf("expected no changes after restart, got %+v", report)
	}
	after := second.Scheduler().Entries()
	for id, entry := range before {
		if after[id].Handle != entry.Handle {
			t.Fatalf("expected handle %s to survive restart, got %s", entry.Handle, after[id].Handle)
		}
	}

	pending, err := env.spool.Pending(ctx, "alice")
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending notification, got %d", len(pending))
	}
}

func TestSession_FilterRecomputesFromLastSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, item := range []task.Task{
		{Title: "One", Tag: task.TagWork, Deadline: time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)},
		{Title: "Two", Tag: task.TagPersonal, Deadline: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)},
	} {
		if _, err := env.store.Create(ctx, "alice", item.Fields()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	s := env.open(t, nil)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitNext(t, s, 0)

	titles := func() []string {
		var out []string
		for _, item := range s.Projector().Tasks() {
			out = append(out, item.Title)
		}
		return out
	}

	if got := titles(); len(got) != 2 || got[0] != "Two" || got[1] != "One" {
		t.Fatalf("expected [Two One], got %v", got)
	}
	s.Projector().SetFilter(view.FilterWork)
	if got := titles(); len(got) != 1 || got[0] != "One" {
		t.Fatalf("expected [One], got %v", got)
	}
}

func TestSession_Tap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, err := env.store.Create(ctx, "alice", task.Task{
		Title: "Call mum", Tag: task.TagPersonal, Deadline: sessionNow.Add(time.Hour),
	}.Fields())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var tapped []string
	s := env.open(t, func(taskID string) { tapped = append(tapped, taskID) })
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitNext(t, s, 0)

	item, err := s.Tap(ctx, reminder.EncodePayload(id))
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if item.Title != "Call mum" || len(tapped) != 1 || tapped[0] != id {
		t.Fatalf("unexpected tap result %+v, callbacks %v", item, tapped)
	}

	if _, err := s.Tap(ctx, reminder.EncodePayload("gone")); !errors.Is(err, task.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := s.Tap(ctx, []byte("garbage")); !errors.Is(err, reminder.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if len(tapped) != 1 {
		t.Fatalf("expected no callback for failed taps, got %v", tapped)
	}
}

func TestSession_CloseStopsSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.open(t, nil)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitNext(t, s, 0)

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	gen := s.Generation()

	if _, err := env.store.Create(ctx, "alice", docstore.Fields{"title": "Late"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if s.Generation() != gen {
		t.Fatal("expected no snapshots after close")
	}
	if err := s.WaitForSnapshot(ctx, gen); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on restart, got %v", err)
	}
}

func TestSession_StartTwice(t *testing.T) {
	env := newTestEnv(t)
	s := env.open(t, nil)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestSession_SyncRequiresStart(t *testing.T) {
	env := newTestEnv(t)
	s := env.open(t, nil)
	if _, err := s.Sync(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestNew_Validates(t *testing.T) {
	env := newTestEnv(t)
	if _, err := New(Options{UserID: "alice", Backend: env.spool.ForUser("alice")}); err == nil {
		t.Fatal("expected error without client")
	}
	if _, err := New(Options{UserID: "alice", Client: env.store}); err == nil {
		t.Fatal("expected error without backend")
	}
}
