package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amonks/tickler/task"
)

var errUnavailable = errors.New("backend unavailable")

type backendCall struct {
	Op     Op
	TaskID string
	Handle string
	At     time.Time
}

// fakeBackend records calls and fails those for task ids listed in
// failSchedule or handles listed in failCancel.
type fakeBackend struct {
	mu           sync.Mutex
	calls        []backendCall
	next         int
	handles      map[string]string
	failSchedule map[string]bool
	failCancel   map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		handles:      map[string]string{},
		failSchedule: map[string]bool{},
		failCancel:   map[string]bool{},
	}
}

func (b *fakeBackend) Schedule(ctx context.Context, n Notification) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSchedule[n.TaskID] {
		return "", errUnavailable
	}
	b.next++
	handle := fmt.Sprintf("h%d", b.next)
	b.handles[handle] = n.TaskID
	b.calls = append(b.calls, backendCall{Op: OpSchedule, TaskID: n.TaskID, Handle: handle, At: n.TriggerAt})
	return handle, nil
}

func (b *fakeBackend) Cancel(ctx context.Context, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failCancel[handle] {
		return errUnavailable
	}
	b.calls = append(b.calls, backendCall{Op: OpCancel, TaskID: b.handles[handle], Handle: handle})
	delete(b.handles, handle)
	return nil
}

func (b *fakeBackend) Calls() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

func (b *fakeBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

type memoryStore struct {
	mu      sync.Mutex
	m       Map
	updates int
	err     error
}

func (s *memoryStore) Load(ctx context.Context) (Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Clone(), nil
}

func (s *memoryStore) Update(ctx context.Context, fn func(m Map) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	m := s.m.Clone()
	if err := fn(m); err != nil {
		return err
	}
	s.m = m
	s.updates++
	return nil
}

func (s *memoryStore) Snapshot() Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Clone()
}

var schedulerNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, backend Backend, store Store) *Scheduler {
	t.Helper()
	scheduler, err := NewScheduler(Options{
		Backend:  backend,
		Store:    store,
		LeadTime: 10 * time.Minute,
		Now:      func() time.Time { return schedulerNow },
	})
	require.NoError(t, err)
	require.NoError(t, scheduler.Load(context.Background()))
	return scheduler
}

func dueIn(id string, d time.Duration) task.Task {
	return task.Task{ID: id, Title: "Task " + id, Tag: task.TagWork, Deadline: schedulerNow.Add(d)}
}

func opsOf(calls []backendCall) []string {
	out := make([]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, string(call.Op)+":"+call.TaskID)
	}
	return out
}

type taskFixture struct {
	id  string
	due time.Duration
}

func fixtures(items []taskFixture) []task.Task {
	out := make([]task.Task, 0, len(items))
	for _, item := range items {
		out = append(out, dueIn(item.id, item.due))
	}
	return out
}
