// Package session wires one signed-in user's task pipeline: the document
// store subscription feeds the task repository, which publishes every
// snapshot to the view projector and then to the reminder scheduler.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/amonks/tickler/docstore"
	"github.com/amonks/tickler/reminder"
	"github.com/amonks/tickler/task"
	"github.com/amonks/tickler/view"
)

// Options configures a session. Every dependency is passed in explicitly.
type Options struct {
	UserID string

	Client  docstore.Client
	Backend reminder.Backend
	Store   reminder.Store

	LeadTime time.Duration
	Dates    task.DateOptions

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger is shared by the repository and scheduler. Defaults to
	// discarding.
	Logger *log.Logger

	// OnReminderTap is called by Tap with the id of the tapped task.
	OnReminderTap func(taskID string)
}

// Session is one user's live task pipeline.
type Session struct {
	userID    string
	client    docstore.Client
	repo      *task.Repository
	projector *view.Projector
	scheduler *reminder.Scheduler
	onTap     func(taskID string)
	logger    *log.Logger

	// applyMu serializes snapshot application so reconciliation passes
	// never overlap.
	applyMu sync.Mutex
	ctx     context.Context

	mu          sync.Mutex
	started     bool
	closed      bool
	generation  uint64
	changed     chan struct{}
	unsubscribe func()
}

// New builds a session. Call Start to begin receiving snapshots.
func New(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("document store client is required")
	}

	repo, err := task.NewRepository(task.Options{
		UserID: opts.UserID,
		Client: opts.Client,
		Dates:  opts.Dates,
		Now:    opts.Now,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	scheduler, err := reminder.NewScheduler(reminder.Options{
		Backend:  opts.Backend,
		Store:    opts.Store,
		LeadTime: opts.LeadTime,
		Now:      opts.Now,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	projector := view.NewProjector()
	repo.Subscribe(projector)
	repo.Subscribe(scheduler)

	return &Session{
		userID:    opts.UserID,
		client:    opts.Client,
		repo:      repo,
		projector: projector,
		scheduler: scheduler,
		onTap:     opts.OnReminderTap,
		logger:    logger,
		changed:   make(chan struct{}),
	}, nil
}

// Start loads the persisted ReminderMap and subscribes to the user's
// collection. The first snapshot is diffed against the loaded map.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.started:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	// Snapshot passes outlive a cancelled Start context; Close ends them.
	s.ctx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if err := s.scheduler.Load(ctx); err != nil {
		return err
	}

	unsubscribe, err := s.client.Subscribe(ctx, s.userID, s.apply)
	if err != nil {
		return fmt.Errorf("subscribe to tasks: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return ErrClosed
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
	return nil
}

func (s *Session) apply(docs []docstore.Document) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.repo.ApplySnapshot(s.ctx, docs)

	s.mu.Lock()
	s.generation++
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Close unsubscribes. No snapshots are applied after it returns.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

// UserID returns the session's user.
func (s *Session) UserID() string {
	return s.userID
}

// Repository returns the task repository, which holds the TaskSet and the
// mutation entry points.
func (s *Session) Repository() *task.Repository {
	return s.repo
}

// Projector returns the view projector.
func (s *Session) Projector() *view.Projector {
	return s.projector
}

// Scheduler returns the reminder scheduler.
func (s *Session) Scheduler() *reminder.Scheduler {
	return s.scheduler
}

// Generation returns the number of snapshots applied so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// WaitForSnapshot blocks until a snapshot newer than generation after has
// been applied, the session is closed, or ctx is done.
func (s *Session) WaitForSnapshot(ctx context.Context, after uint64) error {
	for {
		s.mu.Lock()
		if s.generation > after {
			s.mu.Unlock()
			return nil
		}
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Sync runs a reconciliation pass over the current TaskSet, for reminders
// whose window elapsed since the last snapshot.
func (s *Session) Sync(ctx context.Context) (reminder.Report, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return reminder.Report{}, ErrNotStarted
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	return s.scheduler.Reconcile(ctx, s.repo.Tasks())
}

// Tap handles a user interacting with a delivered notification. It returns
// the task the payload refers to and passes its id to OnReminderTap.
func (s *Session) Tap(ctx context.Context, payload []byte) (task.Task, error) {
	taskID, err := reminder.DecodePayload(payload)
	if err != nil {
		return task.Task{}, err
	}
	item, ok := s.repo.Get(taskID)
	if !ok {
		s.logger.Printf("tap %s: %v", taskID, task.ErrTaskNotFound)
		return task.Task{}, fmt.Errorf("%w: %s", task.ErrTaskNotFound, taskID)
	}
	if s.onTap != nil {
		s.onTap(taskID)
	}
	return item, nil
}
