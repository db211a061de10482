package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/amonks/tickler/docstore"
	internalstrings "github.com/amonks/tickler/internal/strings"
)

// Client is the part of the document store the repository writes through.
type Client interface {
	Create(ctx context.Context, userID string, fields docstore.Fields) (string, error)
	Update(ctx context.Context, userID, id string, fields docstore.Fields) error
	Delete(ctx context.Context, userID, id string) error
}

// Observer is notified after every snapshot with the full TaskSet in
// snapshot order. Observers must not retain or modify the slice.
type Observer interface {
	TasksChanged(ctx context.Context, tasks []Task)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, tasks []Task)

// TasksChanged calls fn.
func (fn ObserverFunc) TasksChanged(ctx context.Context, tasks []Task) {
	fn(ctx, tasks)
}

// Options configures a Repository.
type Options struct {
	UserID string
	Client Client

	// Dates controls normalization of dates without a time of day.
	Dates DateOptions

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives benign problems (undecodable documents, stale ids).
	// Defaults to discarding.
	Logger *log.Logger
}

// CreateInput describes a new task. Date may be empty for today.
type CreateInput struct {
	Title string
	Tag   string
	Date  string
}

// UpdateInput lists fields to change. Nil or blank fields are left alone.
type UpdateInput struct {
	Title *string
	Tag   *string
	Date  *string
}

// Repository owns the TaskSet of one user session.
type Repository struct {
	userID string
	client Client
	dates  DateOptions
	now    func() time.Time
	logger *log.Logger

	mu    sync.RWMutex
	order []string
	tasks map[string]Task

	observersMu sync.Mutex
	observers   []Observer
}

// NewRepository creates an empty repository for a user.
func NewRepository(opts Options) (*Repository, error) {
	if internalstrings.IsBlank(opts.UserID) {
		return nil, fmt.Errorf("user id is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("document store client is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Repository{
		userID: opts.UserID,
		client: opts.Client,
		dates:  opts.Dates,
		now:    now,
		logger: logger,
		tasks:  make(map[string]Task),
	}, nil
}

// Subscribe registers an observer. Observers run in registration order.
func (r *Repository) Subscribe(observer Observer) {
	r.observersMu.Lock()
	defer r.observersMu.Unlock()
	r.observers = append(r.observers, observer)
}

// ApplySnapshot replaces the TaskSet with docs, minus the profile record,
// then notifies observers. A repeated id keeps its first position and its
// last contents.
func (r *Repository) ApplySnapshot(ctx context.Context, docs []docstore.Document) {
	now := r.now()
	order := make([]string, 0, len(docs))
	tasks := make(map[string]Task, len(docs))

	for _, doc := range docs {
		if doc.ID == ProfileDocumentID || doc.ID == "" {
			continue
		}
		item, problems := FromDocument(doc, now, r.dates)
		for _, problem := range problems {
			r.logger.Printf("task %s: field %s: %v", doc.ID, problem.Field, problem.Err)
		}
		if _, seen := tasks[doc.ID]; !seen {
			order = append(order, doc.ID)
		}
		tasks[doc.ID] = item
	}

	r.mu.Lock()
	r.order = order
	r.tasks = tasks
	r.mu.Unlock()

	r.notify(ctx)
}

func (r *Repository) notify(ctx context.Context) {
	r.observersMu.Lock()
	observers := append([]Observer(nil), r.observers...)
	r.observersMu.Unlock()

	snapshot := r.Tasks()
	for _, observer := range observers {
		observer.TasksChanged(ctx, snapshot)
	}
}

// Tasks returns a copy of the TaskSet in snapshot order.
func (r *Repository) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Task, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.tasks[id])
	}
	return items
}

// Get returns the task with id from the TaskSet.
func (r *Repository) Get(id string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.tasks[id]
	return item, ok
}

// Len returns the size of the TaskSet.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Resolve returns the id of the task matching a unique id prefix.
func (r *Repository) Resolve(prefix string) (string, error) {
	return NewIDIndex(r.Tasks()).Resolve(prefix)
}

// Validate reports whether Create would accept input, without writing.
func (r *Repository) Validate(input CreateInput) error {
	_, err := r.prepare(input)
	return err
}

// Create validates input and asks the store to create the task. It returns
// the new id; the task appears in the TaskSet with the next snapshot.
func (r *Repository) Create(ctx context.Context, input CreateInput) (string, error) {
	item, err := r.prepare(input)
	if err != nil {
		return "", err
	}
	id, err := r.client.Create(ctx, r.userID, item.Fields())
	if err != nil {
		return "", &RemoteWriteError{Op: OpCreate, Err: err}
	}
	return id, nil
}

func (r *Repository) prepare(input CreateInput) (Task, error) {
	title, err := ValidateTitle(input.Title)
	if err != nil {
		return Task{}, err
	}
	tag, err := ParseTag(input.Tag)
	if err != nil {
		return Task{}, err
	}

	now := r.now()
	deadline := Today(now, r.dates)
	if !internalstrings.IsBlank(input.Date) {
		deadline, err = ParseDate(input.Date, now, r.dates)
		if err != nil {
			return Task{}, err
		}
	}
	return Task{Title: title, Tag: tag, Deadline: deadline}, nil
}

// Update forwards the non-blank fields of input for an existing task.
// It is a no-op when no field remains.
func (r *Repository) Update(ctx context.Context, id string, input UpdateInput) error {
	if err := r.requireTask(OpUpdate, id); err != nil {
		return err
	}

	fields := docstore.Fields{}
	if input.Title != nil && !internalstrings.IsBlank(*input.Title) {
		title, err := ValidateTitle(*input.Title)
		if err != nil {
			return err
		}
		fields[FieldTitle] = title
	}
	if input.Tag != nil && !internalstrings.IsBlank(*input.Tag) {
		tag, err := ParseTag(*input.Tag)
		if err != nil {
			return err
		}
		fields[FieldTag] = string(tag)
	}
	if input.Date != nil && !internalstrings.IsBlank(*input.Date) {
		deadline, err := ParseDate(*input.Date, r.now(), r.dates)
		if err != nil {
			return err
		}
		fields[FieldDate] = FormatDate(deadline)
	}
	if len(fields) == 0 {
		return nil
	}

	return r.write(OpUpdate, id, r.client.Update(ctx, r.userID, id, fields))
}

// SetDone forwards the done flag for an existing task.
func (r *Repository) SetDone(ctx context.Context, id string, done bool) error {
	if err := r.requireTask(OpSetDone, id); err != nil {
		return err
	}
	fields := docstore.Fields{FieldIsDone: done}
	return r.write(OpSetDone, id, r.client.Update(ctx, r.userID, id, fields))
}

// Remove asks the store to delete an existing task. Its reminder is
// cancelled once a snapshot without it arrives.
func (r *Repository) Remove(ctx context.Context, id string) error {
	if err := r.requireTask(OpRemove, id); err != nil {
		return err
	}
	return r.write(OpRemove, id, r.client.Delete(ctx, r.userID, id))
}

func (r *Repository) requireTask(op Op, id string) error {
	if _, ok := r.Get(id); ok {
		return nil
	}
	r.logger.Printf("%s task %s: %v", op, id, ErrTaskNotFound)
	return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

func (r *Repository) write(op Op, id string, err error) error {
	if err == nil {
		return nil
	}
	// The document vanished between our snapshot and the write.
	if errors.Is(err, docstore.ErrNotFound) {
		r.logger.Printf("%s task %s: %v", op, id, ErrTaskNotFound)
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return &RemoteWriteError{Op: op, ID: id, Err: err}
}
