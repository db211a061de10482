package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/amonks/tickler/task"
)

// DefaultLeadTime is how long before a deadline a reminder fires.
const DefaultLeadTime = 10 * time.Minute

// Options configures a Scheduler.
type Options struct {
	Backend Backend
	Store   Store

	// LeadTime is subtracted from each deadline to get the trigger time.
	// Zero fires reminders at the deadline itself.
	LeadTime time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Logger receives backend failures. Defaults to discarding.
	Logger *log.Logger
}

// Report summarizes one reconciliation pass.
type Report struct {
	Scheduled   int
	Rescheduled int
	Cancelled   int
	Unchanged   int
	Failed      int

	// Errors holds one *BackendError per failed call.
	Errors []error
}

// Changed returns the number of reminders the pass added, moved or removed.
func (r Report) Changed() int {
	return r.Scheduled + r.Rescheduled + r.Cancelled
}

func (r *Report) fail(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err)
}

// Scheduler reconciles the ReminderMap against the TaskSet.
type Scheduler struct {
	backend Backend
	store   Store
	lead    time.Duration
	now     func() time.Time
	logger  *log.Logger

	mu      sync.Mutex
	loaded  bool
	entries Map
	// pending holds changes not yet written to the store. It survives a
	// failed persist so the next pass writes them.
	pending *changeSet
}

// NewScheduler creates a scheduler. Call Load before the first snapshot to
// pick up reminders scheduled by a previous process.
func NewScheduler(opts Options) (*Scheduler, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("notification backend is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("reminder store is required")
	}
	if opts.LeadTime < 0 {
		return nil, fmt.Errorf("lead time must not be negative: %s", opts.LeadTime)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Scheduler{
		backend: opts.Backend,
		store:   opts.Store,
		lead:    opts.LeadTime,
		now:     now,
		logger:  logger,
		entries: Map{},
		pending: newChangeSet(),
	}, nil
}

// Load replaces the in-memory map with the persisted one.
func (s *Scheduler) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Scheduler) loadLocked(ctx context.Context) error {
	entries, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	s.entries = entries.Clone()
	s.pending = newChangeSet()
	s.loaded = true
	return nil
}

// Entries returns a copy of the in-memory ReminderMap.
func (s *Scheduler) Entries() Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Clone()
}

// TriggerTime returns when item's reminder fires and whether it should
// have one at all as of now.
func (s *Scheduler) TriggerTime(item task.Task, now time.Time) (time.Time, bool) {
	if item.IsDone || !item.HasDeadline() {
		return time.Time{}, false
	}
	trigger := item.Deadline.Add(-s.lead)
	if !trigger.After(now) {
		return time.Time{}, false
	}
	return trigger, true
}

// TasksChanged implements task.Observer.
func (s *Scheduler) TasksChanged(ctx context.Context, tasks []task.Task) {
	report, err := s.Reconcile(ctx, tasks)
	if err != nil {
		s.logger.Printf("reconcile reminders: %v", err)
		return
	}
	if report.Changed() > 0 || report.Failed > 0 {
		s.logger.Printf("reminders: %d scheduled, %d rescheduled, %d cancelled, %d failed",
			report.Scheduled, report.Rescheduled, report.Cancelled, report.Failed)
	}
}

// Reconcile brings the ReminderMap in line with tasks and persists it.
//
// Backend failures never abort the pass: a failed cancel keeps its entry
// and a failed schedule leaves its id absent, so the next pass retries
// both. The returned error is only set when the map could not be loaded
// or persisted; changes that failed to persist are written by the next pass.
func (s *Scheduler) Reconcile(ctx context.Context, tasks []task.Task) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(ctx); err != nil {
			return Report{}, err
		}
	}

	now := s.now()
	targets := make(map[string]time.Time, len(tasks))
	order := make([]string, 0, len(tasks))
	byID := make(map[string]task.Task, len(tasks))
	for _, item := range tasks {
		trigger, ok := s.TriggerTime(item, now)
		if !ok {
			continue
		}
		if _, seen := targets[item.ID]; !seen {
			order = append(order, item.ID)
		}
		targets[item.ID] = trigger
		byID[item.ID] = item
	}

	var report Report
	changes := s.pending

	stale := make([]string, 0)
	for id := range s.entries {
		if _, ok := targets[id]; !ok {
			stale = append(stale, id)
		}
	}
	slices.Sort(stale)
	for _, id := range stale {
		if err := s.cancel(ctx, id, s.entries[id]); err != nil {
			report.fail(err)
			continue
		}
		delete(s.entries, id)
		changes.remove(id)
		report.Cancelled++
	}

	for _, id := range order {
		trigger := targets[id]
		existing, scheduled := s.entries[id]
		if scheduled && existing.TriggerAt.Equal(trigger) {
			report.Unchanged++
			continue
		}

		if scheduled {
			if err := s.cancel(ctx, id, existing); err != nil {
				report.fail(err)
				continue
			}
			// The old notification is gone; if scheduling the new one
			// fails the next pass treats the id as never scheduled.
			delete(s.entries, id)
			changes.remove(id)
		}

		entry, err := s.schedule(ctx, byID[id], trigger)
		if err != nil {
			report.fail(err)
			continue
		}
		s.entries[id] = entry
		changes.put(id, entry)
		if scheduled {
			report.Rescheduled++
		} else {
			report.Scheduled++
		}
	}

	if changes.empty() {
		return report, nil
	}
	if err := s.store.Update(ctx, changes.apply); err != nil {
		return report, fmt.Errorf("persist reminders: %w", err)
	}
	s.pending = newChangeSet()
	return report, nil
}

func (s *Scheduler) cancel(ctx context.Context, id string, entry Entry) error {
	if err := s.backend.Cancel(ctx, entry.Handle); err != nil {
		backendErr := &BackendError{Op: OpCancel, TaskID: id, Err: err}
		s.logger.Printf("%v", backendErr)
		return backendErr
	}
	return nil
}

func (s *Scheduler) schedule(ctx context.Context, item task.Task, trigger time.Time) (Entry, error) {
	handle, err := s.backend.Schedule(ctx, NotificationFor(item, trigger))
	if err == nil && handle == "" {
		err = errors.New("backend returned an empty handle")
	}
	if err != nil {
		backendErr := &BackendError{Op: OpSchedule, TaskID: item.ID, Err: err}
		s.logger.Printf("%v", backendErr)
		return Entry{}, backendErr
	}
	return Entry{Handle: handle, TriggerAt: trigger}, nil
}

// NotificationFor builds the notification announcing item at trigger.
func NotificationFor(item task.Task, trigger time.Time) Notification {
	return Notification{
		TaskID:    item.ID,
		TriggerAt: trigger,
		Title:     item.Title,
		Body:      fmt.Sprintf("%s task due %s", item.Tag, item.Deadline.Format("Mon 2 Jan 15:04")),
		Payload:   EncodePayload(item.ID),
	}
}

// changeSet records the entries added or removed since the last successful
// persist, so that the persisted map is modified rather than overwritten.
type changeSet struct {
	puts    Map
	removes map[string]bool
}

func newChangeSet() *changeSet {
	return &changeSet{puts: Map{}, removes: map[string]bool{}}
}

func (c *changeSet) put(id string, entry Entry) {
	delete(c.removes, id)
	c.puts[id] = entry
}

func (c *changeSet) remove(id string) {
	delete(c.puts, id)
	c.removes[id] = true
}

func (c *changeSet) empty() bool {
	return len(c.puts) == 0 && len(c.removes) == 0
}

func (c *changeSet) apply(m Map) error {
	for id := range c.removes {
		delete(m, id)
	}
	for id, entry := range c.puts {
		m[id] = entry
	}
	return nil
}
