package view

import (
	"context"
	"slices"
	"sync"

	"github.com/amonks/tickler/task"
)

// Projector keeps the visible sequence current. It observes a
// task.Repository and recomputes on every snapshot or filter change.
type Projector struct {
	mu     sync.RWMutex
	filter Filter
	tasks  []task.Task
	seq    []task.Task
}

// NewProjector returns a projector showing every task.
func NewProjector() *Projector {
	return &Projector{filter: FilterAll}
}

// TasksChanged implements task.Observer.
func (p *Projector) TasksChanged(ctx context.Context, tasks []task.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks = slices.Clone(tasks)
	p.seq = Project(p.tasks, p.filter)
}

// SetFilter changes the active filter and recomputes from the last TaskSet.
func (p *Projector) SetFilter(filter Filter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filter = filter
	p.seq = Project(p.tasks, filter)
}

// Filter returns the active filter.
func (p *Projector) Filter() Filter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter
}

// Tasks returns a copy of the visible sequence.
func (p *Projector) Tasks() []task.Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.seq)
}

// AllDone reports whether every visible task is done.
func (p *Projector) AllDone() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return AllDone(p.seq)
}
