// Package view derives the ordered, filtered task sequence shown to users.
package view

import (
	"slices"

	"github.com/amonks/tickler/task"
)

// Project returns tasks passing filter, ordered by ascending deadline.
// Tasks without a deadline sort last; ties keep their snapshot order.
func Project(tasks []task.Task, filter Filter) []task.Task {
	visible := make([]task.Task, 0, len(tasks))
	for _, item := range tasks {
		if filter.Match(item) {
			visible = append(visible, item)
		}
	}

	slices.SortStableFunc(visible, compareDeadlines)
	return visible
}

// AllDone reports whether seq is non-empty and every task in it is done.
func AllDone(seq []task.Task) bool {
	if len(seq) == 0 {
		return false
	}
	for _, item := range seq {
		if !item.IsDone {
			return false
		}
	}
	return true
}

func compareDeadlines(a, b task.Task) int {
	switch {
	case !a.HasDeadline() && !b.HasDeadline():
		return 0
	case !a.HasDeadline():
		return 1
	case !b.HasDeadline():
		return -1
	}
	return a.Deadline.Compare(b.Deadline)
}
