package view

import (
	"errors"

	internalstrings "github.com/amonks/tickler/internal/strings"
	"github.com/amonks/tickler/internal/validation"
	"github.com/amonks/tickler/task"
)

// ErrInvalidFilter is returned when a filter name is not recognized.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter selects which tasks are visible.
type Filter string

// FilterAll passes every task. The other filters match a task tag.
const (
	FilterAll      Filter = "all"
	FilterWork     Filter = Filter(task.TagWork)
	FilterPersonal Filter = Filter(task.TagPersonal)
	FilterWishlist Filter = Filter(task.TagWishlist)
	FilterBirthday Filter = Filter(task.TagBirthday)
)

// ValidFilters returns all valid filter values.
func ValidFilters() []Filter {
	return []Filter{FilterAll, FilterWork, FilterPersonal, FilterWishlist, FilterBirthday}
}

// ParseFilter normalizes a filter name. An empty name means FilterAll.
func ParseFilter(value string) (Filter, error) {
	normalized := Filter(internalstrings.Fold(value))
	if normalized == "" {
		return FilterAll, nil
	}
	for _, valid := range ValidFilters() {
		if normalized == valid {
			return normalized, nil
		}
	}
	return "", validation.FormatInvalidValueError(ErrInvalidFilter, Filter(value), ValidFilters())
}

// Match reports whether the filter passes item.
func (f Filter) Match(item task.Task) bool {
	if f == FilterAll || f == "" {
		return true
	}
	return string(item.Tag) == string(f)
}
