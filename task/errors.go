package task

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTaskInput is returned when a mutation fails validation.
	// No remote call is made.
	ErrInvalidTaskInput = errors.New("invalid task input")

	// ErrEmptyTitle is returned when a title is empty after trimming.
	ErrEmptyTitle = fmt.Errorf("%w: title cannot be empty", ErrInvalidTaskInput)

	// ErrTitleTooLong is returned when a title exceeds MaxTitleLength.
	ErrTitleTooLong = fmt.Errorf("%w: title exceeds maximum length", ErrInvalidTaskInput)

	// ErrInvalidTag is returned for a tag outside the known set.
	ErrInvalidTag = fmt.Errorf("%w: invalid tag", ErrInvalidTaskInput)

	// ErrInvalidDate is returned when a date cannot be normalized.
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrInvalidTaskInput)

	// ErrTaskNotFound is returned when a mutation names an id that is not in
	// the current TaskSet. Callers treat it as a benign no-op.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAmbiguousTaskIDPrefix is returned when an ID prefix matches multiple tasks.
	ErrAmbiguousTaskIDPrefix = errors.New("ambiguous task ID prefix")

	// ErrRemoteWriteFailed is matched by every RemoteWriteError.
	ErrRemoteWriteFailed = errors.New("remote write failed")
)

// Op names a mutation forwarded to the document store.
type Op string

const (
	OpCreate  Op = "create"
	OpUpdate  Op = "update"
	OpSetDone Op = "set-done"
	OpRemove  Op = "remove"
)

// RemoteWriteError is returned when the document store rejects a mutation.
type RemoteWriteError struct {
	Op  Op
	ID  string
	Err error
}

func (e *RemoteWriteError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s task: %s: %v", e.Op, ErrRemoteWriteFailed, e.Err)
	}
	return fmt.Sprintf("%s task %s: %s: %v", e.Op, e.ID, ErrRemoteWriteFailed, e.Err)
}

func (e *RemoteWriteError) Unwrap() []error {
	return []error{ErrRemoteWriteFailed, e.Err}
}

// ValidateTitle trims and normalizes title and checks it is usable.
func ValidateTitle(title string) (string, error) {
	title = normalizeTitle(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if len(title) > MaxTitleLength {
		return "", fmt.Errorf("%w: %d > %d", ErrTitleTooLong, len(title), MaxTitleLength)
	}
	return title, nil
}
