package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendFailed indicates the notification backend rejected a call.
	ErrBackendFailed = errors.New("reminder backend failed")

	// ErrInvalidPayload indicates a notification payload carries no task id.
	ErrInvalidPayload = errors.New("invalid notification payload")
)

// Op names a backend call.
type Op string

const (
	OpSchedule Op = "schedule"
	OpCancel   Op = "cancel"
)

// BackendError reports a failed backend call for one task.
type BackendError struct {
	Op     Op
	TaskID string
	Err    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s reminder for task %s: %v", e.Op, e.TaskID, e.Err)
}

// Unwrap matches both ErrBackendFailed and the underlying cause.
func (e *BackendError) Unwrap() []error {
	return []error{ErrBackendFailed, e.Err}
}
