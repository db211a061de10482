// Package reminder keeps locally scheduled notifications in step with the
// set of future, undone tasks.
//
// A Scheduler owns the ReminderMap: task id to the handle and trigger time
// of the one notification scheduled for it. After every snapshot the
// scheduler reconciles that map against the TaskSet, telling a Backend to
// schedule or cancel notifications, and persists the map through a Store so
// that a restart does not issue duplicates.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Entry records the notification scheduled for one task.
type Entry struct {
	Handle    string    `json:"handle"`
	TriggerAt time.Time `json:"trigger_at"`
}

// Map is the ReminderMap, keyed by task id.
type Map map[string]Entry

// Clone returns a copy of m.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	return maps.Clone(m)
}

// Notification is a fire-once alert handed to a Backend.
type Notification struct {
	TaskID    string
	TriggerAt time.Time
	Title     string
	Body      string
	// Payload is opaque to the backend and returned on tap.
	Payload []byte
}

// Backend schedules and cancels fire-once notifications.
type Backend interface {
	// Schedule arranges for n to fire at n.TriggerAt and returns a handle.
	Schedule(ctx context.Context, n Notification) (string, error)

	// Cancel withdraws a scheduled notification. Cancelling an unknown or
	// already delivered handle succeeds.
	Cancel(ctx context.Context, handle string) error
}

// Store persists a ReminderMap across restarts.
type Store interface {
	// Load returns the persisted map, empty if nothing was stored yet.
	Load(ctx context.Context) (Map, error)

	// Update atomically reads the map, applies fn and writes the result.
	Update(ctx context.Context, fn func(m Map) error) error
}

type payload struct {
	TaskID string `json:"taskId"`
}

// EncodePayload returns the notification payload identifying taskID.
func EncodePayload(taskID string) []byte {
	data, err := json.Marshal(payload{TaskID: taskID})
	if err != nil {
		// Marshalling a struct of one string cannot fail.
		panic(err)
	}
	return data
}

// DecodePayload extracts the task id from a notification payload.
func DecodePayload(data []byte) (string, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.TaskID == "" {
		return "", fmt.Errorf("%w: missing taskId", ErrInvalidPayload)
	}
	return p.TaskID, nil
}
