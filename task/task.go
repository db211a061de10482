// Package task owns the canonical set of tasks for a signed-in user.
//
// The Repository rebuilds its TaskSet wholesale from every snapshot of the
// user's document collection and publishes the result to observers. Local
// mutations are validated here and forwarded to the document store; they are
// only reflected in the TaskSet once a later snapshot confirms them.
package task

import (
	"time"

	internalstrings "github.com/amonks/tickler/internal/strings"
	"github.com/amonks/tickler/internal/validation"
)

// ProfileDocumentID is the id of the profile record kept in the same
// collection as the tasks. It never enters the TaskSet.
const ProfileDocumentID = "info"

// MaxTitleLength is the maximum allowed length for a task title.
const MaxTitleLength = 500

// Document field names.
const (
	FieldTitle  = "title"
	FieldTag    = "tag"
	FieldDate   = "date"
	FieldIsDone = "isDone"
)

// Tag categorizes a task.
type Tag string

const (
	TagWork     Tag = "work"
	TagPersonal Tag = "personal"
	TagWishlist Tag = "wishlist"
	TagBirthday Tag = "birthday"
)

// ValidTags returns all valid tag values.
func ValidTags() []Tag {
	return []Tag{TagWork, TagPersonal, TagWishlist, TagBirthday}
}

// IsValid returns true if the tag is a known valid value.
func (t Tag) IsValid() bool {
	for _, valid := range ValidTags() {
		if t == valid {
			return true
		}
	}
	return false
}

// ParseTag normalizes and validates a tag.
func ParseTag(value string) (Tag, error) {
	tag := Tag(internalstrings.Fold(value))
	if !tag.IsValid() {
		return "", validation.FormatInvalidValueError(ErrInvalidTag, Tag(value), ValidTags())
	}
	return tag, nil
}

// Task is one to-do item.
type Task struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tag   Tag    `json:"tag"`

	// Deadline is the absolute point in time the task is due.
	// It is zero when the stored date could not be understood.
	Deadline time.Time `json:"deadline"`

	IsDone bool `json:"isDone"`
}

// HasDeadline reports whether the task carries a usable deadline.
func (t Task) HasDeadline() bool {
	return !t.Deadline.IsZero()
}
