package task

import (
	"time"

	"github.com/amonks/tickler/docstore"
)

// DecodeProblem describes a document field that could not be decoded.
type DecodeProblem struct {
	Field string
	Err   error
}

// FromDocument converts a stored document into a Task. Decoding is lenient:
// unknown or malformed fields produce problems but the task is still
// returned, since a snapshot is never rejected.
func FromDocument(doc docstore.Document, now time.Time, opts DateOptions) (Task, []DecodeProblem) {
	item := Task{ID: doc.ID}
	var problems []DecodeProblem

	if title, ok := doc.Fields[FieldTitle].(string); ok {
		item.Title = normalizeTitle(title)
	}

	if tagValue, ok := doc.Fields[FieldTag].(string); ok {
		if tag, err := ParseTag(tagValue); err == nil {
			item.Tag = tag
		} else {
			item.Tag = Tag(tagValue)
			problems = append(problems, DecodeProblem{Field: FieldTag, Err: err})
		}
	}

	if deadline, err := dateFromField(doc.Fields[FieldDate], now, opts); err == nil {
		item.Deadline = deadline
	} else {
		problems = append(problems, DecodeProblem{Field: FieldDate, Err: err})
	}

	if done, ok := doc.Fields[FieldIsDone].(bool); ok {
		item.IsDone = done
	}

	return item, problems
}

// Fields returns the stored representation of a task, without its id.
func (t Task) Fields() docstore.Fields {
	return docstore.Fields{
		FieldTitle:  t.Title,
		FieldTag:    string(t.Tag),
		FieldDate:   FormatDate(t.Deadline),
		FieldIsDone: t.IsDone,
	}
}
