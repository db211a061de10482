package task

import (
	"testing"

	"github.com/amonks/tickler/docstore"
)

func TestFromDocument_LenientDecoding(t *testing.T) {
	item, problems := FromDocument(docstore.Document{
		ID: "a",
		Fields: docstore.Fields{
			FieldTitle:  "Buy milk",
			FieldTag:    "groceries",
			FieldDate:   "whenever",
			FieldIsDone: "yes",
		},
	}, testNow, testDates)

	if item.ID != "a" || item.Title != "Buy milk" {
		t.Fatalf("unexpected task: %+v", item)
	}
	if item.Tag != Tag("groceries") {
		t.Fatalf("expected raw tag to be kept, got %q", item.Tag)
	}
	if item.HasDeadline() {
		t.Fatalf("expected zero deadline, got %v", item.Deadline)
	}
	if item.IsDone {
		t.Fatal("expected non-bool isDone to decode as false")
	}
	if len(problems) != 2 {
		t.Fatalf("expected tag and date problems, got %+v", problems)
	}
	if problems[0].Field != FieldTag || problems[1].Field != FieldDate {
		t.Fatalf("unexpected problem fields: %+v", problems)
	}
}

func TestTaskFields_RoundTripsThroughFromDocument(t *testing.T) {
	original := Task{
		ID:       "a",
		Title:    "Ship release",
		Tag:      TagWork,
		Deadline: testNow,
		IsDone:   true,
	}

	decoded, problems := FromDocument(docstore.Document{ID: "a", Fields: original.Fields()}, testNow, testDates)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %+v", problems)
	}
	if decoded.Title != original.Title || decoded.Tag != original.Tag || decoded.IsDone != original.IsDone {
		t.Fatalf("expected %+v, got %+v", original, decoded)
	}
	if !decoded.Deadline.Equal(original.Deadline) {
		t.Fatalf("expected deadline %v, got %v", original.Deadline, decoded.Deadline)
	}
}

func TestParseTag(t *testing.T) {
	tag, err := ParseTag(" Birthday ")
	if err != nil || tag != TagBirthday {
		t.Fatalf("expected birthday, got %q (%v)", tag, err)
	}
	if _, err := ParseTag("chores"); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestValidateTitle(t *testing.T) {
	long := make([]byte, MaxTitleLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := ValidateTitle(string(long)); err == nil {
		t.Fatal("expected error for long title")
	}
	got, err := ValidateTitle("  a\tb  ")
	if err != nil || got != "a b" {
		t.Fatalf("expected normalized title, got %q (%v)", got, err)
	}
}
