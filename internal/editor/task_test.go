package editor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/amonks/tickler/task"
)

func TestRenderTaskTOML_Create(t *testing.T) {
	content, err := RenderTaskTOML(DefaultCreateData())
	if err != nil {
		t.Fatalf("RenderTaskTOML failed: %v", err)
	}

	if !strings.Contains(content, `title = ""`) {
		t.Error("expected empty title")
	}
	if !strings.Contains(content, `tag = "personal"`) {
		t.Error("expected default tag 'personal'")
	}
	if !strings.Contains(content, "work, personal, wishlist, birthday") {
		t.Error("expected tag comment to list valid tags")
	}
	if strings.Contains(content, "done =") {
		t.Error("done should not be present for create")
	}
}

func TestRenderTaskTOML_Update(t *testing.T) {
	deadline := time.Date(2026, time.March, 15, 14, 30, 0, 0, time.Local)
	data := DataFromTask(task.Task{
		ID:       "abc12345",
		Title:    `Say "hi"`,
		Tag:      task.TagWork,
		Deadline: deadline,
		IsDone:   true,
	})

	content, err := RenderTaskTOML(data)
	if err != nil {
		t.Fatalf("RenderTaskTOML failed: %v", err)
	}
	for _, want := range []string{
		"# task abc12345",
		`title = "Say \"hi\""`,
		`tag = "work"`,
		`date = "2026-03-15T14:30"`,
		"done = true",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in:\n%s", want, content)
		}
	}
}

func TestParseTaskTOML_RoundTrip(t *testing.T) {
	data := DataFromTask(task.Task{ID: "abc", Title: "Call mum", Tag: task.TagPersonal})
	content, err := RenderTaskTOML(data)
	if err != nil {
		t.Fatalf("RenderTaskTOML failed: %v", err)
	}

	parsed, err := ParseTaskTOML(content)
	if err != nil {
		t.Fatalf("ParseTaskTOML failed: %v", err)
	}
	if parsed.Title != "Call mum" || parsed.Tag != "personal" || parsed.Date != "" {
		t.Fatalf("unexpected parse result %+v", parsed)
	}
	if parsed.Done == nil || *parsed.Done {
		t.Fatalf("expected done = false, got %v", parsed.Done)
	}
}

func TestParseTaskTOML_Normalizes(t *testing.T) {
	parsed, err := ParseTaskTOML("title = \"  Renew passport  \"\ntag = \" WORK \"\ndate = \" 15-03 \"\n")
	if err != nil {
		t.Fatalf("ParseTaskTOML failed: %v", err)
	}
	if parsed.Title != "Renew passport" || parsed.Tag != "work" || parsed.Date != "15-03" {
		t.Fatalf("unexpected parse result %+v", parsed)
	}
	if parsed.Done != nil {
		t.Fatal("expected done to be unset")
	}

	input := parsed.ToCreateInput()
	if input.Title != "Renew passport" || input.Tag != "work" || input.Date != "15-03" {
		t.Fatalf("unexpected create input %+v", input)
	}
}

func TestParseTaskTOML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "empty title", content: "title = \"\"\ntag = \"work\"\n", wantErr: task.ErrEmptyTitle},
		{name: "bad tag", content: "title = \"x\"\ntag = \"chores\"\n", wantErr: task.ErrInvalidTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTaskTOML(tt.content)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := ParseTaskTOML("title = "); err == nil {
		t.Fatal("expected a TOML syntax error")
	}
}
