package editor

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"

	"github.com/amonks/tickler/task"
)

// editorDateLayout is a layout task.ParseDate accepts.
const editorDateLayout = "2006-01-02T15:04"

// TaskData represents the data used to render the TOML template.
type TaskData struct {
	// IsUpdate is true when editing an existing task.
	IsUpdate bool
	// ID is the task ID (only for updates).
	ID    string
	Title string
	Tag   string
	// Date is the deadline in any form task.ParseDate accepts.
	Date string
	// Done is the done flag (only for updates).
	Done bool
}

// DefaultCreateData returns TaskData for a new task.
func DefaultCreateData() TaskData {
	return TaskData{Tag: string(task.TagPersonal)}
}

// DataFromTask creates TaskData from an existing task for editing.
func DataFromTask(item task.Task) TaskData {
	data := TaskData{
		IsUpdate: true,
		ID:       item.ID,
		Title:    item.Title,
		Tag:      string(item.Tag),
		Done:     item.IsDone,
	}
	if item.HasDeadline() {
		data.Date = item.Deadline.Local().Format(editorDateLayout)
	}
	return data
}

var taskTemplate = template.Must(template.New("task").Funcs(template.FuncMap{
	"tags": func() string {
		values := make([]string, 0, len(task.ValidTags()))
		for _, tag := range task.ValidTags() {
			values = append(values, string(tag))
		}
		return strings.Join(values, ", ")
	},
}).Parse(`{{- if .IsUpdate }}# task {{ .ID }}
{{ end -}}
title = {{ printf "%q" .Title }}
tag = {{ printf "%q" .Tag }} # {{ tags }}
date = {{ printf "%q" .Date }} # 2026-03-15, 15-03 or 2026-03-15T14:30; empty for today
{{- if .IsUpdate }}
done = {{ .Done }}
{{- end }}
`))

// RenderTaskTOML renders the task data as a TOML string for editing.
func RenderTaskTOML(data TaskData) (string, error) {
	var buf bytes.Buffer
	if err := taskTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// ParsedTask represents the parsed result from the TOML editor output.
type ParsedTask struct {
	Title string `toml:"title"`
	Tag   string `toml:"tag"`
	Date  string `toml:"date"`
	Done  *bool  `toml:"done"`
}

// ParseTaskTOML parses the TOML content from the editor. The title and tag
// are validated here; the date is validated when it is normalized.
func ParseTaskTOML(content string) (*ParsedTask, error) {
	var parsed ParsedTask
	if _, err := toml.Decode(content, &parsed); err != nil {
		return nil, fmt.Errorf("parse TOML: %w", err)
	}

	title, err := task.ValidateTitle(parsed.Title)
	if err != nil {
		return nil, err
	}
	parsed.Title = title

	tag, err := task.ParseTag(parsed.Tag)
	if err != nil {
		return nil, err
	}
	parsed.Tag = string(tag)
	parsed.Date = strings.TrimSpace(parsed.Date)

	return &parsed, nil
}

// EditTask opens the editor with pre-populated data and returns the parsed result.
func EditTask(data TaskData) (*ParsedTask, error) {
	content, err := RenderTaskTOML(data)
	if err != nil {
		return nil, err
	}

	tmpfile, err := os.CreateTemp("", "tickler-task-*.toml")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpfile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpfile.WriteString(content); err != nil {
		tmpfile.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if err := Edit(tmpPath); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read edited file: %w", err)
	}

	return ParseTaskTOML(string(edited))
}

// ToCreateInput converts a ParsedTask to task.CreateInput.
func (p *ParsedTask) ToCreateInput() task.CreateInput {
	return task.CreateInput{Title: p.Title, Tag: p.Tag, Date: p.Date}
}

// ToUpdateInput converts a ParsedTask to task.UpdateInput. An empty date
// leaves the deadline alone.
func (p *ParsedTask) ToUpdateInput() task.UpdateInput {
	return task.UpdateInput{Title: &p.Title, Tag: &p.Tag, Date: &p.Date}
}
