package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/amonks/tickler/internal/config"
)

// Sink shows a due notification to the user.
type Sink interface {
	Deliver(ctx context.Context, record Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, record Record) error

// Deliver calls fn.
func (fn SinkFunc) Deliver(ctx context.Context, record Record) error {
	return fn(ctx, record)
}

const (
	defaultWidth = 72
	bodyIndent   = 2
)

// WriterSink prints notifications as styled blocks.
type WriterSink struct {
	writer     io.Writer
	width      int
	titleStyle lipgloss.Style
	hintStyle  lipgloss.Style
}

// NewWriterSink returns a sink writing to w, wrapping bodies at width
// columns (72 when width is not positive).
func NewWriterSink(w io.Writer, width int) *WriterSink {
	if w == nil {
		w = io.Discard
	}
	if width <= 0 {
		width = defaultWidth
	}
	return &WriterSink{
		writer:     w,
		width:      width,
		titleStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")),
		hintStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}

// Deliver writes record.
func (s *WriterSink) Deliver(ctx context.Context, record Record) error {
	var b strings.Builder
	b.WriteString(s.titleStyle.Render("Reminder: " + record.Title))
	b.WriteString("\n")
	if body := strings.TrimSpace(record.Body); body != "" {
		wrapped := wordwrap.String(body, s.width-bodyIndent)
		b.WriteString(indent.String(wrapped, bodyIndent))
		b.WriteString("\n")
	}
	b.WriteString(indent.String(s.hintStyle.Render("tickler open "+record.Handle), bodyIndent))
	b.WriteString("\n")

	_, err := io.WriteString(s.writer, b.String())
	return err
}

// CommandSink runs a shell script for every notification. The script
// sees TICKLER_HANDLE, TICKLER_TASK_ID, TICKLER_TITLE and TICKLER_BODY in
// its environment.
type CommandSink struct {
	Dir    string
	Script string
}

// Deliver runs the script for record.
func (s CommandSink) Deliver(ctx context.Context, record Record) error {
	env := []string{
		"TICKLER_HANDLE=" + record.Handle,
		"TICKLER_TASK_ID=" + record.TaskID,
		"TICKLER_TITLE=" + record.Title,
		"TICKLER_BODY=" + record.Body,
	}
	if err := config.RunScript(s.Dir, s.Script, env); err != nil {
		return fmt.Errorf("notify command: %w", err)
	}
	return nil
}

// MultiSink delivers to every sink in order, stopping at the first error.
type MultiSink []Sink

// Deliver implements Sink.
func (m MultiSink) Deliver(ctx context.Context, record Record) error {
	for _, sink := range m {
		if err := sink.Deliver(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
