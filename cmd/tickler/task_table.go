package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/amonks/tickler/internal/ui"
	"github.com/amonks/tickler/task"
	"github.com/amonks/tickler/view"
)

var nowFunc = time.Now

func formatTaskTable(tasks []task.Task, prefixLengths map[string]int, highlight func(string, int) string, now time.Time) string {
	builder := ui.NewTableBuilder([]string{"ID", "DONE", "TAG", "DUE", "DATE", "TITLE"}, len(tasks))

	if prefixLengths == nil {
		prefixLengths = task.NewIDIndex(tasks).PrefixLengths()
	}

	for _, item := range tasks {
		builder.AddRow(
			highlight(item.ID, ui.PrefixLength(prefixLengths, item.ID)),
			doneMark(item.IsDone),
			string(item.Tag),
			ui.FormatDue(item.Deadline, now),
			ui.FormatDate(item.Deadline),
			ui.TruncateTableCell(item.Title),
		)
	}

	return builder.String()
}

func doneMark(done bool) string {
	if done {
		return "x"
	}
	return "-"
}

// taskHighlighter highlights ids by their shortest unique prefix among tasks.
func taskHighlighter(tasks []task.Task) func(string) string {
	prefixLengths := task.NewIDIndex(tasks).PrefixLengths()
	return func(id string) string {
		return ui.HighlightID(id, ui.PrefixLength(prefixLengths, id))
	}
}

func taskEmptyListMessage(total int, filter view.Filter) string {
	if total == 0 {
		return "No tasks found."
	}
	if filter != view.FilterAll {
		return fmt.Sprintf("No %s tasks found.", strings.ToLower(string(filter)))
	}
	return "No tasks found."
}

func allDoneStyle() lipgloss.Style {
	style := lipgloss.NewStyle()
	if ui.ColorEnabled() {
		style = style.Bold(true).Foreground(lipgloss.Color("2"))
	}
	return style
}
