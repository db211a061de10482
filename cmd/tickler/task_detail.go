package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/amonks/tickler/internal/markdown"
	"github.com/amonks/tickler/internal/ui"
	"github.com/amonks/tickler/reminder"
	"github.com/amonks/tickler/task"
)

const taskDetailLineWidth = 80

// printTaskDetail prints a task as a rendered markdown card.
func printTaskDetail(item task.Task, entry reminder.Entry, scheduled bool, now time.Time) {
	fmt.Println(string(markdown.Render(taskDetailLineWidth, 0, []byte(taskDetailMarkdown(item, entry, scheduled, now)))))
}

func taskDetailMarkdown(item task.Task, entry reminder.Entry, scheduled bool, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", item.Title)
	fmt.Fprintf(&b, "- **ID:** %s\n", item.ID)
	fmt.Fprintf(&b, "- **Tag:** %s\n", item.Tag)
	if item.HasDeadline() {
		fmt.Fprintf(&b, "- **Due:** %s (%s)\n", ui.FormatDate(item.Deadline), ui.FormatDue(item.Deadline, now))
	} else {
		b.WriteString("- **Due:** -\n")
	}
	if item.IsDone {
		b.WriteString("- **Status:** done\n")
	} else {
		b.WriteString("- **Status:** open\n")
	}
	if scheduled {
		fmt.Fprintf(&b, "- **Reminder:** %s\n", ui.FormatDate(entry.TriggerAt))
	} else {
		b.WriteString("- **Reminder:** none\n")
	}
	return b.String()
}
