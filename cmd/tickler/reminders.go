package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amonks/tickler/internal/paths"
	"github.com/amonks/tickler/internal/ui"
	"github.com/amonks/tickler/notify"
	"github.com/amonks/tickler/reminder"
	"github.com/amonks/tickler/task"
)

// sync
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile reminders with the current tasks",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

// reminders
var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "List scheduled reminders",
	Args:  cobra.NoArgs,
	RunE:  runReminders,
}

var remindersJSON bool

// watch
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep reminders in sync and deliver them until interrupted",
	Long: `Keep reminders in sync and deliver them until interrupted.

Due reminders are printed to stdout. When notify.command is configured it
is run for each reminder with TICKLER_HANDLE, TICKLER_TASK_ID,
TICKLER_TITLE and TICKLER_BODY set.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

// deliver
var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Deliver due reminders once",
	Args:  cobra.NoArgs,
	RunE:  runDeliver,
}

// open
var openCmd = &cobra.Command{
	Use:   "open <handle>",
	Short: "Open the task a delivered reminder refers to",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	rootCmd.AddCommand(syncCmd, remindersCmd, watchCmd, deliverCmd, openCmd)

	remindersCmd.Flags().BoolVar(&remindersJSON, "json", false, "Output as JSON")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.session.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Println(formatReport(report))
	for _, failure := range report.Errors {
		fmt.Fprintf(os.Stderr, "  %v\n", failure)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d reminder operation(s) failed", report.Failed)
	}
	return nil
}

func formatReport(report reminder.Report) string {
	return fmt.Sprintf("Scheduled %d, rescheduled %d, cancelled %d, unchanged %d, failed %d.",
		report.Scheduled, report.Rescheduled, report.Cancelled, report.Unchanged, report.Failed)
}

// reminderRow is the JSON form of one ReminderMap entry.
type reminderRow struct {
	TaskID    string    `json:"taskId"`
	Title     string    `json:"title"`
	Handle    string    `json:"handle"`
	TriggerAt time.Time `json:"triggerAt"`
}

func runReminders(cmd *cobra.Command, args []string) error {
	a, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.repo()
	entries := a.session.Scheduler().Entries()
	rows := make([]reminderRow, 0, len(entries))
	for id, entry := range entries {
		item, _ := repo.Get(id)
		rows = append(rows, reminderRow{TaskID: id, Title: item.Title, Handle: entry.Handle, TriggerAt: entry.TriggerAt})
	}
	slices.SortFunc(rows, func(x, y reminderRow) int {
		if c := x.TriggerAt.Compare(y.TriggerAt); c != 0 {
			return c
		}
		return strings.Compare(x.TaskID, y.TaskID)
	})

	if remindersJSON {
		return writeJSON(os.Stdout, rows)
	}
	if len(rows) == 0 {
		fmt.Println("No reminders scheduled.")
		return nil
	}

	highlight := taskHighlighter(repo.Tasks())
	now := nowFunc()
	builder := ui.NewTableBuilder([]string{"TASK", "FIRES", "AT", "TITLE", "HANDLE"}, len(rows))
	for _, row := range rows {
		builder.AddRow(
			highlight(row.TaskID),
			ui.FormatDue(row.TriggerAt, now),
			ui.FormatDate(row.TriggerAt),
			ui.TruncateTableCell(row.Title),
			row.Handle,
		)
	}
	fmt.Print(builder.String())
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	deliverer, err := a.deliverer()
	if err != nil {
		return err
	}

	fmt.Printf("Watching reminders for %s (%d task(s), %d scheduled). Press Ctrl-C to stop.\n",
		a.userID, a.repo().Len(), len(a.session.Scheduler().Entries()))
	return deliverer.Run(ctx)
}

func runDeliver(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	deliverer, err := a.deliverer()
	if err != nil {
		return err
	}
	count, err := deliverer.DeliverDue(cmd.Context())
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("No reminders due.")
		return nil
	}
	fmt.Printf("Delivered %d reminder(s).\n", count)
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var tapped string
	a, err := openSession(ctx, func(taskID string) { tapped = taskID })
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.spool.Get(ctx, args[0])
	if err == nil && record.UserID != a.userID {
		err = fmt.Errorf("%w: %s", notify.ErrNotFound, args[0])
	}
	if err != nil {
		return err
	}

	item, err := a.session.Tap(ctx, record.Payload)
	if errors.Is(err, task.ErrTaskNotFound) {
		printTaskGone(record.TaskID)
		return nil
	}
	if err != nil {
		return err
	}

	entry, scheduled := a.session.Scheduler().Entries()[tapped]
	printTaskDetail(item, entry, scheduled, nowFunc())
	return nil
}

// deliverer builds the delivery loop printing to stdout and running the
// configured notify command.
func (a *app) deliverer() (*notify.Deliverer, error) {
	sinks := notify.MultiSink{notify.NewWriterSink(os.Stdout, 0)}
	if script := a.cfg.Notify.Command; script != "" {
		dir, err := paths.WorkingDir()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.CommandSink{Dir: dir, Script: script})
	}
	return notify.NewDeliverer(notify.DelivererOptions{
		Spool:    a.spool,
		UserID:   a.userID,
		Sink:     sinks,
		Interval: a.cfg.Notify.Interval,
		Logger:   a.logger,
	})
}
