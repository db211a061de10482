package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amonks/tickler/internal/editor"
	"github.com/amonks/tickler/internal/ui"
	"github.com/amonks/tickler/task"
	"github.com/amonks/tickler/view"
)

// add
var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task.

The date may be a full date (2026-03-15), a day and month (15-03) in the
current year, or a date and time (2026-03-15T14:30). Dates without a time
use reminders.deadline-time. With no date the task is due today.

By default, opens $EDITOR to edit a TOML representation of the task
when running interactively. Use --no-edit to skip the editor, or
--edit to force opening the editor even when not interactive.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

var (
	addTag    string
	addDate   string
	addEdit   bool
	addNoEdit bool
)

// list
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks ordered by deadline",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var (
	listFilter = filterValue(view.FilterAll)
	listJSON   bool
)

// show
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var showJSON bool

// done
var doneCmd = &cobra.Command{
	Use:   "done <id>...",
	Short: "Mark one or more tasks as done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetDone(cmd, args, true)
	},
}

// undo
var undoCmd = &cobra.Command{
	Use:   "undo <id>...",
	Short: "Mark one or more tasks as not done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetDone(cmd, args, false)
	},
}

// edit
var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a task's title, tag or date",
	Long: `Change a task's title, tag or date.

With no change flags, opens $EDITOR on a TOML representation of the task
when running interactively (or with --edit).`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var (
	editTitle  string
	editTag    string
	editDate   string
	editEdit   bool
	editNoEdit bool
)

// rm
var rmCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"delete"},
	Short:   "Delete one or more tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRemove,
}

var rmYes bool

func init() {
	rootCmd.AddCommand(addCmd, listCmd, showCmd, doneCmd, undoCmd, editCmd, rmCmd)

	addCmd.Flags().StringVarP(&addTag, "tag", "t", "", "Tag (work, personal, wishlist, birthday)")
	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "Deadline (default today)")
	addCmd.Flags().BoolVarP(&addEdit, "edit", "e", false, "Open $EDITOR (default if interactive)")
	addCmd.Flags().BoolVar(&addNoEdit, "no-edit", false, "Do not open $EDITOR")

	listCmd.Flags().VarP(&listFilter, "tag", "t", "Show only one tag (all, work, personal, wishlist, birthday)")
	_ = listCmd.RegisterFlagCompletionFunc("tag", completeFilters)
	_ = addCmd.RegisterFlagCompletionFunc("tag", completeTags)
	_ = editCmd.RegisterFlagCompletionFunc("tag", completeTags)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVarP(&editTag, "tag", "t", "", "New tag")
	editCmd.Flags().StringVarP(&editDate, "date", "d", "", "New deadline")
	editCmd.Flags().BoolVarP(&editEdit, "edit", "e", false, "Open $EDITOR (default if interactive and no change flags)")
	editCmd.Flags().BoolVar(&editNoEdit, "no-edit", false, "Do not open $EDITOR")

	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "Do not ask for confirmation")
}

func runAdd(cmd *cobra.Command, args []string) error {
	input := task.CreateInput{Tag: addTag, Date: addDate}
	if len(args) > 0 {
		input.Title = args[0]
	}

	// Determine whether to open editor:
	// - --edit forces editor
	// - --no-edit skips editor
	// - otherwise, open editor if interactive
	if addEdit || (!addNoEdit && editor.IsInteractive()) {
		data := editor.DefaultCreateData()
		data.Title = input.Title
		if cmd.Flags().Changed("tag") {
			data.Tag = addTag
		}
		data.Date = addDate
		parsed, err := editor.EditTask(data)
		if err != nil {
			return err
		}
		input = parsed.ToCreateInput()
	} else if len(args) == 0 {
		return fmt.Errorf("title is required (use --edit to open editor)")
	}

	ctx := cmd.Context()
	a, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.repo()
	id, err := repo.Create(ctx, input)
	if err != nil {
		return err
	}
	if err := a.waitFor(ctx, func() bool {
		_, ok := repo.Get(id)
		return ok
	}); err != nil {
		return err
	}

	created, _ := repo.Get(id)
	highlight := taskHighlighter(repo.Tasks())
	fmt.Printf("Created task %s: %s (due %s)\n", highlight(created.ID), created.Title, ui.FormatDate(created.Deadline))
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	filter := view.Filter(listFilter)
	a, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	projector := a.session.Projector()
	projector.SetFilter(filter)
	tasks := projector.Tasks()

	if listJSON {
		if tasks == nil {
			tasks = []task.Task{}
		}
		return writeJSON(os.Stdout, tasks)
	}

	if len(tasks) == 0 {
		fmt.Println(taskEmptyListMessage(a.repo().Len(), filter))
		return nil
	}
	fmt.Print(formatTaskTable(tasks, task.NewIDIndex(a.repo().Tasks()).PrefixLengths(), ui.HighlightID, nowFunc()))
	if projector.AllDone() {
		fmt.Println()
		fmt.Println(allDoneStyle().Render("All done!"))
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.repo()
	id, err := repo.Resolve(args[0])
	if err != nil {
		return err
	}
	item, _ := repo.Get(id)

	if showJSON {
		return writeJSON(os.Stdout, item)
	}

	entry, scheduled := a.session.Scheduler().Entries()[id]
	printTaskDetail(item, entry, scheduled, nowFunc())
	return nil
}

func runSetDone(cmd *cobra.Command, args []string, done bool) error {
	ctx := cmd.Context()
	a, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.repo()
	ids, err := resolveTaskIDs(repo, args)
	if err != nil {
		return err
	}

	written := make([]string, 0, len(ids))
	for _, id := range ids {
		err := repo.SetDone(ctx, id, done)
		if errors.Is(err, task.ErrTaskNotFound) {
			printTaskGone(id)
			continue
		}
		if err != nil {
			return err
		}
		written = append(written, id)
	}

	if err := a.waitFor(ctx, func() bool {
		for _, id := range written {
			if item, ok := repo.Get(id); ok && item.IsDone != done {
				return false
			}
		}
		return true
	}); err != nil {
		return err
	}

	highlight := taskHighlighter(repo.Tasks())
	state := "done"
	if !done {
		state = "not done"
	}
	for _, id := range written {
		fmt.Printf("Marked %s %s\n", highlight(id), state)
	}
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	hasFlags := hasChangedFlags(cmd, "title", "tag", "date")
	useEditor := editEdit || (!hasFlags && !editNoEdit && editor.IsInteractive())
	if !hasFlags && !useEditor {
		return fmt.Errorf("nothing to change (use --title, --tag or --date)")
	}

	ctx := cmd.Context()
	a, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.repo()
	id, err := repo.Resolve(args[0])
	if errors.Is(err, task.ErrTaskNotFound) {
		printTaskGone(args[0])
		return nil
	}
	if err != nil {
		return err
	}

	input := task.UpdateInput{}
	if cmd.Flags().Changed("title") {
		input.Title = &editTitle
	}
	if cmd.Flags().Changed("tag") {
		input.Tag = &editTag
	}
	if cmd.Flags().Changed("date") {
		input.Date = &editDate
	}

	var done *bool
	if useEditor {
		existing, _ := repo.Get(id)
		data := editor.DataFromTask(existing)
		if input.Title != nil {
			data.Title = *input.Title
		}
		if input.Tag != nil {
			data.Tag = *input.Tag
		}
		if input.Date != nil {
			data.Date = *input.Date
		}
		parsed, err := editor.EditTask(data)
		if err != nil {
			return err
		}
		input = parsed.ToUpdateInput()
		if parsed.Done != nil && *parsed.Done != existing.IsDone {
			done = parsed.Done
		}
	}

	if blankUpdate(input) && done == nil {
		fmt.Println("Nothing to change.")
		return nil
	}

	generation := a.session.Generation()
	if !blankUpdate(input) {
		err = repo.Update(ctx, id, input)
	}
	if err == nil && done != nil {
		err = repo.SetDone(ctx, id, *done)
	}
	if errors.Is(err, task.ErrTaskNotFound) {
		printTaskGone(id)
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.waitForNext(ctx, generation); err != nil {
		return err
	}

	updated, ok := repo.Get(id)
	if !ok {
		printTaskGone(id)
		return nil
	}
	highlight := taskHighlighter(repo.Tasks())
	fmt.Printf("Updated task %s: %s (due %s)\n", highlight(updated.ID), updated.Title, ui.FormatDate(updated.Deadline))
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	repo := a.repo()
	ids, err := resolveTaskIDs(repo, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	if !rmYes {
		confirmed, err := confirmRemove(repo, ids)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		err := repo.Remove(ctx, id)
		if errors.Is(err, task.ErrTaskNotFound) {
			printTaskGone(id)
			continue
		}
		if err != nil {
			return err
		}
		removed = append(removed, id)
	}

	if err := a.waitFor(ctx, func() bool {
		for _, id := range removed {
			if _, ok := repo.Get(id); ok {
				return false
			}
		}
		return true
	}); err != nil {
		return err
	}

	for _, id := range removed {
		fmt.Printf("Deleted task %s\n", id)
	}
	return nil
}

// resolveTaskIDs expands id prefixes. Prefixes matching no task are
// reported and skipped.
func resolveTaskIDs(repo *task.Repository, prefixes []string) ([]string, error) {
	ids := make([]string, 0, len(prefixes))
	seen := make(map[string]bool, len(prefixes))
	for _, prefix := range prefixes {
		id, err := repo.Resolve(prefix)
		if errors.Is(err, task.ErrTaskNotFound) {
			printTaskGone(prefix)
			continue
		}
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// writeJSON writes value as indented JSON for --json output.
func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func printTaskGone(id string) {
	fmt.Printf("Task %s not found; nothing to do.\n", id)
}

func blankUpdate(input task.UpdateInput) bool {
	for _, value := range []*string{input.Title, input.Tag, input.Date} {
		if value != nil && strings.TrimSpace(*value) != "" {
			return false
		}
	}
	return true
}

func confirmRemove(repo *task.Repository, ids []string) (bool, error) {
	if !ui.IsTerminal(os.Stdin) {
		return false, fmt.Errorf("refusing to delete without confirmation (use --yes)")
	}

	titles := make([]string, 0, len(ids))
	for _, id := range ids {
		if item, ok := repo.Get(id); ok {
			titles = append(titles, fmt.Sprintf("  %s  %s", id, item.Title))
		}
	}
	fmt.Printf("Delete %d task(s)?\n%s\n[y/N] ", len(ids), strings.Join(titles, "\n"))

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
