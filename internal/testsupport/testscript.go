package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/amonks/tickler/task"
)

var (
	buildOnce   sync.Once
	ticklerPath string
	buildErr    error
)

// BuildTickler builds the tickler binary once and returns its path.
func BuildTickler(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "tickler-bin-")
		if err != nil {
			buildErr = err
			return
		}

		ticklerPath = filepath.Join(binDir, "tickler")
		cmd := exec.Command("go", "build", "-o", ticklerPath, "./cmd/tickler")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build tickler: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return ticklerPath
}

// SetupScriptEnv configures common environment variables for testscript.
// Each script gets its own home directory, so its database, state and
// config files never leak between scripts.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("TICKLER", BuildTickler(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("TICKLER_CONFIG", "")
	env.Setenv("NO_COLOR", "1")
	return nil
}

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

// CmdTaskID finds a task by title in `tickler list --json` output and
// stores its ID in an env var.
func CmdTaskID(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("taskid does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: taskid FILE TITLE VAR")
	}

	var items []task.Task
	data := ts.ReadFile(args[0])
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		ts.Fatalf("parse task list: %v", err)
	}

	title := args[1]
	for _, item := range items {
		if item.Title == title {
			ts.Setenv(args[2], item.ID)
			return
		}
	}

	ts.Fatalf("task with title %q not found", title)
}

// CmdReminderHandle finds a reminder by task title in
// `tickler reminders --json` output and stores its handle in an env var.
func CmdReminderHandle(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("reminderhandle does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: reminderhandle FILE TITLE VAR")
	}

	var rows []struct {
		Title  string `json:"title"`
		Handle string `json:"handle"`
	}
	data := ts.ReadFile(args[0])
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		ts.Fatalf("parse reminder list: %v", err)
	}

	for _, row := range rows {
		if row.Title == args[1] {
			ts.Setenv(args[2], row.Handle)
			return
		}
	}

	ts.Fatalf("reminder for %q not found", args[1])
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
