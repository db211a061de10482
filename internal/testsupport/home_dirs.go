package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// homeDirs are the XDG locations tickler reads and writes below $HOME.
var homeDirs = [][]string{
	{".config", "tickler"},
	{".local", "state", "tickler"},
	{".local", "share", "tickler"},
}

// EnsureHomeDirs creates tickler's config, state and data directories under homeDir.
func EnsureHomeDirs(homeDir string) error {
	for _, parts := range homeDirs {
		dir := filepath.Join(append([]string{homeDir}, parts...)...)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Join(parts...), err)
		}
	}
	return nil
}

// SetupTestHome points HOME at a fresh temp directory holding the tickler
// layout and clears TICKLER_CONFIG so no override file leaks in.
func SetupTestHome(t testing.TB) string {
	t.Helper()

	homeDir := t.TempDir()
	if err := EnsureHomeDirs(homeDir); err != nil {
		t.Fatalf("setup home dir: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("TICKLER_CONFIG", "")
	return homeDir
}
