// Package main implements the tickler CLI tool.
package main

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "tickler",
	Short:         "Tickler - synced tasks with deadline reminders",
	SilenceUsage: true,
}

const defaultWaitTimeout = 5 * time.Second

var (
	globalConfigPath string
	globalUserID     string
	globalWait       time.Duration
	globalVerbose    bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalConfigPath, "config", "", "Override config file (default $TICKLER_CONFIG)")
	flags.StringVar(&globalUserID, "user", "", "User whose tasks to use (default from config)")
	flags.DurationVar(&globalWait, "wait", defaultWaitTimeout, "How long mutations wait for the synced snapshot")
	flags.BoolVarP(&globalVerbose, "verbose", "v", false, "Log sync and reminder activity to stderr")
}
