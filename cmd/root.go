package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "skulwise",
	Short:         "Offline-first study tracker",
	Long:          "Skulwise records study activity offline, awards XP, streaks and achievements, and syncs to the remote store when a connection is available.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and cancels its context on SIGINT or
// SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default $XDG_CONFIG_HOME/skulwise/config.toml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides SKULWISE_DB and [storage] path)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
