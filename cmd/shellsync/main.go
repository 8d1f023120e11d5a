// Command shellsync is the client-side daemon and CLI: it registers a
// machine with a sync service, runs the persistent event-channel
// connection in the foreground, and gives a human operator direct
// commands over aliases, conflicts, history, and machines without going
// through a shell hook.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
)

var baseDirFlag string

var rootCmd = &cobra.Command{
	Use:     "shellsync",
	Short:   "shellsync client daemon and CLI",
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(os.Getenv("SHELLSYNC_LOG_LEVEL"))
	},
}

func main() {
	defaultBaseDir, err := defaultBaseDir()
	if err != nil {
		defaultBaseDir = ".shellsync"
	}
	rootCmd.PersistentFlags().StringVar(&baseDirFlag, "base-dir", defaultBaseDir, "Daemon state directory (keys, history, queue, config.toml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".shellsync"), nil
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
