package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shellsync/shellsync/internal/config"
	"github.com/shellsync/shellsync/internal/daemon"
)

func pidFilePath(baseDir string) string {
	return filepath.Join(baseDir, "daemon.pid")
}

func loadDaemonConfig() (daemon.Config, error) {
	cfg, err := config.LoadClientConfig(baseDirFlag)
	if err != nil {
		return daemon.Config{}, fmt.Errorf("load client config (run 'shellsync register' first): %w", err)
	}
	return daemon.Config{
		ServerURL: cfg.ServerURL,
		MachineID: cfg.MachineID,
		AuthToken: cfg.AuthToken,
		Groups:    cfg.Groups,
		Hostname:  cfg.Hostname,
		BaseDir:   baseDirFlag,
	}, nil
}

func init() {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Run the sync daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			dcfg, err := loadDaemonConfig()
			if err != nil {
				return err
			}

			d, err := daemon.New(dcfg)
			if err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}
			defer d.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go func() {
				c := make(chan os.Signal, 1)
				signal.Notify(c, os.Interrupt, syscall.SIGTERM)
				<-c
				logrus.Info("Received shutdown signal")
				cancel()
			}()

			logrus.WithField("server", dcfg.ServerURL).Info("Connecting to sync service")
			return d.Run(ctx)
		},
	}
	rootCmd.AddCommand(cmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running and its registered identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadClientConfig(baseDirFlag)
			if err != nil {
				fmt.Println("Not registered: run 'shellsync register' first")
				return nil
			}

			running, pid := daemonRunning(baseDirFlag)
			state := "stopped"
			if running {
				state = fmt.Sprintf("running (pid %d)", pid)
			}

			fmt.Printf("Machine:  %s (%s)\n", cfg.MachineID, cfg.Hostname)
			fmt.Printf("Server:   %s\n", cfg.ServerURL)
			fmt.Printf("Groups:   %s\n", strings.Join(cfg.Groups, ", "))
			fmt.Printf("Daemon:   %s\n", state)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid := daemonRunning(baseDirFlag)
			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return err
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("stop daemon (pid %d): %w", pid, err)
			}
			fmt.Printf("Sent shutdown signal to daemon (pid %d)\n", pid)
			return nil
		},
	})
}

// daemonRunning reads the PID file and checks whether that process is
// still alive (signal 0). A stale file from an unclean shutdown reports
// not-running.
func daemonRunning(baseDir string) (bool, int) {
	data, err := os.ReadFile(pidFilePath(baseDir))
	if err != nil {
		return false, 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, 0
	}
	return true, pid
}
