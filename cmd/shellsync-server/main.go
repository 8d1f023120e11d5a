// Command shellsync-server runs the sync service: the REST surface, the
// persistent event channel, and (if configured) the periodic git-backup
// exporter (spec §4.D, §1).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shellsync/shellsync/internal/config"
	"github.com/shellsync/shellsync/internal/hub"
	"github.com/shellsync/shellsync/internal/metrics"
	"github.com/shellsync/shellsync/internal/restapi"
	"github.com/shellsync/shellsync/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "shellsync-server",
		Short:   "shellsync sync service",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE:    run,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory path")
	rootCmd.PersistentFlags().StringP("listen", "l", ":7770", "API listen address")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServerConfig(cmd)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	setupLogging(cfg.LogLevel)
	logrus.WithFields(logrus.Fields{"version": version, "commit": commit}).Info("Starting shellsync-server")

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer st.Close()

	h := hub.New()

	var gitSync restapi.GitSyncTrigger
	if cfg.GitSync.Enable {
		gitSync = newGitSyncTrigger(st, cfg.GitSync.RepoPath)
	}

	api := restapi.New(st, h, gitSync)

	mux := http.NewServeMux()
	mux.Handle("/", api.Router())

	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enable {
		metricsReg := metrics.NewRegistry(reg, "shellsync_server")
		sampler := metrics.NewSystemSampler(reg, "shellsync_server")
		stop := make(chan struct{})
		defer close(stop)
		go sampler.Run(stop, 15*time.Second)

		go reportConnectionCount(stop, h, metricsReg)

		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	httpServer := &http.Server{Addr: cfg.Listen, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logrus.Info("Received shutdown signal")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
		cancel()
	}()

	if cfg.GitSync.Enable {
		go runGitSyncTicker(ctx, gitSync, time.Duration(cfg.GitSync.IntervalMinute)*time.Minute)
	}

	logrus.WithField("listen", cfg.Listen).Info("Listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}

	logrus.Info("shellsync-server stopped")
	return nil
}

func reportConnectionCount(stop <-chan struct{}, h *hub.Hub, reg *metrics.Registry) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			reg.ConnectedMachines.Set(float64(h.ConnectionCount()))
		}
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
