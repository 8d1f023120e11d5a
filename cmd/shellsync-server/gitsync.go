package main

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shellsync/shellsync/internal/restapi"
	"github.com/shellsync/shellsync/internal/store"
)

// newGitSyncTrigger is a minimal GitSyncTrigger: it dumps every alias to
// a JSON file in repoPath and commits it if the directory is a git repo.
// The exporter itself is an external collaborator (spec §1); this just
// gives POST /api/git/sync and the interval ticker something concrete to
// call, not a full backup tool.
func newGitSyncTrigger(st *store.Store, repoPath string) restapi.GitSyncTrigger {
	return func() error {
		aliases, err := st.GetAll()
		if err != nil {
			return err
		}

		body, err := json.MarshalIndent(aliases, "", "  ")
		if err != nil {
			return err
		}

		if err := os.MkdirAll(repoPath, 0o755); err != nil {
			return err
		}
		dumpPath := filepath.Join(repoPath, "aliases.json")
		if err := os.WriteFile(dumpPath, body, 0o644); err != nil {
			return err
		}

		if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := runGit(ctx, repoPath, "add", "aliases.json"); err != nil {
			return err
		}
		if err := runGit(ctx, repoPath, "commit", "-m", "shellsync: alias snapshot"); err != nil {
			// A commit with nothing changed is not a failure.
			logrus.WithError(err).Debug("git-backup commit skipped")
		}
		return nil
	}
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Run()
}

// runGitSyncTicker fires trigger on a fixed interval, in addition to any
// POST /api/git/sync call.
func runGitSyncTicker(ctx context.Context, trigger restapi.GitSyncTrigger, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := trigger(); err != nil {
				logrus.WithError(err).Warn("Scheduled git-backup failed")
			}
		}
	}
}
