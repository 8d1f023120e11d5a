package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shellsync/shellsync/internal/models"
	"github.com/shellsync/shellsync/internal/shellwriter"
)

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Force a one-shot alias reconcile against the sync service",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			resp, err := c.ListAliases(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Fetched %d aliases across groups %v\n", resp.Count, resp.Groups)
			aliases := make([]models.Alias, 0, len(resp.Aliases))
			for _, a := range resp.Aliases {
				aliases = append(aliases, models.Alias(a))
			}
			w := shellwriter.New(filepath.Join(baseDirFlag, "aliases.sh"), filepath.Join(baseDirFlag, "shellrc"))
			return w.Apply(aliases)
		},
	}
	rootCmd.AddCommand(syncCmd)

	conflictsCmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List this machine's unresolved sync conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			conflicts, err := c.Conflicts(context.Background())
			if err != nil {
				return err
			}
			if len(conflicts) == 0 {
				fmt.Println("No unresolved conflicts")
				return nil
			}
			for _, cf := range conflicts {
				fmt.Printf("#%d %s/%s: local=%q remote=%q\n", cf.ID, cf.GroupName, cf.AliasName, cf.LocalCommand, cf.RemoteCommand)
			}
			return nil
		},
	}

	var resolveID int64
	var resolution string
	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a conflict (keep-local, keep-remote, ignore)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			if err := c.ResolveConflict(context.Background(), resolveID, resolution); err != nil {
				return err
			}
			fmt.Printf("Resolved conflict #%d as %s\n", resolveID, resolution)
			return nil
		},
	}
	resolveCmd.Flags().Int64Var(&resolveID, "id", 0, "Conflict id")
	resolveCmd.Flags().StringVar(&resolution, "resolution", "keep-remote", "Resolution: keep-local, keep-remote, or ignore")
	conflictsCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(conflictsCmd)

	var auditLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the sync audit log (alias add/update/delete events)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			entries, err := c.SyncAudit(context.Background(), auditLimit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%d %s %-8s %s/%s\n", e.Timestamp, e.MachineID, e.Action, e.GroupName, e.AliasName)
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)

	machinesCmd := &cobra.Command{
		Use:   "machines",
		Short: "List machines registered with the sync service",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			machines, err := c.Machines(context.Background())
			if err != nil {
				return err
			}
			for _, m := range machines {
				fmt.Printf("%-36s %-20s %v\n", m.MachineID, m.Hostname, m.Groups)
			}
			return nil
		},
	}
	rootCmd.AddCommand(machinesCmd)

	gitBackupCmd := &cobra.Command{
		Use:   "git-backup",
		Short: "Trigger the sync service's alias-to-git export",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			if err := c.GitSync(context.Background()); err != nil {
				return err
			}
			fmt.Println("Git backup triggered")
			return nil
		},
	}
	rootCmd.AddCommand(gitBackupCmd)
}
