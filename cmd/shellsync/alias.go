package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shellsync/shellsync/internal/config"
)

func restClientFromConfig() (*apiClient, error) {
	cfg, err := config.LoadClientConfig(baseDirFlag)
	if err != nil {
		return nil, fmt.Errorf("load client config (run 'shellsync register' first): %w", err)
	}
	return newAPIClient(*cfg), nil
}

func init() {
	var group string

	addCmd := &cobra.Command{
		Use:   "add NAME COMMAND",
		Short: "Add a shell alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			a, err := c.AddAlias(context.Background(), args[0], args[1], group)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s=%q in group %s (id %d)\n", a.Name, a.Command, a.GroupName, a.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&group, "group", "default", "Group to add the alias to")
	rootCmd.AddCommand(addCmd)

	rmCmd := &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a shell alias by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			if err := c.DeleteAliasByName(context.Background(), args[0], group); err != nil {
				return err
			}
			fmt.Printf("Removed %s from group %s\n", args[0], group)
			return nil
		},
	}
	rmCmd.Flags().StringVar(&group, "group", "default", "Group the alias belongs to")
	rootCmd.AddCommand(rmCmd)

	updateCmd := &cobra.Command{
		Use:   "update ID COMMAND",
		Short: "Update an existing alias's command",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alias id %q", args[0])
			}
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			a, err := c.UpdateAlias(context.Background(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Updated %s to %q (version %d)\n", a.Name, a.Command, a.Version)
			return nil
		},
	}
	rootCmd.AddCommand(updateCmd)

	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List aliases visible to this machine's groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			resp, err := c.ListAliases(context.Background())
			if err != nil {
				return err
			}
			for _, a := range resp.Aliases {
				fmt.Printf("%-20s %-10s %s\n", a.Name, a.GroupName, a.Command)
			}
			return nil
		},
	}
	rootCmd.AddCommand(lsCmd)

	var importGroup string
	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Bulk-add aliases from a JSON file ({name, command, group}[])",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var entries []aliasRequest
			if err := json.Unmarshal(body, &entries); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if importGroup != "" {
				for i := range entries {
					if entries[i].Group == "" {
						entries[i].Group = importGroup
					}
				}
			}

			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			result, err := c.Import(context.Background(), entries)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d, failed %d\n", len(result.Added), len(result.Failed))
			for _, f := range result.Failed {
				fmt.Printf("  failed: %s (%s)\n", f.Name, f.Reason)
			}
			return nil
		},
	}
	importCmd.Flags().StringVar(&importGroup, "group", "", "Default group for entries that don't specify one")
	rootCmd.AddCommand(importCmd)

	var exportFile string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every alias visible to this machine as CSV (no JSON output)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := restClientFromConfig()
			if err != nil {
				return err
			}
			resp, err := c.ListAliases(context.Background())
			if err != nil {
				return err
			}

			out := os.Stdout
			if exportFile != "" {
				f, err := os.Create(exportFile)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			w := csv.NewWriter(out)
			defer w.Flush()
			w.Write([]string{"name", "command", "group"})
			for _, a := range resp.Aliases {
				w.Write([]string{a.Name, a.Command, a.GroupName})
			}
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportFile, "output", "", "Destination file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
