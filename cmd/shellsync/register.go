package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shellsync/shellsync/internal/config"
	"github.com/shellsync/shellsync/internal/registration"
)

func init() {
	var serverURL string
	var groups []string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this machine with a sync service",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := registration.Register(context.Background(), registration.Options{
				ExplicitServerURL: serverURL,
				Groups:            groups,
				KeysDir:           filepath.Join(baseDirFlag, "keys"),
			})
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}

			err = config.SaveClientConfig(baseDirFlag, config.ClientConfig{
				ServerURL: result.ServerURL,
				MachineID: result.MachineID,
				AuthToken: result.AuthToken,
				Hostname:  result.Hostname,
				Groups:    result.Groups,
			})
			if err != nil {
				return fmt.Errorf("save client config: %w", err)
			}

			fmt.Printf("Registered as machine %s (hostname %s) in groups %v\n", result.MachineID, result.Hostname, result.Groups)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "Explicit sync service URL (overrides environment and discovery)")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "Group to join (repeatable); at least one required")

	rootCmd.AddCommand(cmd)
}
