package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/shellsync/shellsync/internal/store"
)

func openLocalHistory() (*store.Store, error) {
	return store.Open(filepath.Join(baseDirFlag, "history.db"))
}

func init() {
	var (
		command   string
		machineID string
		limit     int
		offset    int
	)
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search this machine's locally captured shell history",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openLocalHistory()
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := st.SearchHistory(store.HistorySearchFilter{
				CommandSubstring: command,
				MachineID:        machineID,
				Limit:            limit,
				Offset:           offset,
			})
			if err != nil {
				return err
			}
			for _, e := range entries {
				ts := time.UnixMilli(e.Timestamp).Format(time.RFC3339)
				fmt.Printf("%s [%s] %s\n", ts, e.Hostname, e.Command)
			}
			return nil
		},
	}
	searchCmd.Flags().StringVar(&command, "command", "", "Substring to match against the command text")
	searchCmd.Flags().StringVar(&machineID, "machine", "", "Restrict to a single machine id")
	searchCmd.Flags().IntVar(&limit, "limit", 50, "Maximum results")
	searchCmd.Flags().IntVar(&offset, "offset", 0, "Result offset for pagination")
	rootCmd.AddCommand(searchCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the local outbox count and the time of the most recent history entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openLocalHistory()
			if err != nil {
				return err
			}
			defer st.Close()

			pending, err := st.PendingCount()
			if err != nil {
				return err
			}
			recent, err := st.SearchHistory(store.HistorySearchFilter{Limit: 1})
			if err != nil {
				return err
			}

			fmt.Printf("Pending push: %d entries\n", pending)
			if len(recent) > 0 {
				fmt.Printf("Most recent:  %s\n", time.UnixMilli(recent[0].Timestamp).Format(time.RFC3339))
			}
			return nil
		},
	}
	rootCmd.AddCommand(statsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "init-hooks",
		Short: "Print shell hook snippets that forward commands to the daemon's hook socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(bashHookSnippet(filepath.Join(baseDirFlag, "sock")))
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:    "migrate",
		Short:  "Import a prior store format (external collaborator, not implemented)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(os.Stderr, "migrate: no legacy store format is supported by this build")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:    "encrypt-migrate",
		Short:  "Re-encrypt a prior store under current group keys (external collaborator, not implemented)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(os.Stderr, "encrypt-migrate: no legacy encrypted store format is supported by this build")
			return nil
		},
	})
}

// bashHookSnippet is installed into a shell's preexec/precmd (bash:
// DEBUG trap + PROMPT_COMMAND) to write one hook-payload JSON line per
// command to the daemon's local socket. Kept as a single, dependency-free
// snippet rather than a templated per-shell generator.
func bashHookSnippet(socketPath string) string {
	return fmt.Sprintf(`# Add to ~/.bashrc
__shellsync_preexec() {
  __shellsync_cmd="$BASH_COMMAND"
  __shellsync_start=$(date +%%s%%3N)
}
__shellsync_precmd() {
  local exit_code=$?
  local end=$(date +%%s%%3N)
  local duration=$((end - __shellsync_start))
  [ -n "$__shellsync_cmd" ] && printf '{"command":%%s,"cwd":%%s,"exit_code":%%d,"duration_ms":%%d,"session_id":%%s,"shell":"bash"}\n' \
    "$(printf '%%s' "$__shellsync_cmd" | python3 -c 'import json,sys;print(json.dumps(sys.stdin.read().rstrip()))')" \
    "$(printf '%%s' "$PWD" | python3 -c 'import json,sys;print(json.dumps(sys.stdin.read().rstrip()))')" \
    "$exit_code" "$duration" "\"$$\"" | socat - UNIX-CONNECT:%s 2>/dev/null
  __shellsync_cmd=""
}
trap '__shellsync_preexec' DEBUG
PROMPT_COMMAND="__shellsync_precmd;$PROMPT_COMMAND"
`, socketPath)
}
