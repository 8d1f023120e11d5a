package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newTestServerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("listen", "", "")
	cmd.Flags().String("data-dir", "", "")
	cmd.Flags().String("log-level", "", "")
	return cmd
}

func TestSetServerDefaults(t *testing.T) {
	v := viper.New()
	setServerDefaults(v)

	require.Equal(t, ":7770", v.GetString("listen"))
	require.Equal(t, "info", v.GetString("log_level"))
	require.True(t, v.GetBool("metrics.enable"))
	require.Equal(t, "/metrics", v.GetString("metrics.path"))
	require.False(t, v.GetBool("git_sync.enable"))
	require.Equal(t, 15, v.GetInt("git_sync.interval_minutes"))
}

func TestLoadServerConfigRequiresDataDir(t *testing.T) {
	cmd := newTestServerCmd()
	_, err := LoadServerConfig(cmd)
	require.Error(t, err)
}

func TestLoadServerConfigFromFlags(t *testing.T) {
	cmd := newTestServerCmd()
	dataDir := t.TempDir()
	require.NoError(t, cmd.Flags().Set("data-dir", dataDir))
	require.NoError(t, cmd.Flags().Set("listen", ":9999"))

	cfg, err := LoadServerConfig(cmd)
	require.NoError(t, err)
	require.Equal(t, dataDir, cfg.DataDir)
	require.Equal(t, ":9999", cfg.Listen)
	require.Equal(t, filepath.Join(dataDir, "shellsync.db"), cfg.DBPath())
}

func TestValidateServerConfigRejectsGitSyncWithoutRepoPath(t *testing.T) {
	cfg := &ServerConfig{DataDir: t.TempDir(), GitSync: GitSyncConfig{Enable: true}}
	err := validateServerConfig(cfg)
	require.Error(t, err)
}

func TestSaveAndLoadClientConfigRoundTrips(t *testing.T) {
	baseDir := t.TempDir()
	original := ClientConfig{
		ServerURL: "http://localhost:7770",
		MachineID: "m-1",
		AuthToken: "tok-1",
		Hostname:  "devbox",
		Groups:    []string{"team", "personal"},
	}

	require.NoError(t, SaveClientConfig(baseDir, original))

	loaded, err := LoadClientConfig(baseDir)
	require.NoError(t, err)
	require.Equal(t, original.ServerURL, loaded.ServerURL)
	require.Equal(t, original.MachineID, loaded.MachineID)
	require.Equal(t, original.AuthToken, loaded.AuthToken)
	require.Equal(t, original.Hostname, loaded.Hostname)
	require.Equal(t, original.Groups, loaded.Groups)
}

func TestLoadClientConfigFailsWhenMissing(t *testing.T) {
	_, err := LoadClientConfig(t.TempDir())
	require.Error(t, err)
}
