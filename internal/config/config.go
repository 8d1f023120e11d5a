// Package config loads the sync service's server-side configuration
// (flags, config file, environment) and the daemon's persisted client
// configuration (spec §6 "Persistent state layout"). Grounded on the
// teacher's internal/config (viper defaults + cobra flag binding +
// validate pattern), generalized from object-storage settings to the
// service/daemon split this system has instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServerConfig holds the sync service's runtime configuration.
type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`

	Metrics MetricsConfig `mapstructure:"metrics"`
	GitSync GitSyncConfig `mapstructure:"git_sync"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// GitSyncConfig controls the optional periodic alias-to-git exporter
// (spec §1 external-collaborator GitSyncTrigger).
type GitSyncConfig struct {
	Enable         bool   `mapstructure:"enable"`
	RepoPath       string `mapstructure:"repo_path"`
	IntervalMinute int    `mapstructure:"interval_minutes"`
}

// DBPath is the sync service's state store path, derived from DataDir.
func (c ServerConfig) DBPath() string {
	return filepath.Join(c.DataDir, "shellsync.db")
}

// LoadServerConfig loads ServerConfig from flags, an optional config
// file, and SHELLSYNC_-prefixed environment variables.
func LoadServerConfig(cmd *cobra.Command) (*ServerConfig, error) {
	v := viper.New()
	setServerDefaults(v)

	if err := bindServerFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHELLSYNC")
	v.AutomaticEnv()

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateServerConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":7770")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("git_sync.enable", false)
	v.SetDefault("git_sync.interval_minutes", 15)
}

func bindServerFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"listen":    "listen",
		"data-dir":  "data_dir",
		"log-level": "log_level",
	}
	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is required: specify via --data-dir, a config file, or SHELLSYNC_DATA_DIR")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if cfg.GitSync.Enable && cfg.GitSync.RepoPath == "" {
		return fmt.Errorf("git_sync.enable is set but git_sync.repo_path is empty")
	}
	return nil
}

// ClientConfig is the daemon's persisted identity and connection
// settings, written once on registration and read on every later command
// (spec §6 "config.toml").
type ClientConfig struct {
	ServerURL string   `mapstructure:"server_url"`
	MachineID string   `mapstructure:"machine_id"`
	AuthToken string   `mapstructure:"auth_token"`
	Hostname  string   `mapstructure:"hostname"`
	Groups    []string `mapstructure:"groups"`
}

// ClientConfigPath returns the fixed config.toml path under a daemon's
// base directory.
func ClientConfigPath(baseDir string) string {
	return filepath.Join(baseDir, "config.toml")
}

// LoadClientConfig reads a daemon's persisted configuration.
func LoadClientConfig(baseDir string) (*ClientConfig, error) {
	v := viper.New()
	v.SetConfigFile(ClientConfigPath(baseDir))
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read client config: %w", err)
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal client config: %w", err)
	}
	return &cfg, nil
}

// SaveClientConfig writes cfg to baseDir/config.toml, creating baseDir if
// needed. Called once by the registration flow and never mutated by
// anything else while the daemon runs.
func SaveClientConfig(baseDir string, cfg ClientConfig) error {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("server_url", cfg.ServerURL)
	v.Set("machine_id", cfg.MachineID)
	v.Set("auth_token", cfg.AuthToken)
	v.Set("hostname", cfg.Hostname)
	v.Set("groups", cfg.Groups)

	if err := v.WriteConfigAs(ClientConfigPath(baseDir)); err != nil {
		return fmt.Errorf("write client config: %w", err)
	}
	return os.Chmod(ClientConfigPath(baseDir), 0o600)
}
