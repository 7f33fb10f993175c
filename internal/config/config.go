// Package config provides configuration management for keepsake using Viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/keepsake-io/keepsake/internal/paths"
	"github.com/keepsake-io/keepsake/internal/store"
)

// AppName is the application name used for config file naming.
const AppName = "keepsake"

// Config represents the top-level configuration structure.
type Config struct {
	// Version is the config schema version. Currently always 1.
	Version int `mapstructure:"version" yaml:"version"`

	// SnapshotDir is where snapshot files are written and read.
	// Defaults to the XDG data directory.
	SnapshotDir string `mapstructure:"snapshot_dir" yaml:"snapshot_dir"`

	// ProjectRoot is the directory scanned for live asset documents.
	ProjectRoot string `mapstructure:"project_root" yaml:"project_root"`

	// RenameTable is an optional path to a field-rename table applied on
	// restore and diff.
	RenameTable string `mapstructure:"rename_table" yaml:"rename_table"`

	// Extension is the snapshot file extension.
	Extension string `mapstructure:"extension" yaml:"extension"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	viper.Reset()

	// Config file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".") // Current directory
	viper.AddConfigPath(paths.ConfigDir())

	// Environment variable support
	viper.SetEnvPrefix("KEEPSAKE")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("version", 1)
	viper.SetDefault("snapshot_dir", paths.DefaultSnapshotDir())
	viper.SetDefault("project_root", ".")
	viper.SetDefault("extension", store.Ext)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration or default values if no file is found (when path is empty).
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// If user specified a path, this is an error
			if path != "" {
				return nil, fmt.Errorf("config file not found at %s: %w", path, err)
			}
			// Otherwise (implicit load), it's fine to use defaults
		} else {
			// Real read error (parsing, permissions, etc)
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("validating config: %w", errs[0])
	}

	return &cfg, nil
}
