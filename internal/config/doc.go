// Package config provides configuration management for the keepsake CLI.
//
// # Configuration File
//
// The default configuration file location is ~/.config/keepsake/config.yaml.
// The configuration file uses YAML format with the following structure:
//
//	version: 1
//	snapshot_dir: /data/snapshots   # optional, defaults under XDG data home
//	project_root: ./assets          # optional, defaults to "."
//	rename_table: renames.toml      # optional
//	extension: .json                # optional
//
// Every key can also be supplied through a KEEPSAKE_* environment variable,
// e.g. KEEPSAKE_SNAPSHOT_DIR.
//
// # Loading Configuration
//
// Call [Init] once at startup, then [Load]:
//
//	config.Init()
//	cfg, err := config.Load(flagConfigPath) // "" searches default locations
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//
// A missing file is only an error when an explicit path was given; the
// implicit search falls back to defaults.
//
// # Validation
//
// All loaded configurations are validated automatically. You can also
// validate a configuration manually:
//
//	errs := config.Validate(cfg)
//	if len(errs) > 0 {
//	    for _, e := range errs {
//	        fmt.Println(e)
//	    }
//	}
package config
