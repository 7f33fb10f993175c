// Package paths provides cross-platform path resolution for the keepsake
// CLI's own directories.
//
// # XDG Base Directory Compliance
//
// The package wraps github.com/adrg/xdg for cross-platform XDG Base Directory
// Specification compliance. On Linux and macOS, paths follow XDG conventions
// (~/.config, ~/.local/share, ~/.cache).
//
// # Standard Directory Helpers
//
// The tool's directories follow consistent patterns under the XDG bases:
//
//	paths.ConfigDir()          // <ConfigHome>/keepsake/
//	paths.DefaultSnapshotDir() // <DataHome>/keepsake/snapshots/
package paths
