package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/keepsake-io/keepsake/internal/batch"
	"github.com/keepsake-io/keepsake/internal/paths"
	"github.com/keepsake-io/keepsake/internal/store"
)

// Report rendering colors. fatih/color degrades to plain text when the
// writer is not a TTY or NO_COLOR is set.
var (
	doneColor    = color.New(color.FgGreen)
	skippedColor = color.New(color.FgYellow)
	failedColor  = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	pathColor    = color.New(color.FgCyan)
)

// snapshotStore builds the store every command reads and writes through,
// honoring the configured snapshot extension.
func snapshotStore() *store.Store {
	if cfg != nil && cfg.Extension != "" {
		return store.New(store.WithExtension(cfg.Extension))
	}
	return store.New()
}

// snapshotDir resolves the effective snapshot directory: the --dir flag
// when set, then the configured directory, then the XDG default.
func snapshotDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg != nil && cfg.SnapshotDir != "" {
		return expandHome(cfg.SnapshotDir)
	}
	return paths.DefaultSnapshotDir()
}

// projectRoot resolves the effective project root: the --project flag when
// set, then the configured root, then the current directory.
func projectRoot(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg != nil && cfg.ProjectRoot != "" {
		return expandHome(cfg.ProjectRoot)
	}
	return "."
}

// renameTablePath resolves the rename-table file: the --renames flag when
// set, otherwise the configured path (which may be empty).
func renameTablePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg != nil && cfg.RenameTable != "" {
		return expandHome(cfg.RenameTable)
	}
	return ""
}

// expandHome resolves a leading "~" in configured paths. Flags come from
// the shell, which expands tildes itself; config file values do not.
func expandHome(p string) string {
	expanded, err := paths.ExpandHome(p)
	if err != nil {
		return p
	}
	return expanded
}

// renderReport prints a batch report: one line per item plus a summary.
func renderReport(w io.Writer, report *batch.Report) {
	for _, warning := range report.Warnings {
		warnColor.Fprintf(w, "warning: %s\n", warning)
	}

	for _, item := range report.Items {
		marker, c := itemMarker(item.State)
		c.Fprintf(w, "%s %s", marker, item.Label)
		if item.Detail != "" {
			fmt.Fprintf(w, ": %s", item.Detail)
		}
		fmt.Fprintln(w)
	}

	done, skipped, failed := report.Counts()
	fmt.Fprintf(w, "\n%d done, %d skipped, %d failed\n", done, skipped, failed)
}

// itemMarker returns the status marker and color for a terminal state.
func itemMarker(state batch.State) (string, *color.Color) {
	switch state {
	case batch.StateDone:
		return "✓", doneColor
	case batch.StateSkipped:
		return "-", skippedColor
	case batch.StateFailed:
		return "✗", failedColor
	default:
		return "?", skippedColor
	}
}

// truncate shortens a string to maxLen characters, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
