package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/keepsake-io/keepsake/internal/asset"
	"github.com/keepsake-io/keepsake/internal/batch"
	"github.com/keepsake-io/keepsake/internal/errors"
	"github.com/keepsake-io/keepsake/internal/logging"
	"github.com/keepsake-io/keepsake/internal/object"
)

var (
	backupDir     string
	backupProject string
)

func init() {
	backupCmd.Flags().StringVarP(&backupDir, "dir", "d", "",
		"snapshot directory (default: configured or XDG data dir)")
	backupCmd.Flags().StringVar(&backupProject, "project", "",
		"project root to scan for assets (default: configured or current dir)")
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup [label...]",
	Short: "Snapshot live assets into the snapshot directory",
	Long: `Snapshot every asset document under the project root into the
snapshot directory, one file per identity.

A prior snapshot for the same identity is replaced wholesale, so the
directory always holds exactly one file per identity. Passing labels
restricts the backup to assets whose label matches one of them.`,
	Example: `  # Snapshot everything
  keepsake backup

  # Snapshot only two assets into an explicit directory
  keepsake backup Sword Shield --dir ./snapshots

  See Also:
    keepsake list    - Inspect the snapshot directory
    keepsake restore - Apply snapshots back onto live assets`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	return runBackupWithWriter(cmd.Context(), cmd.OutOrStdout(), args)
}

func runBackupWithWriter(ctx context.Context, w io.Writer, labels []string) error {
	logger := logging.FromContext(ctx)

	catalog, err := asset.Open(projectRoot(backupProject), asset.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "opening project")
	}

	handles := catalog.Handles()
	if len(labels) > 0 {
		handles = filterByLabel(handles, labels)
		if len(handles) == 0 {
			return errors.NewUserError(errors.Newf("no assets match %v", labels),
				"Run 'keepsake backup' without arguments to see all assets")
		}
	}
	if len(handles) == 0 {
		return errors.NewUserError(errors.ErrNoProject,
			"No asset documents found; check --project or project_root in the config")
	}

	runner := batch.NewRunner(snapshotStore(), catalog, catalog, batch.WithLogger(logger))
	report, err := runner.Backup(ctx, handles, snapshotDir(backupDir))
	if err != nil {
		if errors.Is(err, batch.ErrDirUnwritable) {
			return errors.NewSystemError(err, "Check permissions on the snapshot directory")
		}
		return err
	}

	renderReport(w, report)
	if _, _, failed := report.Counts(); failed > 0 {
		return errors.NewExitError(errors.Newf("%d item(s) failed", failed), errors.ExitSystem)
	}
	return nil
}

// filterByLabel keeps handles whose label matches any of the given names.
func filterByLabel(handles []object.Handle, labels []string) []object.Handle {
	want := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		want[l] = struct{}{}
	}
	var kept []object.Handle
	for _, h := range handles {
		if _, ok := want[h.Label()]; ok {
			kept = append(kept, h)
		}
	}
	return kept
}
