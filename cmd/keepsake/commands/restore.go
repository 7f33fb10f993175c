package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/keepsake-io/keepsake/internal/asset"
	"github.com/keepsake-io/keepsake/internal/batch"
	"github.com/keepsake-io/keepsake/internal/errors"
	"github.com/keepsake-io/keepsake/internal/identity"
	"github.com/keepsake-io/keepsake/internal/logging"
	"github.com/keepsake-io/keepsake/internal/rename"
	"github.com/keepsake-io/keepsake/internal/store"
)

var (
	restoreDir         string
	restoreProject     string
	restoreRenames     string
	restoreInteractive bool
)

func init() {
	restoreCmd.Flags().StringVarP(&restoreDir, "dir", "d", "",
		"snapshot directory (default: configured or XDG data dir)")
	restoreCmd.Flags().StringVar(&restoreProject, "project", "",
		"project root to scan for assets (default: configured or current dir)")
	restoreCmd.Flags().StringVar(&restoreRenames, "renames", "",
		"path to a field-rename table (TOML, YAML, or JSON)")
	restoreCmd.Flags().BoolVarP(&restoreInteractive, "interactive", "i", false,
		"pick the snapshots to restore with a fuzzy finder")
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Apply stored snapshots onto live assets",
	Long: `Apply every snapshot in the snapshot directory onto its live asset,
matched by the stable identity embedded in each document.

Snapshots whose identity no longer resolves to a live asset are skipped,
as are snapshots whose declared kind differs from the live asset's kind.
When a rename table is given, old field names in the snapshot are
translated to their new names before the document is applied, so values
survive schema renames.`,
	Example: `  # Restore everything
  keepsake restore

  # Restore with field renames applied
  keepsake restore --renames renames.toml

  # Choose interactively which snapshots to apply
  keepsake restore --interactive

  See Also:
    keepsake diff - Preview what a restore would change`,
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, _ []string) error {
	return runRestoreWithWriter(cmd.Context(), cmd.OutOrStdout())
}

func runRestoreWithWriter(ctx context.Context, w io.Writer) error {
	logger := logging.FromContext(ctx)
	dir := snapshotDir(restoreDir)

	catalog, err := asset.Open(projectRoot(restoreProject), asset.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "opening project")
	}

	opts := []batch.Option{batch.WithLogger(logger)}
	if path := renameTablePath(restoreRenames); path != "" {
		table, err := rename.Load(path)
		if err != nil {
			return errors.NewUserError(
				errors.Wrapf(errors.ErrInvalidRenameTable, "%s: %v", path, err),
				"Rename tables map old field names to new ones, e.g. damage = \"baseDamage\"")
		}
		opts = append(opts, batch.WithRenameTable(table))
	}
	runner := batch.NewRunner(snapshotStore(), catalog, catalog, opts...)

	var selected []identity.ID
	if restoreInteractive {
		selected, err = pickSnapshots(dir)
		if err != nil {
			return err
		}
		if selected == nil {
			fmt.Fprintln(w, "Nothing selected.")
			return nil
		}
	}

	report, err := runner.RestoreOnly(ctx, dir, selected)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshots) {
			return errors.NewUserError(err, "Run 'keepsake backup' first")
		}
		return err
	}

	renderReport(w, report)
	if _, _, failed := report.Counts(); failed > 0 {
		return errors.NewExitError(errors.Newf("%d item(s) failed", failed), errors.ExitSystem)
	}
	return nil
}

// pickSnapshots lets the user choose snapshots with a fuzzy finder.
// Returns nil when the selection was aborted.
func pickSnapshots(dir string) ([]identity.ID, error) {
	ix, err := snapshotStore().ReadAll(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot directory")
	}
	if ix.Len() == 0 {
		return nil, errors.NewUserError(
			errors.Wrapf(store.ErrNoSnapshots, "in %s", dir), "Run 'keepsake backup' first")
	}

	var entries []store.Entry
	for _, id := range ix.IDs() {
		entry, _ := ix.Get(id)
		entries = append(entries, entry)
	}

	picked, err := fuzzyfinder.FindMulti(
		entries,
		func(i int) string {
			if entries[i].Alias == "" {
				return string(entries[i].ID)
			}
			return entries[i].Alias
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			e := entries[i]
			return fmt.Sprintf("Alias: %s\nIdentity: %s\nFile: %s",
				e.Alias, e.ID, e.Path)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "interactive selection failed")
	}

	ids := make([]identity.ID, 0, len(picked))
	for _, i := range picked {
		ids = append(ids, entries[i].ID)
	}
	return ids, nil
}
