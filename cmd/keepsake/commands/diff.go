package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/keepsake-io/keepsake/internal/asset"
	"github.com/keepsake-io/keepsake/internal/batch"
	"github.com/keepsake-io/keepsake/internal/diff"
	"github.com/keepsake-io/keepsake/internal/errors"
	"github.com/keepsake-io/keepsake/internal/logging"
	"github.com/keepsake-io/keepsake/internal/rename"
	"github.com/keepsake-io/keepsake/internal/store"
)

var (
	diffDir      string
	diffProject  string
	diffRenames  string
	diffJSON     bool
	diffUnified  bool
	diffExitCode bool
)

func init() {
	diffCmd.Flags().StringVarP(&diffDir, "dir", "d", "",
		"snapshot directory (default: configured or XDG data dir)")
	diffCmd.Flags().StringVar(&diffProject, "project", "",
		"project root to scan for assets (default: configured or current dir)")
	diffCmd.Flags().StringVar(&diffRenames, "renames", "",
		"path to a field-rename table (TOML, YAML, or JSON)")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output in JSON format")
	diffCmd.Flags().BoolVarP(&diffUnified, "unified", "u", false,
		"show unified text diffs of the documents")
	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false,
		"exit with code 3 when differences are found")
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare live assets against their snapshots",
	Long: `Compare every live asset against its stored snapshot and report the
structural differences, field by field.

Each difference is classified: added means the field exists only in the
snapshot (a restore would introduce it), removed means it exists only in
the live asset (a restore would drop it), and modified means both sides
have it with different values. Nothing is written.`,
	Example: `  # Field-level differences
  keepsake diff

  # Classic unified patches of the document text
  keepsake diff -u

  # Machine-readable report, failing the build on drift
  keepsake diff --json --exit-code

  See Also:
    keepsake restore - Apply the snapshots`,
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, _ []string) error {
	return runDiffWithWriter(cmd.Context(), cmd.OutOrStdout())
}

func runDiffWithWriter(ctx context.Context, w io.Writer) error {
	logger := logging.FromContext(ctx)
	dir := snapshotDir(diffDir)

	catalog, err := asset.Open(projectRoot(diffProject), asset.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "opening project")
	}

	var table rename.Table
	if path := renameTablePath(diffRenames); path != "" {
		table, err = rename.Load(path)
		if err != nil {
			return errors.NewUserError(
				errors.Wrapf(errors.ErrInvalidRenameTable, "%s: %v", path, err),
				"Rename tables map old field names to new ones, e.g. damage = \"baseDamage\"")
		}
	}

	if diffUnified {
		return runUnifiedDiff(w, catalog, dir, table)
	}

	runner := batch.NewRunner(snapshotStore(), catalog, catalog,
		batch.WithLogger(logger), batch.WithRenameTable(table))
	report, err := runner.Diff(ctx, dir)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshots) {
			return errors.NewUserError(err, "Run 'keepsake backup' first")
		}
		return err
	}

	if diffJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return errors.Wrap(err, "encoding report")
		}
	} else {
		renderDiffReport(w, report)
	}

	if diffExitCode && report.Changed() {
		return errors.NewExitError(nil, errors.ExitDifferences)
	}
	return nil
}

// renderDiffReport prints per-item diff entries beneath the item line.
func renderDiffReport(w io.Writer, report *batch.Report) {
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

		for _, e := range item.Entries {
			pathColor.Fprintf(w, "    %s", e.Path)
			switch e.Op {
			case diff.OpAdded:
				fmt.Fprintf(w, " (added): %s\n", e.Snapshot)
			case diff.OpRemoved:
				fmt.Fprintf(w, " (removed): %s\n", e.Current)
			default:
				fmt.Fprintf(w, ": %s -> %s\n", e.Snapshot, e.Current)
			}
		}
	}

	done, skipped, failed := report.Counts()
	fmt.Fprintf(w, "\n%d done, %d skipped, %d failed\n", done, skipped, failed)
}

// runUnifiedDiff renders classic unified patches of the raw document texts,
// snapshot side versus live side.
func runUnifiedDiff(w io.Writer, catalog *asset.Catalog, dir string, table rename.Table) error {
	s := snapshotStore()
	ix, err := s.ReadAll(dir)
	if err != nil {
		return errors.Wrap(err, "reading snapshot directory")
	}
	if ix.Len() == 0 {
		return errors.NewUserError(
			errors.Wrapf(store.ErrNoSnapshots, "in %s", dir), "Run 'keepsake backup' first")
	}

	changed := false
	for _, id := range ix.IDs() {
		entry, _ := ix.Get(id)

		h, found, err := catalog.HandleOf(id)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", id.Short())
		}
		if !found {
			skippedColor.Fprintf(w, "- %s: no live object\n", entry.Alias)
			continue
		}

		current, err := catalog.ToDocument(h)
		if err != nil {
			return errors.Wrapf(err, "serializing %s", h.Label())
		}
		snapshot, err := s.Load(entry)
		if err != nil {
			return errors.Wrapf(err, "loading snapshot for %s", h.Label())
		}
		if len(table) > 0 {
			snapshot, err = rename.Apply(snapshot, table)
			if err != nil {
				return errors.Wrapf(err, "renaming fields for %s", h.Label())
			}
		}

		patch, err := diff.Unified(h.Label(), current, snapshot, diff.DefaultContext)
		if err != nil {
			return errors.Wrapf(err, "diffing %s", h.Label())
		}
		if patch != "" {
			changed = true
			fmt.Fprint(w, patch)
		}
	}

	if !changed {
		fmt.Fprintln(w, "No differences.")
	}
	if diffExitCode && changed {
		return errors.NewExitError(nil, errors.ExitDifferences)
	}
	return nil
}
