package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keepsake-io/keepsake/internal/errors"
)

var (
	listDir  string
	listJSON bool
)

func init() {
	listCmd.Flags().StringVarP(&listDir, "dir", "d", "",
		"snapshot directory (default: configured or XDG data dir)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Long: `List the snapshots in the snapshot directory: the alias each file
carries, the identity it is keyed by, and the file itself.

Files whose names yield no identity, and identity collisions, are
reported as warnings.`,
	Example: `  # Human-readable table
  keepsake list

  # Output as JSON
  keepsake list --json

  See Also:
    keepsake backup - Create snapshots
    keepsake diff   - Compare snapshots against live assets`,
	RunE: runList,
}

// listEntry represents a single snapshot in JSON output.
type listEntry struct {
	Alias    string `json:"alias,omitempty"`
	Identity string `json:"identity"`
	File     string `json:"file"`
}

func runList(cmd *cobra.Command, _ []string) error {
	return runListWithWriter(cmd.OutOrStdout())
}

func runListWithWriter(w io.Writer) error {
	ix, err := snapshotStore().ReadAll(snapshotDir(listDir))
	if err != nil {
		return errors.Wrap(err, "reading snapshot directory")
	}

	entries := make([]listEntry, 0, ix.Len())
	for _, id := range ix.IDs() {
		e, _ := ix.Get(id)
		entries = append(entries, listEntry{
			Alias:    e.Alias,
			Identity: string(e.ID),
			File:     e.Path,
		})
	}

	if listJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(entries), "encoding list")
	}

	for _, warning := range ix.Warnings {
		warnColor.Fprintf(w, "warning: %s\n", warning)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No snapshots found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ALIAS\tIDENTITY\tFILE")
	for _, e := range entries {
		alias := e.Alias
		if alias == "" {
			alias = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", truncate(alias, 40), e.Identity, e.File)
	}
	return errors.Wrap(tw.Flush(), "flushing table")
}
