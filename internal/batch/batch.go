// Package batch sequences identity resolution, snapshot store I/O, the
// key-rename transform, and introspector overwrite calls over a batch of
// objects, reporting per-item success or failure.
//
// Every error is item-scoped: one item's skip or failure never stops the
// processing of subsequent items. Only two conditions fail a batch before
// any item runs: an unwritable destination directory on backup, and a
// snapshot directory with zero decodable snapshots on restore or diff.
// Batches are single-pass; nothing is retried.
package batch

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/keepsake-io/keepsake/internal/diff"
	"github.com/keepsake-io/keepsake/internal/flatten"
	"github.com/keepsake-io/keepsake/internal/identity"
	"github.com/keepsake-io/keepsake/internal/object"
	"github.com/keepsake-io/keepsake/internal/paths"
	"github.com/keepsake-io/keepsake/internal/rename"
	"github.com/keepsake-io/keepsake/internal/store"
)

// State is an item's position in its lifecycle. Done, Skipped, and Failed
// are terminal.
type State string

const (
	StatePending    State = "pending"
	StateResolved   State = "resolved"
	StateSerialized State = "serialized"
	StateApplied    State = "applied"
	StateDone       State = "done"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// Terminal reports whether the state ends an item's processing.
func (s State) Terminal() bool {
	return s == StateDone || s == StateSkipped || s == StateFailed
}

// Item is one object's outcome within a batch.
type Item struct {
	// Label is the human-readable name shown in reports: the object's
	// label when resolved, otherwise the snapshot alias or identity.
	Label string `json:"label"`
	// Identity is the stable identity, when known.
	Identity identity.ID `json:"identity,omitempty"`
	// State is the item's terminal state.
	State State `json:"state"`
	// Detail explains skips and failures, or summarizes success.
	Detail string `json:"detail,omitempty"`
	// Entries holds the structural differences for diff runs.
	Entries []diff.Entry `json:"entries,omitempty"`
}

// Report is the externally observable result of one batch: an ordered item
// list plus the non-fatal warnings the run produced.
type Report struct {
	Items    []Item   `json:"items"`
	Warnings []string `json:"warnings,omitempty"`
}

// done moves an applied item to its terminal success state.
func (it Item) done(detail string) Item {
	it.State = StateDone
	it.Detail = detail
	return it
}

// Counts tallies items by terminal state.
func (r *Report) Counts() (done, skipped, failed int) {
	for _, it := range r.Items {
		switch it.State {
		case StateDone:
			done++
		case StateSkipped:
			skipped++
		case StateFailed:
			failed++
		}
	}
	return done, skipped, failed
}

// Changed reports whether any diff item has at least one entry.
func (r *Report) Changed() bool {
	for _, it := range r.Items {
		if len(it.Entries) > 0 {
			return true
		}
	}
	return false
}

// ErrDirUnwritable fails a backup batch before any item runs.
var ErrDirUnwritable = errors.New("snapshot directory is not writable")

// Runner orchestrates batches over a resolver/introspector pair and a
// snapshot store. Items are processed one at a time, end to end, in
// deterministic order.
type Runner struct {
	store    *store.Store
	resolver object.Resolver
	intr     object.Introspector
	renames  rename.Table
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithRenameTable sets the key-rename table applied to documents before
// restore and diff. An empty table is a no-op.
func WithRenameTable(t rename.Table) Option {
	return func(r *Runner) { r.renames = t }
}

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner over the given collaborators.
func NewRunner(s *store.Store, resolver object.Resolver, intr object.Introspector, opts ...Option) *Runner {
	r := &Runner{
		store:    s,
		resolver: resolver,
		intr:     intr,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backup snapshots each object into dir: one file per identity, prior files
// for the same identity replaced wholesale.
func (r *Runner) Backup(ctx context.Context, handles []object.Handle, dir string) (*Report, error) {
	if err := ensureWritable(dir); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, h := range handles {
		if ctx.Err() != nil {
			break
		}
		report.Items = append(report.Items, r.backupOne(h, dir))
	}
	return report, nil
}

func (r *Runner) backupOne(h object.Handle, dir string) Item {
	item := Item{Label: h.Label(), State: StatePending}

	id, err := r.resolver.IdentityOf(h)
	if err != nil {
		item.State = StateSkipped
		item.Detail = "no stable identity: " + err.Error()
		r.logger.Warn("skipping object without identity", "label", item.Label, "error", err)
		return item
	}
	item.Identity = id
	item.State = StateResolved

	doc, err := r.intr.ToDocument(h)
	if err != nil {
		item.State = StateFailed
		item.Detail = "serializing: " + err.Error()
		r.logger.Error("serialize failed", "label", item.Label, "error", err)
		return item
	}
	item.State = StateSerialized

	name, err := r.store.Write(dir, id, h.Label(), doc)
	if err != nil {
		item.State = StateFailed
		item.Detail = "writing snapshot: " + err.Error()
		r.logger.Error("snapshot write failed", "label", item.Label, "error", err)
		return item
	}
	item.State = StateApplied

	r.logger.Info("backed up", "label", item.Label, "identity", id.Short(), "file", name)
	return item.done("wrote " + name)
}

// Restore applies every snapshot in dir onto its live object, translating
// field names through the rename table first when one is configured.
func (r *Runner) Restore(ctx context.Context, dir string) (*Report, error) {
	return r.RestoreOnly(ctx, dir, nil)
}

// RestoreOnly restores just the snapshots for the given identities. A nil
// or empty selection restores everything in dir.
func (r *Runner) RestoreOnly(ctx context.Context, dir string, ids []identity.ID) (*Report, error) {
	ix, report, err := r.openIndex(dir)
	if err != nil {
		return nil, err
	}

	selected := make(map[identity.ID]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}

	for _, id := range ix.IDs() {
		if ctx.Err() != nil {
			break
		}
		if len(selected) > 0 {
			if _, ok := selected[id]; !ok {
				continue
			}
		}
		entry, _ := ix.Get(id)
		report.Items = append(report.Items, r.restoreOne(entry))
	}
	return report, nil
}

func (r *Runner) restoreOne(entry store.Entry) Item {
	item, h, doc, ok := r.materialize(entry)
	if !ok {
		return item
	}

	if err := r.intr.OverwriteFromDocument(doc, h); err != nil {
		item.State = StateFailed
		item.Detail = "applying document: " + err.Error()
		r.logger.Error("restore failed", "label", item.Label, "error", err)
		return item
	}
	item.State = StateApplied

	r.logger.Info("restored", "label", item.Label, "identity", entry.ID.Short())
	return item.done("restored")
}

// Diff compares each live object against its snapshot without modifying
// anything: a scratch object of the live object's kind is materialized from
// the snapshot document, both sides are flattened, and the engine reports
// the classified differences.
func (r *Runner) Diff(ctx context.Context, dir string) (*Report, error) {
	ix, report, err := r.openIndex(dir)
	if err != nil {
		return nil, err
	}

	for _, id := range ix.IDs() {
		if ctx.Err() != nil {
			break
		}
		entry, _ := ix.Get(id)
		report.Items = append(report.Items, r.diffOne(entry))
	}
	return report, nil
}

func (r *Runner) diffOne(entry store.Entry) Item {
	item, h, doc, ok := r.materialize(entry)
	if !ok {
		return item
	}

	scratch, err := r.intr.CreateScratch(h.Kind())
	if err != nil {
		item.State = StateFailed
		item.Detail = "creating scratch object: " + err.Error()
		return item
	}
	defer r.intr.Dispose(scratch)

	if err := r.intr.OverwriteFromDocument(doc, scratch); err != nil {
		item.State = StateFailed
		item.Detail = "materializing snapshot: " + err.Error()
		return item
	}

	currentTree, err := r.intr.FieldTree(h)
	if err != nil {
		item.State = StateFailed
		item.Detail = "reading object fields: " + err.Error()
		return item
	}
	snapshotTree, err := r.intr.FieldTree(scratch)
	if err != nil {
		item.State = StateFailed
		item.Detail = "reading snapshot fields: " + err.Error()
		return item
	}

	item.Entries = diff.Compare(flatten.Flatten(currentTree), flatten.Flatten(snapshotTree))
	switch n := len(item.Entries); n {
	case 0:
		return item.done("no differences")
	case 1:
		return item.done("1 difference")
	default:
		return item.done(strconv.Itoa(n) + " differences")
	}
}

// materialize runs the shared Pending -> Serialized prefix of restore and
// diff items: resolve the live handle, load the snapshot document, check
// the kind, and pass it through the rename transform.
func (r *Runner) materialize(entry store.Entry) (Item, object.Handle, []byte, bool) {
	label := entry.Alias
	if label == "" {
		label = entry.ID.Short()
	}
	item := Item{Label: label, Identity: entry.ID, State: StatePending}

	h, found, err := r.resolver.HandleOf(entry.ID)
	if err != nil {
		item.State = StateFailed
		item.Detail = "resolving identity: " + err.Error()
		return item, nil, nil, false
	}
	if !found {
		item.State = StateSkipped
		item.Detail = "no live object for identity " + entry.ID.Short()
		r.logger.Warn("unresolved identity", "label", item.Label, "identity", entry.ID.Short())
		return item, nil, nil, false
	}
	item.Label = h.Label()
	item.State = StateResolved

	doc, err := r.store.Load(entry)
	if err != nil {
		item.State = StateFailed
		item.Detail = "loading snapshot: " + err.Error()
		r.logger.Error("snapshot load failed", "label", item.Label, "error", err)
		return item, nil, nil, false
	}

	kind, err := object.DocumentKind(doc)
	if err == nil && kind != h.Kind() {
		item.State = StateSkipped
		item.Detail = "kind mismatch: snapshot is " + kind + ", object is " + h.Kind()
		r.logger.Warn("kind mismatch", "label", item.Label, "snapshot", kind, "object", h.Kind())
		return item, nil, nil, false
	}

	if len(r.renames) > 0 {
		doc, err = rename.Apply(doc, r.renames)
		if err != nil {
			item.State = StateFailed
			item.Detail = "rename transform: " + err.Error()
			return item, nil, nil, false
		}
	}
	item.State = StateSerialized
	return item, h, doc, true
}

// openIndex reads the snapshot index for restore/diff runs and surfaces
// batch-level failures: zero decodable snapshots is fatal before any item
// runs; undecodable filenames and collisions are warnings.
func (r *Runner) openIndex(dir string) (*store.Index, *Report, error) {
	ix, err := r.store.ReadAll(dir)
	if err != nil {
		return nil, nil, err
	}
	if ix.Len() == 0 {
		return nil, nil, errors.Wrapf(store.ErrNoSnapshots, "in %s", dir)
	}

	report := &Report{}
	for _, w := range r.renames.Validate() {
		r.logger.Warn("rename table", "warning", w)
		report.Warnings = append(report.Warnings, w)
	}
	for _, w := range ix.Warnings {
		r.logger.Warn("snapshot index", "warning", w)
		report.Warnings = append(report.Warnings, w)
	}
	return ix, report, nil
}

// ensureWritable verifies the destination directory can be created and
// written before any item is processed.
func ensureWritable(dir string) error {
	if err := paths.EnsureDir(dir, 0o755); err != nil {
		return errors.Wrapf(ErrDirUnwritable, "%s: %v", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".keepsake-probe-*")
	if err != nil {
		return errors.Wrapf(ErrDirUnwritable, "%s: %v", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}
