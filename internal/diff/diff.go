// Package diff computes the structural difference between two flattened
// property maps and classifies each divergent path as added, removed, or
// modified.
//
// This is intentionally a flat map difference, not a tree diff: sequence
// element paths carry their index, so inserting into the middle of a
// sequence is observed as a run of modified entries at shifted indices plus
// one added entry at the tail. That is a documented limitation.
package diff

import (
	"sort"
)

// Op classifies one diff entry.
type Op string

const (
	// OpAdded means the path is absent in the current object but present in
	// the snapshot: restoring would introduce it.
	OpAdded Op = "added"
	// OpRemoved means the path is present in the current object but absent
	// in the snapshot: restoring would drop it to its default.
	OpRemoved Op = "removed"
	// OpModified means the path is present in both with differing values.
	OpModified Op = "modified"
)

// Entry is one path-level difference between the current object and its
// snapshot. Current and Snapshot hold canonical values; the one matching an
// absent side is empty.
type Entry struct {
	Path     string `json:"path"`
	Op       Op     `json:"op"`
	Current  string `json:"current,omitempty"`
	Snapshot string `json:"snapshot,omitempty"`
}

// PathMap is the minimal view of a flattened property map this package
// needs. flatten.PathMap satisfies it.
type PathMap interface {
	Get(path string) (string, bool)
	Paths() []string
}

// Compare diffs two flattenings over the union of their path sets and
// returns entries sorted by path ascending. Paths present and identical in
// both sides produce no entry.
func Compare(current, snapshot PathMap) []Entry {
	seen := make(map[string]struct{})
	var entries []Entry

	for _, path := range current.Paths() {
		seen[path] = struct{}{}
		cur, _ := current.Get(path)
		snap, ok := snapshot.Get(path)
		switch {
		case !ok:
			entries = append(entries, Entry{Path: path, Op: OpRemoved, Current: cur})
		case cur != snap:
			entries = append(entries, Entry{Path: path, Op: OpModified, Current: cur, Snapshot: snap})
		}
	}

	for _, path := range snapshot.Paths() {
		if _, ok := seen[path]; ok {
			continue
		}
		snap, _ := snapshot.Get(path)
		entries = append(entries, Entry{Path: path, Op: OpAdded, Snapshot: snap})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}
