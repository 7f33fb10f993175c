// Package flatten reduces a field tree to an ordered mapping from structural
// path to a canonical, comparable string per leaf. Containers are elided;
// only leaves appear, each under its full root-to-leaf path.
//
// Canonical strings are deterministic and round-trip-safe: flattening the
// same tree twice always yields identical maps, and floating-point values
// use shortest round-trip formatting so representation drift never shows up
// as a spurious difference.
package flatten

import (
	"sort"
	"strconv"
	"strings"

	"github.com/keepsake-io/keepsake/internal/object"
)

// UnresolvedMarker is the canonical string for a reference with no identity,
// locator, or display name. It sorts and compares stably across runs.
const UnresolvedMarker = "<unresolved>"

// PathMap is an ordered mapping from structural path to canonical leaf value.
type PathMap struct {
	values map[string]string
}

// Get returns the canonical value at path.
func (m PathMap) Get(path string) (string, bool) {
	v, ok := m.values[path]
	return v, ok
}

// Paths returns all paths in ascending order.
func (m PathMap) Paths() []string {
	paths := make([]string, 0, len(m.values))
	for p := range m.values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of leaf entries.
func (m PathMap) Len() int { return len(m.values) }

// Flatten walks the field tree depth-first and collects one entry per
// recognized leaf. The document's type-identity bookkeeping field is always
// excluded, and leaves of unknown kind are skipped rather than failing.
func Flatten(root *object.Node) PathMap {
	m := PathMap{values: make(map[string]string)}
	if root != nil {
		walkNode("", root, m.values)
	}
	return m
}

func walkNode(path string, n *object.Node, out map[string]string) {
	switch n.Kind {
	case object.KindRecord:
		for _, f := range n.Fields {
			child := f.Name
			if path != "" {
				child = path + "." + f.Name
			}
			if child == object.TypeField {
				continue
			}
			walkNode(child, f.Node, out)
		}
	case object.KindSequence:
		for i, elem := range n.Elems {
			walkNode(path+"["+strconv.Itoa(i)+"]", elem, out)
		}
	case object.KindUnknown:
		// Unrecognized leaf kinds are omitted from comparison.
	default:
		out[path] = Canonical(n)
	}
}

// Canonical returns the comparable string encoding for a leaf node.
// Container nodes have no canonical value and yield the empty string.
func Canonical(n *object.Node) string {
	switch n.Kind {
	case object.KindBool:
		return strconv.FormatBool(n.Bool)
	case object.KindInt:
		return strconv.FormatInt(n.Int, 10)
	case object.KindFloat:
		return formatFloat(n.Float)
	case object.KindString:
		return n.Str
	case object.KindVector:
		parts := make([]string, len(n.Vector))
		for i, f := range n.Vector {
			parts[i] = formatFloat(f)
		}
		return strings.Join(parts, ",")
	case object.KindReference:
		return canonicalReference(n.Ref)
	default:
		return ""
	}
}

// canonicalReference encodes a reference leaf. Two references compare equal
// iff identity and sub-index both match. The fallback chain for references
// without a resolvable identity is fixed: locator, then display name, then
// the unresolved marker.
func canonicalReference(ref *object.Reference) string {
	if ref == nil {
		return UnresolvedMarker
	}
	if ref.Identity != "" {
		if ref.Index != 0 {
			return ref.Identity.String() + ":" + strconv.FormatInt(ref.Index, 10)
		}
		return ref.Identity.String()
	}
	if ref.Locator != "" {
		return ref.Locator
	}
	if ref.Name != "" {
		return ref.Name
	}
	return UnresolvedMarker
}

// formatFloat renders a float with the shortest representation that parses
// back to the same value.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
