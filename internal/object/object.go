// Package object defines the field-tree model for serializable object state
// and the collaborator interfaces the orchestrator depends on: the identity
// resolver and the object introspector.
//
// A field tree is a sum type over leaves and containers. Leaves carry a
// declared kind and a value; containers (records and sequences) carry only
// children. The flattener walks this tree generically instead of reflecting
// over host types.
package object

import "github.com/keepsake-io/keepsake/internal/identity"

// Kind classifies a node in the field tree.
type Kind int

const (
	// KindUnknown marks a leaf the introspector could not classify.
	// Unknown leaves are skipped during flattening, not errors.
	KindUnknown Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	// KindVector is a structured numeric tuple: 2 to 4 float components,
	// covering positions, scales, and color channels.
	KindVector
	// KindReference is a leaf pointing at another identified object.
	KindReference
	// KindRecord is a composite container with named fields.
	KindRecord
	// KindSequence is an ordered container with indexed elements.
	KindSequence
)

// String returns a short name for the kind, used in logs and test output.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindReference:
		return "reference"
	case KindRecord:
		return "record"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// IsContainer reports whether nodes of this kind carry children rather than
// a value of their own.
func (k Kind) IsContainer() bool {
	return k == KindRecord || k == KindSequence
}

// Node is one node in a field tree. Exactly the members matching Kind are
// populated; everything else is zero.
type Node struct {
	Kind Kind

	// Leaf payloads.
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Vector []float64
	Ref    *Reference

	// Container payloads. Fields is ordered by field name; Elems preserves
	// sequence order.
	Fields []Field
	Elems  []*Node
}

// Field is a named child of a record node.
type Field struct {
	Name string
	Node *Node
}

// Reference is a leaf pointing at another identified object, optionally
// disambiguated by a sub-index when several sub-objects share one identity.
// Locator and Name are fallbacks for references whose identity could not be
// resolved.
type Reference struct {
	Identity identity.ID
	Index    int64
	Locator  string
	Name     string
}

// Handle names one live object the host resolved for a batch.
type Handle interface {
	// Label is the human-readable name used in batch reports.
	Label() string
	// Kind is the object's declared type name.
	Kind() string
}

// Resolver maps objects to stable identities and back. Implementations must
// be stable across rename and move of the underlying storage location.
type Resolver interface {
	IdentityOf(h Handle) (identity.ID, error)
	// HandleOf returns the live handle for an identity, or ok=false when no
	// live object resolves to it.
	HandleOf(id identity.ID) (Handle, bool, error)
}

// Introspector enumerates an object's serializable fields and converts
// between objects and their textual document representation.
type Introspector interface {
	// ToDocument serializes the object's persisted fields as a
	// pretty-printed, human-diffable document.
	ToDocument(h Handle) ([]byte, error)
	// OverwriteFromDocument applies a document onto a live object.
	// The apply is all-or-nothing: on error the object is unchanged.
	OverwriteFromDocument(doc []byte, h Handle) error
	// FieldTree parses the object's state into a field tree for flattening.
	FieldTree(h Handle) (*Node, error)
	// CreateScratch materializes a throwaway object of the given kind,
	// used to flatten a snapshot without touching live state.
	CreateScratch(kind string) (Handle, error)
	// Dispose releases a scratch object. Safe to call in a defer.
	Dispose(h Handle)
}
