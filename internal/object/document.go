package object

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/keepsake-io/keepsake/internal/identity"
)

// Bookkeeping field names carried by every document.
const (
	// IDField embeds the object's stable identity in its document, which is
	// what lets identity survive file renames and moves.
	IDField = "$id"
	// TypeField carries the object's declared kind. It is the designated
	// bookkeeping field excluded from flattening and comparison.
	TypeField = "$type"
	// RefField wraps a cross-object reference triple.
	RefField = "$ref"
)

// vectorShapes lists the component layouts recognized as numeric tuples,
// in their canonical component order.
var vectorShapes = [][]string{
	{"x", "y"},
	{"x", "y", "z"},
	{"x", "y", "z", "w"},
	{"r", "g", "b"},
	{"r", "g", "b", "a"},
}

// ParseDocument parses a serialized document into a field tree. The root
// must be a record. Field order within records is normalized to name order
// so two parses of equivalent documents yield identical trees.
func ParseDocument(doc []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "parsing document")
	}

	root := nodeFromValue(raw)
	if root.Kind != KindRecord {
		return nil, errors.New("document root is not a record")
	}
	return root, nil
}

// DocumentKind extracts the declared kind from a serialized document's
// type-identity bookkeeping field.
func DocumentKind(doc []byte) (string, error) {
	var hdr struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(doc, &hdr); err != nil {
		return "", errors.Wrap(err, "parsing document header")
	}
	if hdr.Type == "" {
		return "", errors.New("document has no kind")
	}
	return hdr.Type, nil
}

// nodeFromValue classifies one decoded JSON value into a field-tree node.
func nodeFromValue(v any) *Node {
	switch val := v.(type) {
	case bool:
		return &Node{Kind: KindBool, Bool: val}
	case string:
		return &Node{Kind: KindString, Str: val}
	case json.Number:
		return nodeFromNumber(val)
	case []any:
		n := &Node{Kind: KindSequence, Elems: make([]*Node, 0, len(val))}
		for _, elem := range val {
			n.Elems = append(n.Elems, nodeFromValue(elem))
		}
		return n
	case map[string]any:
		if ref, ok := referenceFromMap(val); ok {
			return &Node{Kind: KindReference, Ref: ref}
		}
		if vec, ok := vectorFromMap(val); ok {
			return &Node{Kind: KindVector, Vector: vec}
		}
		return recordFromMap(val)
	default:
		// null and anything the decoder cannot classify.
		return &Node{Kind: KindUnknown}
	}
}

// nodeFromNumber keeps the integer/float distinction the document text makes:
// a number without '.', 'e', or 'E' is integer-like.
func nodeFromNumber(num json.Number) *Node {
	s := num.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := num.Int64(); err == nil {
			return &Node{Kind: KindInt, Int: i}
		}
	}
	f, err := num.Float64()
	if err != nil {
		return &Node{Kind: KindUnknown}
	}
	return &Node{Kind: KindFloat, Float: f}
}

func recordFromMap(m map[string]any) *Node {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	n := &Node{Kind: KindRecord, Fields: make([]Field, 0, len(names))}
	for _, name := range names {
		n.Fields = append(n.Fields, Field{Name: name, Node: nodeFromValue(m[name])})
	}
	return n
}

// referenceFromMap recognizes the {"$ref": {...}} wrapping of a cross-object
// reference triple. Unknown members inside the triple are ignored.
func referenceFromMap(m map[string]any) (*Reference, bool) {
	if len(m) != 1 {
		return nil, false
	}
	inner, ok := m[RefField].(map[string]any)
	if !ok {
		return nil, false
	}

	ref := &Reference{}
	if s, ok := inner["identity"].(string); ok && s != "" {
		id, err := identity.Parse(s)
		if err == nil {
			ref.Identity = id
		}
	}
	if num, ok := inner["index"].(json.Number); ok {
		if i, err := num.Int64(); err == nil {
			ref.Index = i
		}
	}
	if s, ok := inner["path"].(string); ok {
		ref.Locator = s
	}
	if s, ok := inner["name"].(string); ok {
		ref.Name = s
	}
	return ref, true
}

// vectorFromMap recognizes records whose members are exactly one of the
// known tuple layouts with all-numeric values.
func vectorFromMap(m map[string]any) ([]float64, bool) {
	for _, shape := range vectorShapes {
		if len(m) != len(shape) {
			continue
		}
		vec := make([]float64, 0, len(shape))
		matched := true
		for _, comp := range shape {
			num, ok := m[comp].(json.Number)
			if !ok {
				matched = false
				break
			}
			f, err := num.Float64()
			if err != nil {
				matched = false
				break
			}
			vec = append(vec, f)
		}
		if matched {
			return vec, true
		}
	}
	return nil, false
}
