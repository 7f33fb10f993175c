// Package rename rewrites field-name tokens in a serialized document
// according to a caller-supplied rename table. The rewrite is structural:
// it walks the document's token stream and replaces tokens in key position
// only, so a string value that happens to contain an old field name is
// never touched.
//
// Renames apply document-wide, at every nesting depth. Rewriting is a
// single pass over the document's original keys: a key is renamed at most
// once and rule outputs are never fed back into the table, so application
// order cannot matter even for tables that would otherwise chain.
package rename

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Table maps old field tokens to new field tokens. Keys are unique by
// construction; at most one rewrite target exists per source token.
type Table map[string]string

// Validate reports configuration warnings: rules whose target token
// collides with another rule's source token. Such tables are still applied
// (single-pass semantics keep the result well defined), but the collision
// usually signals a mistake in the table.
func (t Table) Validate() []string {
	var warnings []string
	froms := make([]string, 0, len(t))
	for from := range t {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	for _, from := range froms {
		to := t[from]
		if to == "" {
			warnings = append(warnings, "rule "+strconv.Quote(from)+" has an empty target")
			continue
		}
		if to == from {
			continue
		}
		if _, ok := t[to]; ok {
			warnings = append(warnings,
				"rule "+strconv.Quote(from)+" -> "+strconv.Quote(to)+
					": target collides with the source of another rule; rules are applied in a single pass and never chained")
		}
	}
	return warnings
}

// Apply returns a copy of doc with every field name that appears in the
// table replaced by its target token. An empty table returns the input
// unchanged. The output is re-emitted with canonical two-space indentation;
// Apply is a pure function over the document text.
func Apply(doc []byte, table Table) ([]byte, error) {
	if len(table) == 0 {
		return doc, nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var buf bytes.Buffer
	w := &emitter{buf: &buf}
	if err := rewriteValue(dec, w, table); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing content after document")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// rewriteValue consumes one complete JSON value from dec and emits it,
// renaming keys along the way.
func rewriteValue(dec *json.Decoder, w *emitter, table Table) error {
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "reading document token")
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return rewriteObject(dec, w, table)
		case '[':
			return rewriteArray(dec, w, table)
		default:
			return errors.Newf("unexpected delimiter %q", t.String())
		}
	case string:
		w.rawString(t)
	case json.Number:
		// Numbers keep their original lexical form.
		w.raw(t.String())
	case bool:
		w.raw(strconv.FormatBool(t))
	case nil:
		w.raw("null")
	default:
		return errors.Newf("unexpected token %v", tok)
	}
	return nil
}

func rewriteObject(dec *json.Decoder, w *emitter, table Table) error {
	w.open('{')
	first := true
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "reading object key")
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Newf("object key is not a string: %v", tok)
		}
		if to, renamed := table[key]; renamed {
			key = to
		}
		w.key(key, first)
		first = false

		if err := rewriteValue(dec, w, table); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return errors.Wrap(err, "reading object end")
	}
	w.close('}', first)
	return nil
}

func rewriteArray(dec *json.Decoder, w *emitter, table Table) error {
	w.open('[')
	first := true
	for dec.More() {
		w.elem(first)
		first = false
		if err := rewriteValue(dec, w, table); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return errors.Wrap(err, "reading array end")
	}
	w.close(']', first)
	return nil
}

// emitter pretty-prints the rewritten token stream with two-space
// indentation, matching the store's document formatting.
type emitter struct {
	buf    *bytes.Buffer
	indent int
}

func (e *emitter) open(delim byte) {
	e.buf.WriteByte(delim)
	e.indent++
}

func (e *emitter) close(delim byte, empty bool) {
	e.indent--
	if !empty {
		e.newlineIndent()
	}
	e.buf.WriteByte(delim)
}

func (e *emitter) key(name string, first bool) {
	if !first {
		e.buf.WriteByte(',')
	}
	e.newlineIndent()
	e.rawString(name)
	e.buf.WriteString(": ")
}

func (e *emitter) elem(first bool) {
	if !first {
		e.buf.WriteByte(',')
	}
	e.newlineIndent()
}

func (e *emitter) raw(s string) {
	e.buf.WriteString(s)
}

func (e *emitter) rawString(s string) {
	// json.Marshal never fails for a string.
	encoded, _ := json.Marshal(s)
	e.buf.Write(encoded)
}

func (e *emitter) newlineIndent() {
	e.buf.WriteByte('\n')
	for i := 0; i < e.indent; i++ {
		e.buf.WriteString("  ")
	}
}
