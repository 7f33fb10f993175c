package asset

import (
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/keepsake-io/keepsake/internal/identity"
	"github.com/keepsake-io/keepsake/internal/object"
	"github.com/keepsake-io/keepsake/pkg/fileutil"
)

// ErrUnknownHandle indicates a handle the catalog did not produce.
var ErrUnknownHandle = errors.New("unknown handle")

// IdentityOf returns the stable identity embedded in the asset's document.
func (c *Catalog) IdentityOf(h object.Handle) (identity.ID, error) {
	fh, ok := h.(*FileHandle)
	if !ok {
		return "", errors.Wrapf(ErrUnknownHandle, "%s has no identity", h.Label())
	}
	return fh.id, nil
}

// HandleOf returns the live handle for an identity, or ok=false when no
// cataloged asset carries it.
func (c *Catalog) HandleOf(id identity.ID) (object.Handle, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.byID[id]
	if !ok {
		return nil, false, nil
	}
	return h, true, nil
}

// ToDocument returns the asset's persisted document text as stored on disk.
// Asset files are already pretty-printed, so the file content is the
// canonical human-diffable representation; serializing the same unmodified
// object twice yields byte-identical documents.
func (c *Catalog) ToDocument(h object.Handle) ([]byte, error) {
	switch t := h.(type) {
	case *FileHandle:
		return fileutil.ReadFileWithLimit(t.path)
	case *scratchHandle:
		return t.doc, nil
	default:
		return nil, ErrUnknownHandle
	}
}

// OverwriteFromDocument applies a document onto a live object. The document
// is validated before anything is touched and the file write is atomic, so
// the apply is all-or-nothing. The live object's identity is preserved: a
// document carrying a different $id is rejected rather than silently
// re-identifying the object. On success the object is marked modified.
func (c *Catalog) OverwriteFromDocument(doc []byte, h object.Handle) error {
	if _, err := object.ParseDocument(doc); err != nil {
		return errors.Wrap(err, "validating document")
	}

	switch t := h.(type) {
	case *FileHandle:
		var hdr header
		if err := json.Unmarshal(doc, &hdr); err != nil {
			return errors.Wrap(err, "parsing document header")
		}
		if hdr.ID != "" && hdr.ID != t.id.String() {
			return errors.Newf("document identity %s does not match object %s", hdr.ID, t.id.Short())
		}
		if err := fileutil.AtomicWriteFile(t.path, doc, 0o644); err != nil {
			return errors.Wrapf(err, "overwriting %s", t.label)
		}
		c.markModified(t)
		return nil
	case *scratchHandle:
		t.doc = doc
		return nil
	default:
		return ErrUnknownHandle
	}
}

// FieldTree parses the object's document into a field tree for flattening.
func (c *Catalog) FieldTree(h object.Handle) (*object.Node, error) {
	doc, err := c.ToDocument(h)
	if err != nil {
		return nil, err
	}
	return object.ParseDocument(doc)
}

// CreateScratch materializes an in-memory throwaway object of the given
// kind. Scratch objects are never persisted and must be released with
// Dispose.
func (c *Catalog) CreateScratch(kind string) (object.Handle, error) {
	hdr, err := json.Marshal(map[string]string{object.TypeField: kind})
	if err != nil {
		return nil, errors.Wrap(err, "building scratch document")
	}

	h := &scratchHandle{id: uuid.NewString(), kind: kind, doc: hdr}

	c.mu.Lock()
	c.scratch[h] = struct{}{}
	c.mu.Unlock()
	return h, nil
}

// Dispose releases a scratch object. Disposing a file handle or an already
// disposed scratch is a no-op.
func (c *Catalog) Dispose(h object.Handle) {
	sh, ok := h.(*scratchHandle)
	if !ok {
		return
	}
	c.mu.Lock()
	delete(c.scratch, sh)
	c.mu.Unlock()
	sh.doc = nil
}

// markModified records that an asset changed so the host can surface what a
// batch touched.
func (c *Catalog) markModified(h *FileHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modified == nil {
		c.modified = make(map[string]struct{})
	}
	c.modified[h.path] = struct{}{}
}

// ModifiedPaths returns the asset files changed through this catalog,
// sorted for deterministic output.
func (c *Catalog) ModifiedPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths := make([]string, 0, len(c.modified))
	for p := range c.modified {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
