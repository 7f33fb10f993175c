// Package asset implements the identity resolver and object introspector
// over a project directory of JSON asset files.
//
// An asset file is a pretty-printed JSON document whose bookkeeping header
// carries the object's stable identity ($id) and declared kind ($type).
// Because the identity lives inside the file rather than in its name or
// location, it survives renames and moves of the file itself.
package asset

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/keepsake-io/keepsake/internal/identity"
	"github.com/keepsake-io/keepsake/internal/object"
	"github.com/keepsake-io/keepsake/pkg/fileutil"
)

// Sentinel errors for catalog operations.
var (
	// ErrNotAnAsset indicates a JSON file without the bookkeeping header.
	ErrNotAnAsset = errors.New("not an asset document")

	// ErrDuplicateIdentity indicates two live asset files carry the same
	// identity, which violates the one-live-object-per-identity invariant.
	ErrDuplicateIdentity = errors.New("duplicate identity")
)

// FileHandle names one asset file in the catalog.
type FileHandle struct {
	path  string
	kind  string
	label string
	id    identity.ID
}

// Label returns the asset's display name: its filename stem.
func (h *FileHandle) Label() string { return h.label }

// Kind returns the asset's declared type name.
func (h *FileHandle) Kind() string { return h.kind }

// Path returns the asset file's path.
func (h *FileHandle) Path() string { return h.path }

// scratchHandle is an in-memory object used for diff materialization. It is
// never persisted; Dispose drops its state.
type scratchHandle struct {
	id   string
	kind string
	doc  []byte
}

func (h *scratchHandle) Label() string { return "scratch-" + h.id[:8] }
func (h *scratchHandle) Kind() string  { return h.kind }

// Catalog indexes the asset files under a project root and implements
// object.Resolver and object.Introspector over them.
type Catalog struct {
	root   string
	logger *slog.Logger

	mu       sync.Mutex
	byID     map[identity.ID]*FileHandle
	scratch  map[*scratchHandle]struct{}
	modified map[string]struct{}
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for scan warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Open scans root recursively for asset documents and builds the identity
// index. Non-asset JSON files are skipped with a debug log; duplicate
// identities are an error because restore could not pick a target.
func Open(root string, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		root:    root,
		logger:  slog.Default(),
		byID:    make(map[identity.ID]*FileHandle),
		scratch: make(map[*scratchHandle]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		h, id, err := readHandle(path)
		if err != nil {
			if errors.Is(err, ErrNotAnAsset) {
				c.logger.Debug("skipping non-asset file", "path", path)
				return nil
			}
			return errors.Wrapf(err, "scanning %s", path)
		}
		if prior, exists := c.byID[id]; exists {
			return errors.Wrapf(ErrDuplicateIdentity, "%s: identity %s already used by %s",
				path, id.Short(), prior.path)
		}
		c.byID[id] = h
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scanning project root")
	}

	return c, nil
}

// Handles returns all cataloged assets ordered by label for deterministic
// batch processing.
func (c *Catalog) Handles() []object.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	handles := make([]object.Handle, 0, len(c.byID))
	for _, h := range c.byID {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool {
		if handles[i].Label() != handles[j].Label() {
			return handles[i].Label() < handles[j].Label()
		}
		return handles[i].(*FileHandle).path < handles[j].(*FileHandle).path
	})
	return handles
}

// header is the bookkeeping part of an asset document.
type header struct {
	ID   string `json:"$id"`
	Type string `json:"$type"`
}

// readHandle parses just enough of an asset file to build its handle and
// extract its identity.
func readHandle(path string) (*FileHandle, identity.ID, error) {
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return nil, "", err
	}

	var hdr header
	if err := json.Unmarshal(data, &hdr); err != nil {
		return nil, "", errors.Wrap(ErrNotAnAsset, "invalid JSON")
	}
	if hdr.ID == "" || hdr.Type == "" {
		return nil, "", ErrNotAnAsset
	}
	id, err := identity.Parse(hdr.ID)
	if err != nil {
		return nil, "", errors.Wrap(ErrNotAnAsset, "malformed $id")
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &FileHandle{path: path, kind: hdr.Type, label: stem, id: id}, id, nil
}
