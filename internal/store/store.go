// Package store persists one serialized document per identity under a
// destination directory. It owns the snapshot file-naming convention and the
// lookup index built by decoding filenames through the identity codec.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/keepsake-io/keepsake/internal/identity"
	"github.com/keepsake-io/keepsake/internal/paths"
	"github.com/keepsake-io/keepsake/pkg/fileutil"
)

// Ext is the snapshot file extension.
const Ext = ".json"

// ErrNoSnapshots indicates a directory contains no decodable snapshot files.
var ErrNoSnapshots = errors.New("no snapshots found")

// Entry describes one snapshot file in the index. Document content is
// loaded per item via Load so one unreadable file fails only its own item.
type Entry struct {
	// ID is the identity decoded from the filename. Only the embedded
	// identity is authoritative; the alias is cosmetic.
	ID identity.ID
	// Alias is the human-readable filename prefix, if any.
	Alias string
	// Path is the absolute path of the snapshot file.
	Path string
}

// Index maps identities to snapshot entries for one directory listing,
// along with the non-fatal warnings the listing produced.
type Index struct {
	entries map[identity.ID]Entry
	// Warnings records undecodable filenames and identity collisions.
	// Both are reportable, non-fatal conditions.
	Warnings []string
}

// Len returns the number of indexed snapshots.
func (ix *Index) Len() int { return len(ix.entries) }

// Get returns the entry for an identity.
func (ix *Index) Get(id identity.ID) (Entry, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

// IDs returns all indexed identities in ascending order, for deterministic
// batch processing.
func (ix *Index) IDs() []identity.ID {
	ids := make([]identity.ID, 0, len(ix.entries))
	for id := range ix.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Store reads and writes snapshot files.
type Store struct {
	ext string
}

// Option configures a Store.
type Option func(*Store)

// WithExtension overrides the snapshot file extension. The leading dot is
// required.
func WithExtension(ext string) Option {
	return func(s *Store) {
		if ext != "" {
			s.ext = ext
		}
	}
}

// New creates a Store with the given options.
func New(opts ...Option) *Store {
	s := &Store{ext: Ext}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write persists exactly one snapshot file for id under dir, creating dir if
// needed. Any prior file for the same identity is replaced wholesale, even
// when its alias prefix differs. The write is atomic; after a successful
// Write an immediate Lookup returns byte-identical content.
func (s *Store) Write(dir string, id identity.ID, alias string, doc []byte) (string, error) {
	if err := paths.EnsureDir(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating snapshot directory")
	}

	name := identity.EncodeFileName(id, alias) + s.ext
	path := filepath.Join(dir, name)

	if err := fileutil.AtomicWriteFile(path, doc, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing snapshot for %s", id.Short())
	}

	// Drop stale files for the same identity written under an older alias.
	stale, err := s.listFiles(dir)
	if err != nil {
		return "", err
	}
	for _, f := range stale {
		if f == name {
			continue
		}
		if decoded, ok := identity.DecodeFileName(f); ok && decoded == id {
			if err := os.Remove(filepath.Join(dir, f)); err != nil {
				return "", errors.Wrapf(err, "removing stale snapshot %s", f)
			}
		}
	}

	return name, nil
}

// ReadAll builds the snapshot index for dir. Files whose names yield no
// identity are skipped with a warning; when several files decode to the
// same identity, the first in filename sort order wins and the rest are
// reported as collisions. A missing or empty directory yields an empty
// index, not an error.
func (s *Store) ReadAll(dir string) (*Index, error) {
	ix := &Index{entries: make(map[identity.ID]Entry)}

	files, err := s.listFiles(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ix, nil
		}
		return nil, err
	}

	for _, name := range files {
		id, ok := identity.DecodeFileName(name)
		if !ok {
			ix.Warnings = append(ix.Warnings, "skipping "+name+": no identity in filename")
			continue
		}
		if prior, exists := ix.entries[id]; exists {
			ix.Warnings = append(ix.Warnings,
				"identity collision for "+id.Short()+": keeping "+filepath.Base(prior.Path)+", ignoring "+name)
			continue
		}
		ix.entries[id] = Entry{
			ID:    id,
			Alias: aliasFromName(name, id, s.ext),
			Path:  filepath.Join(dir, name),
		}
	}

	return ix, nil
}

// Lookup returns the document stored for id under dir, or ok=false when no
// snapshot exists for that identity.
func (s *Store) Lookup(dir string, id identity.ID) ([]byte, bool, error) {
	ix, err := s.ReadAll(dir)
	if err != nil {
		return nil, false, err
	}
	entry, ok := ix.Get(id)
	if !ok {
		return nil, false, nil
	}
	doc, err := s.Load(entry)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Load reads one snapshot document.
func (s *Store) Load(e Entry) ([]byte, error) {
	doc, err := fileutil.ReadFileWithLimit(e.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading snapshot for %s", e.ID.Short())
	}
	return doc, nil
}

// listFiles returns the snapshot-extension filenames in dir in sorted order.
func (s *Store) listFiles(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot directory")
	}

	var files []string
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(d.Name()), s.ext) {
			files = append(files, d.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// aliasFromName strips the identity suffix and separator from a filename
// stem, leaving the cosmetic alias.
func aliasFromName(name string, id identity.ID, ext string) string {
	stem := strings.TrimSuffix(name, ext)
	suffix := identity.Separator + id.String()
	if i := strings.Index(strings.ToLower(stem), suffix); i >= 0 {
		return stem[:i]
	}
	return ""
}
