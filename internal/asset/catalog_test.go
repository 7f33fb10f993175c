package asset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/keepsake-io/keepsake/internal/identity"
)

const (
	swordID  = "0123456789abcdef0123456789abcdef"
	shieldID = "fedcba9876543210fedcba9876543210"
)

const swordDoc = `{
  "$id": "` + swordID + `",
  "$type": "Weapon",
  "name": "Sword",
  "damage": 10
}
`

const shieldDoc = `{
  "$id": "` + shieldID + `",
  "$type": "Armor",
  "name": "Shield",
  "block": 4
}
`

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "items"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"Sword.json":        swordDoc,
		"items/Shield.json": shieldDoc,
		"notes.json":        `{"not": "an asset"}`,
		"readme.txt":        "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestOpen_IndexesAssets(t *testing.T) {
	c, err := Open(writeProject(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	handles := c.Handles()
	if len(handles) != 2 {
		t.Fatalf("Handles() = %d entries, want 2", len(handles))
	}
	// Sorted by label.
	if handles[0].Label() != "Shield" || handles[1].Label() != "Sword" {
		t.Errorf("labels = %q, %q", handles[0].Label(), handles[1].Label())
	}
	if handles[0].Kind() != "Armor" {
		t.Errorf("Shield kind = %q, want Armor", handles[0].Kind())
	}
}

func TestOpen_DuplicateIdentity(t *testing.T) {
	root := writeProject(t)
	dup := strings.Replace(swordDoc, "Sword", "SwordCopy", 1)
	if err := os.WriteFile(filepath.Join(root, "SwordCopy.json"), []byte(dup), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(root)
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("Open() error = %v, want ErrDuplicateIdentity", err)
	}
}

func TestResolver_SurvivesFileRename(t *testing.T) {
	root := writeProject(t)

	// Moving and renaming the file must not change its identity, because
	// the identity is embedded in the document.
	oldPath := filepath.Join(root, "Sword.json")
	newPath := filepath.Join(root, "items", "Blade_v2.json")
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	c, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	id, err := identity.Parse(swordID)
	if err != nil {
		t.Fatal(err)
	}
	h, ok, err := c.HandleOf(id)
	if err != nil {
		t.Fatalf("HandleOf() error = %v", err)
	}
	if !ok {
		t.Fatal("identity not resolved after rename")
	}
	if h.Label() != "Blade_v2" {
		t.Errorf("label = %q, want Blade_v2", h.Label())
	}

	got, err := c.IdentityOf(h)
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("IdentityOf() = %s, want %s", got, id)
	}
}

func TestHandleOf_Absent(t *testing.T) {
	c, err := Open(writeProject(t))
	if err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.HandleOf(identity.ID("cccccccccccccccccccccccccccccccc"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("HandleOf() resolved an identity that has no live object")
	}
}

func TestToDocument_ByteIdentical(t *testing.T) {
	c, err := Open(writeProject(t))
	if err != nil {
		t.Fatal(err)
	}
	id, _ := identity.Parse(swordID)
	h, _, err := c.HandleOf(id)
	if err != nil {
		t.Fatal(err)
	}

	first, err := c.ToDocument(h)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.ToDocument(h)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != swordDoc || string(second) != swordDoc {
		t.Error("ToDocument() should return the stored document text unchanged")
	}
}

func TestOverwriteFromDocument(t *testing.T) {
	root := writeProject(t)
	c, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := identity.Parse(swordID)
	h, _, err := c.HandleOf(id)
	if err != nil {
		t.Fatal(err)
	}

	updated := strings.Replace(swordDoc, "10", "12", 1)
	if err := c.OverwriteFromDocument([]byte(updated), h); err != nil {
		t.Fatalf("OverwriteFromDocument() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "Sword.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != updated {
		t.Errorf("file content = %q, want %q", got, updated)
	}

	modified := c.ModifiedPaths()
	if len(modified) != 1 || filepath.Base(modified[0]) != "Sword.json" {
		t.Errorf("ModifiedPaths() = %v", modified)
	}
}

func TestOverwriteFromDocument_AllOrNothing(t *testing.T) {
	root := writeProject(t)
	c, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := identity.Parse(swordID)
	h, _, err := c.HandleOf(id)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		doc  string
	}{
		{"malformed document", `{"$type": "Weapon", "damage": `},
		{"identity mismatch", strings.Replace(swordDoc, swordID, shieldID, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.OverwriteFromDocument([]byte(tt.doc), h); err == nil {
				t.Fatal("expected error")
			}
			got, err := os.ReadFile(filepath.Join(root, "Sword.json"))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != swordDoc {
				t.Error("failed overwrite must leave the object unchanged")
			}
		})
	}

	if len(c.ModifiedPaths()) != 0 {
		t.Error("failed overwrites must not mark the object modified")
	}
}

func TestScratchLifecycle(t *testing.T) {
	c, err := Open(writeProject(t))
	if err != nil {
		t.Fatal(err)
	}

	scratch, err := c.CreateScratch("Weapon")
	if err != nil {
		t.Fatalf("CreateScratch() error = %v", err)
	}
	defer c.Dispose(scratch)

	if scratch.Kind() != "Weapon" {
		t.Errorf("Kind() = %q, want Weapon", scratch.Kind())
	}

	// Overwrite the scratch from a document, then read its field tree.
	if err := c.OverwriteFromDocument([]byte(swordDoc), scratch); err != nil {
		t.Fatalf("OverwriteFromDocument(scratch) error = %v", err)
	}
	tree, err := c.FieldTree(scratch)
	if err != nil {
		t.Fatalf("FieldTree(scratch) error = %v", err)
	}
	if len(tree.Fields) == 0 {
		t.Error("scratch field tree is empty after overwrite")
	}

	// Scratch objects have no stable identity.
	if _, err := c.IdentityOf(scratch); err == nil {
		t.Error("IdentityOf(scratch) should fail")
	}
}
