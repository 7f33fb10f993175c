package diff

import (
	"reflect"
	"strings"
	"testing"

	"github.com/keepsake-io/keepsake/internal/flatten"
	"github.com/keepsake-io/keepsake/internal/object"
)

func flat(t *testing.T, doc string) flatten.PathMap {
	t.Helper()
	root, err := object.ParseDocument([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return flatten.Flatten(root)
}

func TestCompare_Classification(t *testing.T) {
	current := flat(t, `{"$type": "Weapon", "baseDamage": 0, "name": "Sword", "weight": 2.5}`)
	snapshot := flat(t, `{"$type": "Weapon", "damage": 10, "name": "Sword", "weight": 3.5}`)

	got := Compare(current, snapshot)
	want := []Entry{
		{Path: "baseDamage", Op: OpRemoved, Current: "0"},
		{Path: "damage", Op: OpAdded, Snapshot: "10"},
		{Path: "weight", Op: OpModified, Current: "2.5", Snapshot: "3.5"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compare() = %+v, want %+v", got, want)
	}
}

func TestCompare_EqualInputsEmpty(t *testing.T) {
	doc := `{"$type": "T", "a": 1, "b": [true, 0.5], "c": {"d": "x"}}`
	if entries := Compare(flat(t, doc), flat(t, doc)); len(entries) != 0 {
		t.Errorf("Compare(equal) = %+v, want empty", entries)
	}
}

// Swapping inputs turns added into removed and vice versa; modified entries
// swap sides but keep their path set.
func TestCompare_SwapSymmetry(t *testing.T) {
	a := flat(t, `{"$type": "T", "x": 1, "shared": "old"}`)
	b := flat(t, `{"$type": "T", "y": 2, "shared": "new"}`)

	forward := Compare(a, b)
	backward := Compare(b, a)

	if len(forward) != len(backward) {
		t.Fatalf("entry counts differ: %d vs %d", len(forward), len(backward))
	}

	byPath := make(map[string]Entry, len(backward))
	for _, e := range backward {
		byPath[e.Path] = e
	}
	for _, fe := range forward {
		be, ok := byPath[fe.Path]
		if !ok {
			t.Errorf("path %q missing from swapped diff", fe.Path)
			continue
		}
		switch fe.Op {
		case OpAdded:
			if be.Op != OpRemoved {
				t.Errorf("path %q: added should swap to removed, got %v", fe.Path, be.Op)
			}
		case OpRemoved:
			if be.Op != OpAdded {
				t.Errorf("path %q: removed should swap to added, got %v", fe.Path, be.Op)
			}
		case OpModified:
			if be.Op != OpModified || be.Current != fe.Snapshot || be.Snapshot != fe.Current {
				t.Errorf("path %q: modified swap mismatch: %+v vs %+v", fe.Path, fe, be)
			}
		}
	}
}

// A sequence with 3 elements in the snapshot and 2 in the current object
// yields one added entry at the missing index when the shared prefix is
// unchanged.
func TestCompare_SequenceTailGrowth(t *testing.T) {
	current := flat(t, `{"$type": "T", "items": [1, 2]}`)
	snapshot := flat(t, `{"$type": "T", "items": [1, 2, 3]}`)

	got := Compare(current, snapshot)
	want := []Entry{{Path: "items[2]", Op: OpAdded, Snapshot: "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compare() = %+v, want %+v", got, want)
	}
}

// Mid-sequence insertion shows as shifted modified entries plus a tail
// added entry. Accepted limitation of flat map difference.
func TestCompare_SequenceMidInsertCascade(t *testing.T) {
	current := flat(t, `{"$type": "T", "items": [1, 3]}`)
	snapshot := flat(t, `{"$type": "T", "items": [1, 2, 3]}`)

	got := Compare(current, snapshot)
	want := []Entry{
		{Path: "items[1]", Op: OpModified, Current: "3", Snapshot: "2"},
		{Path: "items[2]", Op: OpAdded, Snapshot: "3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compare() = %+v, want %+v", got, want)
	}
}

func TestCompare_SortedByPath(t *testing.T) {
	current := flat(t, `{"$type": "T", "z": 1, "a": 1}`)
	snapshot := flat(t, `{"$type": "T", "m": 1, "b": 1}`)

	entries := Compare(current, snapshot)
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path >= entries[i].Path {
			t.Errorf("entries not sorted: %q before %q", entries[i-1].Path, entries[i].Path)
		}
	}
}

func TestUnified(t *testing.T) {
	current := []byte("{\n  \"damage\": 10\n}\n")
	snapshot := []byte("{\n  \"damage\": 12\n}\n")

	patch, err := Unified("Sword", current, snapshot, 0)
	if err != nil {
		t.Fatalf("Unified() error = %v", err)
	}
	for _, fragment := range []string{"--- Sword (current)", "+++ Sword (snapshot)", "-  \"damage\": 10", "+  \"damage\": 12"} {
		if !strings.Contains(patch, fragment) {
			t.Errorf("patch missing %q:\n%s", fragment, patch)
		}
	}
}
