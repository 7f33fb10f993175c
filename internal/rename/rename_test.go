package rename

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestApply_RenamesKeyPositionOnly(t *testing.T) {
	doc := []byte(`{"damage": 10, "description": "damage over time", "name": "damage"}`)

	out, err := Apply(doc, Table{"damage": "baseDamage"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}

	if _, ok := got["damage"]; ok {
		t.Error("old key should be gone")
	}
	if v := got["baseDamage"]; v != float64(10) {
		t.Errorf("baseDamage = %v, want 10", v)
	}
	// String values containing the old token are untouched.
	if v := got["description"]; v != "damage over time" {
		t.Errorf("description = %v", v)
	}
	if v := got["name"]; v != "damage" {
		t.Errorf("name = %v", v)
	}
}

func TestApply_NestedAndSequences(t *testing.T) {
	doc := []byte(`{
  "stats": {"damage": 5, "list": [{"damage": 1}, {"damage": 2}]},
  "damage": 10
}`)

	out, err := Apply(doc, Table{"damage": "baseDamage"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	s := string(out)
	if strings.Contains(s, `"damage"`) {
		t.Errorf("old key survived somewhere:\n%s", s)
	}
	if got := strings.Count(s, `"baseDamage"`); got != 4 {
		t.Errorf("expected 4 renamed keys, got %d:\n%s", got, s)
	}
}

func TestApply_EmptyTableIsNoOp(t *testing.T) {
	doc := []byte(`{"a":1}`)

	out, err := Apply(doc, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if string(out) != string(doc) {
		t.Errorf("empty table changed the document: %q", out)
	}
}

func TestApply_SinglePassNoChaining(t *testing.T) {
	// a->b and b->c: the original "a" becomes "b" but is NOT re-renamed to
	// "c"; the original "b" becomes "c".
	doc := []byte(`{"a": 1, "b": 2}`)

	out, err := Apply(doc, Table{"a": "b", "b": "c"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("invalid output: %v", err)
	}
	want := map[string]any{"b": float64(1), "c": float64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
}

func TestApply_PreservesKeyOrderAndValues(t *testing.T) {
	doc := []byte(`{"z": 1.5, "a": true, "m": null, "big": 12345678901234567890, "s": "x"}`)

	out, err := Apply(doc, Table{"z": "zz"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	s := string(out)

	// Key order of the source document is preserved.
	if strings.Index(s, `"zz"`) > strings.Index(s, `"a"`) {
		t.Errorf("key order not preserved:\n%s", s)
	}
	// Numbers keep their lexical form, even beyond int64/float64 precision.
	if !strings.Contains(s, "12345678901234567890") {
		t.Errorf("number lexical form not preserved:\n%s", s)
	}
	if !strings.Contains(s, "null") {
		t.Errorf("null not preserved:\n%s", s)
	}
}

func TestApply_MalformedDocument(t *testing.T) {
	if _, err := Apply([]byte(`{"a": `), Table{"a": "b"}); err == nil {
		t.Error("expected error for truncated document")
	}
}

func TestValidate_Conflicts(t *testing.T) {
	tests := []struct {
		name         string
		table        Table
		wantWarnings int
	}{
		{"clean table", Table{"damage": "baseDamage"}, 0},
		{"chained rules", Table{"a": "b", "b": "c"}, 1},
		{"empty target", Table{"a": ""}, 1},
		{"identity rule", Table{"a": "a"}, 0},
		{"nil table", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.Validate(); len(got) != tt.wantWarnings {
				t.Errorf("Validate() = %v, want %d warnings", got, tt.wantWarnings)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    Table
		wantErr bool
	}{
		{"toml", "renames.toml", "damage = \"baseDamage\"\nspeed = \"moveSpeed\"\n", Table{"damage": "baseDamage", "speed": "moveSpeed"}, false},
		{"yaml", "renames.yaml", "damage: baseDamage\n", Table{"damage": "baseDamage"}, false},
		{"json", "renames.json", `{"damage": "baseDamage"}`, Table{"damage": "baseDamage"}, false},
		{"unsupported extension", "renames.ini", "damage=baseDamage", nil, true},
		{"bad toml", "broken.toml", "= nope", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := Load(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Load() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "nope.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
