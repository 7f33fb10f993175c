package paths

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveHome(t *testing.T) {
	got, err := ResolveHome()
	want, _ := os.UserHomeDir()

	if err != nil {
		// This might happen in some restricted environments,
		// but normally should succeed.
		if !errors.Is(err, ErrHomeDirNotFound) {
			t.Errorf("unexpected error type: %v", err)
		}
	} else if got != want {
		t.Errorf("ResolveHome() = %q, want %q", got, want)
	}
}

func TestXDGBases(t *testing.T) {
	tests := []struct {
		name string
		fn   func() string
	}{
		{"ConfigHome", ConfigHome},
		{"DataHome", DataHome},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn()
			if got == "" {
				t.Errorf("%s() returned empty string", tt.name)
			}
			if !filepath.IsAbs(got) {
				t.Errorf("%s() = %q, want absolute path", tt.name, got)
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"empty", "", "", nil},
		{"absolute untouched", "/var/snapshots", "/var/snapshots", nil},
		{"relative untouched", "snapshots", "snapshots", nil},
		{"bare tilde", "~", home, nil},
		{"tilde slash", "~/snaps", filepath.Join(home, "snaps"), nil},
		{"other user", "~bob/snaps", "", ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandHome(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ExpandHome(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExpandHome(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	got := ConfigDir()
	if !strings.HasSuffix(got, AppName) {
		t.Errorf("ConfigDir() = %q, want path ending with %q", got, AppName)
	}
	if !strings.HasPrefix(got, ConfigHome()) {
		t.Errorf("ConfigDir() = %q, want path under ConfigHome %q", got, ConfigHome())
	}
}

func TestDefaultSnapshotDir(t *testing.T) {
	got := DefaultSnapshotDir()
	wantSuffix := filepath.Join(AppName, "snapshots")
	if !strings.HasSuffix(got, wantSuffix) {
		t.Errorf("DefaultSnapshotDir() = %q, want path ending with %q", got, wantSuffix)
	}
	if !strings.HasPrefix(got, DataHome()) {
		t.Errorf("DefaultSnapshotDir() = %q, want path under DataHome %q", got, DataHome())
	}
}

func TestEnsureDir(t *testing.T) {
	t.Run("creates nested directories", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b", "c")
		if err := EnsureDir(dir, 0); err != nil {
			t.Fatalf("EnsureDir() error = %v", err)
		}
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat after EnsureDir: %v", err)
		}
		if !info.IsDir() {
			t.Error("EnsureDir() did not create a directory")
		}
		if perm := info.Mode().Perm(); perm != DefaultDirPerm {
			t.Errorf("directory perm = %o, want %o", perm, DefaultDirPerm)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		dir := t.TempDir()
		if err := EnsureDir(dir, 0o755); err != nil {
			t.Errorf("EnsureDir() on existing dir: %v", err)
		}
	})
}
