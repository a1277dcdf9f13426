package appdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_UsesXDG(t *testing.T) {
	data := t.TempDir()
	conf := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	t.Setenv("XDG_CONFIG_HOME", conf)
	t.Setenv("APPDATA", "")

	d, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"root", d.RootPath, filepath.Join(data, "pupsnap")},
		{"previews", d.PreviewPath, filepath.Join(data, "pupsnap", "previews")},
		{"log", d.LogPath, filepath.Join(data, "pupsnap", "pupsnap.log")},
		{"config", d.ConfigPath, filepath.Join(conf, "pupsnap", "config.yaml")},
		{"env", d.EnvPath, filepath.Join(conf, "pupsnap", ".env")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestInitialize_And_Exists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "pupsnap")
	d := &Dirs{
		RootPath:    root,
		PreviewPath: filepath.Join(root, "previews"),
		ConfigPath:  filepath.Join(t.TempDir(), "conf", "config.yaml"),
	}

	if d.Exists() {
		t.Fatal("expected Exists() to be false before Initialize")
	}

	if err := d.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}

	if !d.Exists() {
		t.Error("expected Exists() to be true after Initialize")
	}

	if _, err := os.Stat(d.PreviewPath); err != nil {
		t.Errorf("preview directory missing: %v", err)
	}
}

func TestCleanPreviews(t *testing.T) {
	root := t.TempDir()
	d := &Dirs{RootPath: root, PreviewPath: filepath.Join(root, "previews")}

	// Missing directory is not an error
	if n, err := d.CleanPreviews(); err != nil || n != 0 {
		t.Fatalf("CleanPreviews() on missing dir = %d, %v", n, err)
	}

	if err := os.MkdirAll(d.PreviewPath, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.jpg", "b.png"} {
		if err := os.WriteFile(filepath.Join(d.PreviewPath, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := d.CleanPreviews()
	if err != nil {
		t.Fatalf("CleanPreviews() error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
}
