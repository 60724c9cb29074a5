package filewalker

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWalkFindsSupportedFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]bool{
		"field/event.pm1":  true,
		"field/scene.PAC":  true, // extension match is case-insensitive
		"battle/names.tbl": true,
		"battle/logic.bf":  true,
		"readme.txt":       false,
		"notes.md":         false,
	}

	for name := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Walk(dir)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4: %+v", len(entries), entries)
	}
	for _, e := range entries {
		if !SupportedExtensions[e.Ext] {
			t.Fatalf("entry with unsupported ext: %+v", e)
		}
	}
}

func TestWalkRejectsNonDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "file.pm1")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Walk(path); err == nil {
		t.Fatal("Walk accepted a plain file as root")
	}
}

func TestWalkMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := Walk(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("Walk accepted a missing root")
	}
}
