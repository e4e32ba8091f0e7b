package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func testDir(t *testing.T) (*Dir, string) {
	t.Helper()
	root := t.TempDir()
	d, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return d, root
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewDir_MissingRoot(t *testing.T) {
	if _, err := NewDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestList_OnlyJSONFiles(t *testing.T) {
	d, root := testDir(t)
	writeFile(t, root, "a.json", "{}")
	writeFile(t, root, "b.json", "{}")
	writeFile(t, root, "readme.txt", "skip")
	writeFile(t, root, ".hidden.json", "skip")
	if err := os.Mkdir(filepath.Join(root, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := d.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %+v", len(files), files)
	}
	names := map[string]bool{}
	for _, f := range files {
		names[f.Name] = true
		if f.ModTime.IsZero() {
			t.Errorf("%s: zero mod time", f.Name)
		}
	}
	if !names["a.json"] || !names["b.json"] {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestReadAndRemove(t *testing.T) {
	d, root := testDir(t)
	writeFile(t, root, "canvas.json", `{"nodes":[],"edges":[]}`)

	data, err := d.Read("canvas.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != `{"nodes":[],"edges":[]}` {
		t.Errorf("data = %s", data)
	}

	if err := d.Remove("canvas.json"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "canvas.json")); !os.IsNotExist(err) {
		t.Error("file still present after Remove")
	}
}

func TestSafePath_RejectsTraversal(t *testing.T) {
	d, _ := testDir(t)
	for _, name := range []string{"../escape.json", "/etc/passwd", "sub/dir.json", "..", ""} {
		if _, err := d.Read(name); err == nil {
			t.Errorf("Read(%q): expected error", name)
		}
		if err := d.Remove(name); err == nil {
			t.Errorf("Remove(%q): expected error", name)
		}
	}
}
