package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/scriptor/internal/compress"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.note", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.note")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.note", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.note")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.note", []byte("bye"))
	if err := s.Delete("del.note"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.note"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.note", []byte("a"))
	_ = s.Write("sub/b.note.gz", []byte("b"))
	_ = s.Write("readme.txt", []byte("not a note"))
	_ = s.Write(".note", []byte("no id"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	ids := map[string]string{}
	for _, it := range items {
		ids[it.ID] = it.Path
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}
	if ids["a"] != "a.note" || ids["b"] != filepath.Join("sub", "b.note.gz") {
		t.Errorf("ids = %v", ids)
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		codec string
		ok    bool
	}{
		{"n1.note", "n1", compress.None, true},
		{"n1.note.gz", "n1", compress.Gzip, true},
		{"n1.note.lz4", "n1", compress.LZ4, true},
		{"n1.note.br", "n1", compress.Brotli, true},
		{"n1.md", "", "", false},
		{".note", "", "", false},
		{".scriptor-tmp-1.note", "", "", false},
	}
	for _, tt := range tests {
		id, c, ok := ParseName(tt.name)
		if ok != tt.ok {
			t.Errorf("ParseName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if id != tt.id || c.Name() != tt.codec {
			t.Errorf("ParseName(%q) = %q, %q", tt.name, id, c.Name())
		}
	}
	gz, _ := compress.ByName(compress.Gzip)
	if got := FileName("n1", gz); got != "n1.note.gz" {
		t.Errorf("FileName = %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.note",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempVault(t)
	original := []byte("original content")
	_ = s.Write("atomic.note", original)

	// Overwrite with new content.
	updated := []byte("updated content")
	if err := s.Write("atomic.note", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.note")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".scriptor-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/scriptor-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "scriptor-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
