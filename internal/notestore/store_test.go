package notestore

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/scriptor/internal/apperr"
	"github.com/starford/scriptor/internal/checksum"
	"github.com/starford/scriptor/internal/compress"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/index"
	"github.com/starford/scriptor/internal/models"
	"github.com/starford/scriptor/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testStore sets up a vault dir, index and Store writing with codec.
func testStore(t *testing.T, codec string) (*Store, string) {
	t.Helper()
	vaultDir := t.TempDir()
	files, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	c, err := compress.ByName(codec)
	if err != nil {
		t.Fatal(err)
	}
	return New(files, db, c, quietLogger()), vaultDir
}

func newDoc(title, text string) *document.Document {
	d := document.New()
	d.Title = title
	d.Content = document.Content{document.NewParagraph(document.Run{Text: text})}
	return d
}

func serialize(t *testing.T, d *document.Document) []byte {
	t.Helper()
	data, err := d.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestCreateAndGet(t *testing.T) {
	s, _ := testStore(t, compress.None)
	ctx := context.Background()
	d := newDoc("Groceries", "milk and eggs")
	d.AddTag("home")

	n, err := s.Create(ctx, d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.ID != d.ID || n.Title != "Groceries" || n.Words != 3 || n.Checksum == "" {
		t.Errorf("summary = %+v", n)
	}

	got, err := s.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Document.Content.PlainText() != "milk and eggs" {
		t.Errorf("content = %q", got.Document.Content.PlainText())
	}
	if got.Checksum != n.Checksum {
		t.Errorf("checksum %q != %q", got.Checksum, n.Checksum)
	}

	if _, err := s.Create(ctx, d); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second Create err = %v, want ErrAlreadyExists", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	s, _ := testStore(t, compress.None)
	if _, err := s.Load(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	for _, id := range []string{"", "../etc", ".hidden", `a\b`} {
		if _, err := s.Load(context.Background(), id); !errors.Is(err, apperr.ErrInvalidID) {
			t.Errorf("Load(%q) err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestSaveRejectsMalformed(t *testing.T) {
	s, _ := testStore(t, compress.None)
	err := s.Save(context.Background(), "n1", []byte("{not json"))
	if !document.IsParseError(err) {
		t.Errorf("err = %v, want ParseError", err)
	}
}

func TestUpdateIfMatch(t *testing.T) {
	s, _ := testStore(t, compress.None)
	ctx := context.Background()
	d := newDoc("v1", "one")
	n, err := s.Create(ctx, d)
	if err != nil {
		t.Fatal(err)
	}

	d.Title = "v2"
	if _, err := s.Update(ctx, d.ID, serialize(t, d), "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale If-Match err = %v, want ErrConflict", err)
	}
	n2, err := s.Update(ctx, d.ID, serialize(t, d), n.Checksum)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n2.Title != "v2" || n2.Checksum == n.Checksum {
		t.Errorf("updated = %+v", n2)
	}
	if _, err := s.Update(ctx, "missing", serialize(t, d), ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s, vaultDir := testStore(t, compress.None)
	ctx := context.Background()
	d := newDoc("bye", "x")
	_, _ = s.Create(ctx, d)

	if err := s.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, d.ID+".note")); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if _, err := s.Note(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("index entry still present: %v", err)
	}
	if err := s.Delete(ctx, d.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
}

func TestCompressedVault(t *testing.T) {
	for _, codec := range []string{compress.Gzip, compress.LZ4, compress.Brotli} {
		t.Run(codec, func(t *testing.T) {
			s, vaultDir := testStore(t, codec)
			ctx := context.Background()
			d := newDoc("packed", "compressed body text")
			if _, err := s.Create(ctx, d); err != nil {
				t.Fatalf("Create: %v", err)
			}
			c, _ := compress.ByName(codec)
			raw, err := os.ReadFile(filepath.Join(vaultDir, storage.FileName(d.ID, c)))
			if err != nil {
				t.Fatalf("read raw: %v", err)
			}
			if _, err := document.Load(raw); err == nil {
				t.Error("file on disk should not be plain JSON")
			}
			data, err := s.Load(ctx, d.ID)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			back, err := document.Load(data)
			if err != nil || back.Title != "packed" {
				t.Errorf("Load round trip = %+v, %v", back, err)
			}
		})
	}
}

func TestCodecSwitchReadsOldFiles(t *testing.T) {
	plain, vaultDir := testStore(t, compress.None)
	ctx := context.Background()
	d := newDoc("old", "stored plain")
	if _, err := plain.Create(ctx, d); err != nil {
		t.Fatal(err)
	}

	files, _ := storage.NewFS(vaultDir)
	gz, _ := compress.ByName(compress.Gzip)
	s := New(files, plain.db, gz, quietLogger())
	if _, err := s.Load(ctx, d.ID); err != nil {
		t.Fatalf("Load plain file through gzip store: %v", err)
	}

	d.Title = "rewritten"
	if err := s.Save(ctx, d.ID, serialize(t, d)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, d.ID+".note")); !os.IsNotExist(err) {
		t.Error("stale plain copy should be removed")
	}
	if _, err := os.Stat(filepath.Join(vaultDir, d.ID+".note.gz")); err != nil {
		t.Errorf("gzip copy missing: %v", err)
	}
}

func TestListAndSearch(t *testing.T) {
	s, _ := testStore(t, compress.None)
	ctx := context.Background()
	a := newDoc("Alpha", "uniqueword here")
	a.ToggleStar()
	b := newDoc("Beta", "nothing special")
	_, _ = s.Create(ctx, a)
	_, _ = s.Create(ctx, b)

	notes, total, err := s.List(ctx, models.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(notes) != 2 {
		t.Errorf("total=%d len=%d", total, len(notes))
	}
	for _, n := range notes {
		if n.Tags == nil {
			t.Error("tags should be an empty slice, not nil")
		}
	}

	notes, _, _ = s.List(ctx, models.ListFilter{Starred: true})
	if len(notes) != 1 || notes[0].ID != a.ID {
		t.Errorf("starred = %+v", notes)
	}

	hits, err := s.Search(ctx, "uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != a.ID {
		t.Errorf("hits = %+v", hits)
	}
	hits, _ = s.Search(ctx, "absent", 10)
	if hits == nil || len(hits) != 0 {
		t.Errorf("no-hit search = %#v, want empty slice", hits)
	}
}

func TestSync(t *testing.T) {
	s, vaultDir := testStore(t, compress.None)
	ctx := context.Background()
	gone := newDoc("gone", "x")
	_, _ = s.Create(ctx, gone)
	_ = os.Remove(filepath.Join(vaultDir, gone.ID+".note"))

	outside := newDoc("outside", "written by another process")
	data := serialize(t, outside)
	if err := os.WriteFile(filepath.Join(vaultDir, outside.ID+".note"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(vaultDir, "broken.note"), []byte("{oops"), 0o644)

	if err := s.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cs, _ := s.Checksum(gone.ID); cs != "" {
		t.Error("stale entry not removed")
	}
	cs, _ := s.Checksum(outside.ID)
	if cs != checksum.Sum(data) {
		t.Errorf("outside checksum = %q", cs)
	}
	if cs, _ := s.Checksum("broken"); cs != "" {
		t.Error("unparseable file should not be indexed")
	}
}
