// Package testutil provides shared test helpers for setting up vaults,
// indexes and note stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/scriptor/internal/compress"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/index"
	"github.com/starford/scriptor/internal/notestore"
	"github.com/starford/scriptor/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "scriptor-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	files, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, files
}

// TestStore wires a vault, an index and an uncompressed note store.
func TestStore(t *testing.T) (*notestore.Store, string) {
	t.Helper()
	vaultDir, files := TestVault(t)
	codec, err := compress.ByName(compress.None)
	if err != nil {
		t.Fatal(err)
	}
	return notestore.New(files, TestDB(t), codec, Logger()), vaultDir
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Doc builds a document with a title and one paragraph per line of text.
func Doc(title string, lines ...string) *document.Document {
	d := document.New()
	d.Title = title
	if len(lines) > 0 {
		d.Content = nil
		for _, l := range lines {
			d.Content = append(d.Content, document.NewParagraph(document.Run{Text: l}))
		}
	}
	return d
}
