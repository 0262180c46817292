// Package storage defines the vault file-system abstraction.
package storage

import (
	"strings"

	"github.com/starford/scriptor/internal/compress"
	"github.com/starford/scriptor/internal/models"
)

// NoteExt is the extension of an uncompressed note file. Compressed files
// append the codec extension, e.g. "<id>.note.gz".
const NoteExt = ".note"

// Provider is the interface for vault file operations.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// List returns metadata for every note file under dir (relative to vault root).
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
}

// FileName returns the vault file name for a note stored with codec.
func FileName(id string, codec compress.Codec) string {
	return id + NoteExt + codec.Ext()
}

// ParseName splits a note file name into the note ID and the codec that
// wrote it. ok is false for files that are not notes.
func ParseName(name string) (id string, codec compress.Codec, ok bool) {
	for _, c := range compress.All() {
		suffix := NoteExt + c.Ext()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		id = strings.TrimSuffix(name, suffix)
		if id == "" || strings.HasPrefix(id, ".") {
			return "", nil, false
		}
		return id, c, true
	}
	return "", nil, false
}
