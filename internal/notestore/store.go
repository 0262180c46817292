// Package notestore persists serialized documents in the vault and keeps
// the SQLite index in step with them.
package notestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/scriptor/internal/apperr"
	"github.com/starford/scriptor/internal/checksum"
	"github.com/starford/scriptor/internal/compress"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/index"
	"github.com/starford/scriptor/internal/metrics"
	"github.com/starford/scriptor/internal/models"
	"github.com/starford/scriptor/internal/storage"
)

// Detail is a note summary together with its decoded document.
type Detail struct {
	models.Note
	Document *document.Document `json:"document"`
}

// Store coordinates vault files and the index.
type Store struct {
	files  storage.Provider
	db     index.NoteIndex
	codec  compress.Codec
	logger *slog.Logger

	// mu serializes writers so check-then-write sequences (create, if-match
	// update) are not interleaved.
	mu sync.Mutex
}

// New creates a Store. codec selects how new files are written; files
// written with any other codec are still readable.
func New(files storage.Provider, db index.NoteIndex, codec compress.Codec, logger *slog.Logger) *Store {
	if codec == nil {
		codec, _ = compress.ByName(compress.None)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{files: files, db: db, codec: codec, logger: logger}
}

// Load returns the serialized document stored under id.
func (s *Store) Load(_ context.Context, id string) ([]byte, error) {
	data, _, err := s.read(id)
	return data, err
}

// Get reads and decodes a note.
func (s *Store) Get(ctx context.Context, id string) (*Detail, error) {
	data, raw, err := s.read(id)
	if err != nil {
		return nil, err
	}
	d, err := document.Load(data)
	if err != nil {
		return nil, err
	}
	return &Detail{Note: summary(d, checksum.Sum(raw)), Document: d}, nil
}

// Save writes the serialized document data under id, creating or replacing it.
func (s *Store) Save(_ context.Context, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.write(id, data)
	return err
}

// Create stores a new note. An existing note with the same ID yields
// apperr.ErrAlreadyExists.
func (s *Store) Create(_ context.Context, d *document.Document) (*models.Note, error) {
	data, err := d.Serialize()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, _, err := s.read(d.ID); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return s.write(d.ID, data)
}

// Update replaces an existing note with optimistic concurrency: a non-empty
// ifMatch must equal the stored checksum or apperr.ErrConflict is returned.
func (s *Store) Update(_ context.Context, id string, data []byte, ifMatch string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, raw, err := s.read(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(raw) {
		return nil, apperr.ErrConflict
	}
	return s.write(id, data)
}

// Delete removes a note from the vault and the index.
func (s *Store) Delete(_ context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, c := range compress.All() {
		err := s.files.Delete(storage.FileName(id, c))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		found = true
	}
	if !found {
		return apperr.ErrNotFound
	}
	return s.db.DeleteNote(id)
}

// Note returns the indexed summary of a note.
func (s *Store) Note(_ context.Context, id string) (*models.Note, error) {
	return s.db.GetNote(id)
}

// List returns one page of note summaries and the total match count.
func (s *Store) List(_ context.Context, f models.ListFilter) ([]models.Note, int, error) {
	notes, total, err := s.db.ListNotes(f)
	if err != nil {
		return nil, 0, err
	}
	for i := range notes {
		notes[i].Tags = nonNilSlice(notes[i].Tags)
	}
	return notes, total, nil
}

// Search delegates full-text search to the index.
func (s *Store) Search(_ context.Context, query string, limit int) ([]models.SearchHit, error) {
	hits, err := s.db.Search(query, limit)
	return nonNilSlice(hits), err
}

// Checksum returns the indexed checksum of a note, or "" when it is not indexed.
func (s *Store) Checksum(id string) (string, error) {
	return s.db.GetChecksum(id)
}

// read finds the note file under any codec and returns the decoded bytes
// and the raw file bytes.
func (s *Store) read(id string) ([]byte, []byte, error) {
	if err := validID(id); err != nil {
		return nil, nil, err
	}
	codecs := append([]compress.Codec{s.codec}, compress.All()...)
	for _, c := range codecs {
		raw, err := s.files.Read(storage.FileName(id, c))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		data, err := c.Decode(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("notestore: decode %s: %w", id, err)
		}
		return data, raw, nil
	}
	return nil, nil, apperr.ErrNotFound
}

// write stores data under id with the configured codec, drops copies
// written with other codecs, and indexes the result. Callers hold mu.
func (s *Store) write(id string, data []byte) (*models.Note, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	d, err := document.Load(data)
	if err != nil {
		return nil, err
	}
	raw, err := s.codec.Encode(data)
	if err != nil {
		return nil, err
	}
	name := storage.FileName(id, s.codec)
	if err := s.files.Write(name, raw); err != nil {
		return nil, err
	}
	for _, c := range compress.All() {
		if c.Name() == s.codec.Name() {
			continue
		}
		if err := s.files.Delete(storage.FileName(id, c)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("notestore: remove stale copy failed", slog.String("id", id), slog.String("error", err.Error()))
		}
	}
	n := summary(d, checksum.Sum(raw))
	n.ID = id
	if err := s.db.UpsertNote(index.Row{Note: n, Path: name}, d.Content.PlainText()); err != nil {
		return nil, err
	}
	s.logger.Debug("notestore: saved", slog.String("id", id), slog.Int("bytes", len(raw)))
	return &n, nil
}

// IndexFile decodes a vault file written by anyone and upserts it into the index.
// Exported so that sync and watcher can reuse it.
func (s *Store) IndexFile(info models.FileInfo) error {
	raw, err := s.files.Read(info.Path)
	if err != nil {
		return err
	}
	_, codec, ok := storage.ParseName(filepath.Base(info.Path))
	if !ok {
		return fmt.Errorf("notestore: not a note file: %s", info.Path)
	}
	data, err := codec.Decode(raw)
	if err != nil {
		return fmt.Errorf("notestore: decode %s: %w", info.Path, err)
	}
	d, err := document.Load(data)
	if err != nil {
		return err
	}
	n := summary(d, checksum.Sum(raw))
	n.ID = info.ID
	return s.db.UpsertNote(index.Row{Note: n, Path: info.Path}, d.Content.PlainText())
}

func summary(d *document.Document, cs string) models.Note {
	m := metrics.Compute(d.Content)
	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	return models.Note{
		ID:         d.ID,
		Title:      d.Title,
		Tags:       nonNilSlice(d.Tags),
		FolderRef:  d.FolderRef,
		Category:   d.Category,
		Subject:    d.Subject,
		Starred:    d.Flags.Starred,
		Public:     d.Flags.Public,
		Words:      m.Words,
		Characters: m.Characters,
		Checksum:   cs,
		UpdatedAt:  updated,
	}
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return apperr.ErrInvalidID
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
