// Package editor runs editing sessions: one document, its selection, undo
// history, ingestion and autosave, serialized behind a single lock.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/scriptor/internal/apperr"
	"github.com/starford/scriptor/internal/autosave"
	"github.com/starford/scriptor/internal/checksum"
	"github.com/starford/scriptor/internal/command"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/ingest"
	"github.com/starford/scriptor/internal/metrics"
	"github.com/starford/scriptor/internal/selection"
)

// Store is the note store a session loads from and saves to.
type Store interface {
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte) error
}

// Options tune a session.
type Options struct {
	AutosaveInterval time.Duration
	SaveTimeout      time.Duration
	HistoryLimit     int
	MaxImageBytes    int64
	FetchTimeout     time.Duration
	FlushOnClose     bool
	IdleTimeout      time.Duration
}

// EventKind names a session notification.
type EventKind string

// Session notifications.
const (
	EventSaved      EventKind = "note.saved"
	EventSaveFailed EventKind = "note.save_failed"
	EventChanged    EventKind = "note.changed"
)

// Event is a best-effort notification to the host.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	NoteID    string    `json:"note_id"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

// State is a point-in-time view of a session for the host shell.
type State struct {
	SessionID string          `json:"session_id"`
	NoteID    string          `json:"note_id"`
	Title     string          `json:"title"`
	Dirty     bool            `json:"dirty"`
	Metrics   metrics.Metrics `json:"metrics"`
	Autosave  autosave.State  `json:"autosave"`
	Selection document.Range  `json:"selection"`
	Focused   bool            `json:"focused"`
	CanUndo   bool            `json:"can_undo"`
	CanRedo   bool            `json:"can_redo"`
	Picker    Picker          `json:"picker,omitempty"`
	Warning   string          `json:"warning,omitempty"`
}

// Session is one open note. All methods are safe for concurrent use; every
// mutation holds the session lock from selection capture to metrics
// recomputation, and only persistence runs outside it.
type Session struct {
	id     string
	store  Store
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	doc        *document.Document
	tracker    *selection.Tracker
	exec       *command.Executor
	ingest     *ingest.Ingestor
	fetcher    *ingest.Fetcher
	sched      *autosave.Scheduler
	metrics    metrics.Metrics
	picker     Picker
	savedPrint uint64
	saved      bool
	warning    string
	closed     bool
	lastActive time.Time
	listeners  []func(Event)
}

// Open starts a session on note id, or on a new note when id is empty. A
// stored document that cannot be parsed is replaced by an empty one and
// reported through State().Warning.
func Open(ctx context.Context, id string, store Store, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:         uuid.NewString(),
		store:      store,
		opts:       opts,
		logger:     logger,
		tracker:    selection.New(),
		lastActive: time.Now(),
	}

	if id == "" {
		s.doc = document.New()
	} else {
		data, err := store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("editor: open %s: %w", id, err)
		}
		doc, err := document.LoadOrEmpty(data)
		if err != nil {
			s.warning = err.Error()
			logger.Warn("editor: stored document unreadable, starting empty",
				slog.String("note_id", id), slog.String("error", err.Error()))
		}
		doc.ID = id
		s.doc = doc
		// The empty fallback counts as saved so the unreadable file is not
		// overwritten until the user edits, and a fixed file can reload.
		s.markSaved(doc)
	}
	s.logger = logger.With(slog.String("session_id", s.id), slog.String("note_id", s.doc.ID))

	s.exec = command.NewExecutor(s.doc, s.tracker, opts.HistoryLimit, s.logger)
	s.exec.OnCommit(func(c document.Content) { s.metrics = metrics.Compute(c) })
	s.ingest = ingest.New(s.exec, opts.MaxImageBytes, s.logger)
	s.fetcher = ingest.NewFetcher(s.ingest.MaxBytes(), opts.FetchTimeout)
	s.metrics = metrics.Compute(s.doc.Content)

	s.sched = autosave.New(target{s}, opts.AutosaveInterval, opts.SaveTimeout, s.logger)
	s.sched.Subscribe(s.forward)
	s.sched.Start()
	s.logger.Info("editor: session opened")
	return s, nil
}

// ID is the session identifier.
func (s *Session) ID() string { return s.id }

// NoteID is the identifier of the note being edited.
func (s *Session) NoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.ID
}

// Subscribe registers fn for save outcomes and external reloads. Listeners
// must not block and must not call back into the session.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Document returns a deep copy of the current document.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Metrics returns the counters for the current content.
func (s *Session) Metrics() metrics.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// IsDirty reports whether the document differs from its last successful save.
func (s *Session) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, focused := s.tracker.Selection()
	return State{
		SessionID: s.id,
		NoteID:    s.doc.ID,
		Title:     s.doc.Title,
		Dirty:     s.dirtyLocked(),
		Metrics:   s.metrics,
		Autosave:  s.sched.State(),
		Selection: sel,
		Focused:   focused,
		CanUndo:   s.exec.History().CanUndo(),
		CanRedo:   s.exec.History().CanRedo(),
		Picker:    s.picker,
		Warning:   s.warning,
	}
}

// Execute runs a named editing command.
func (s *Session) Execute(name command.Name, arg string) (command.Result, error) {
	var res command.Result
	err := s.do(func() error {
		var err error
		res, err = s.exec.Execute(name, arg)
		if err == nil && (name == command.ForeColor || name == command.HighlightColor) {
			s.picker = PickerNone
		}
		return err
	})
	return res, err
}

// Select places the selection. The range is clamped to the content.
func (s *Session) Select(r document.Range) (document.Range, error) {
	var out document.Range
	err := s.do(func() error {
		out = s.tracker.Set(s.doc.Content, r)
		return nil
	})
	return out, err
}

// SelectAll selects the whole content.
func (s *Session) SelectAll() (document.Range, error) {
	var out document.Range
	err := s.do(func() error {
		out = s.tracker.Set(s.doc.Content, s.doc.Content.All())
		return nil
	})
	return out, err
}

// Blur drops focus; the last caret is remembered for inserts.
func (s *Session) Blur() error {
	return s.do(func() error {
		s.tracker.Blur(s.doc.Content)
		return nil
	})
}

// InsertText types text at the caret, replacing a non-empty selection.
// A newline splits the block.
func (s *Session) InsertText(text string) (command.Result, error) {
	var res command.Result
	err := s.do(func() error {
		res = s.exec.Mutate("typing", func(in command.Input) (command.Edit, bool) {
			if text == "" {
				return command.Edit{}, false
			}
			c, p := in.Content, in.Caret
			if in.Focused && !in.Selection.Collapsed() {
				c, p = document.DeleteRange(c, in.Selection)
			}
			out, at := document.InsertText(c, p, text)
			r := document.Caret(at)
			return command.Edit{Content: out, Selection: &r}, true
		})
		return nil
	})
	return res, err
}

// DeleteBackward deletes a focused selection, or the character before the
// caret.
func (s *Session) DeleteBackward() (command.Result, error) {
	var res command.Result
	err := s.do(func() error {
		res = s.exec.Mutate("delete", func(in command.Input) (command.Edit, bool) {
			var (
				out document.Content
				at  document.Point
			)
			if in.Focused && !in.Selection.Collapsed() {
				out, at = document.DeleteRange(in.Content, in.Selection)
			} else {
				out, at = document.DeleteBackward(in.Content, in.Caret)
			}
			r := document.Caret(at)
			return command.Edit{Content: out, Selection: &r}, true
		})
		return nil
	})
	return res, err
}

// PasteText pastes plain text.
func (s *Session) PasteText(text string) (command.Result, error) {
	var res command.Result
	err := s.do(func() error {
		res = s.ingest.Text(text)
		return nil
	})
	return res, err
}

// PasteHTML pastes an HTML fragment.
func (s *Session) PasteHTML(fragment string) (command.Result, error) {
	var res command.Result
	err := s.do(func() error {
		var err error
		res, err = s.ingest.HTML(fragment)
		return err
	})
	return res, err
}

// InsertImage embeds image bytes at the caret.
func (s *Session) InsertImage(data []byte, mimeType, alt string) (command.Result, error) {
	var res command.Result
	err := s.do(func() error {
		var err error
		res, err = s.ingest.Image(data, mimeType, alt)
		return err
	})
	return res, err
}

// InsertImageDataURI embeds a data: URI image at the caret.
func (s *Session) InsertImageDataURI(uri, alt string) (command.Result, error) {
	var res command.Result
	err := s.do(func() error {
		var err error
		res, err = s.ingest.DataURI(uri, alt)
		return err
	})
	return res, err
}

// InsertImageURL downloads an image and embeds it at the caret. The
// download runs without holding the session lock.
func (s *Session) InsertImageURL(ctx context.Context, rawURL, alt string) (command.Result, error) {
	if err := s.touch(); err != nil {
		return command.Result{}, err
	}
	data, mt, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return command.Result{}, err
	}
	return s.InsertImage(data, mt, alt)
}

// Save persists the document now, waiting for an in-flight autosave.
func (s *Session) Save(ctx context.Context) error {
	if err := s.touch(); err != nil {
		return err
	}
	return s.sched.SaveNow(ctx)
}

// Reload replaces the document with a version written elsewhere. It is
// skipped (returning false) when the session has unsaved edits or the
// incoming version is what the session already holds. Undo history does
// not survive a reload.
func (s *Session) Reload(data []byte) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, apperr.ErrSessionClosed
	}
	incoming, err := document.Load(data)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.dirtyLocked() {
		s.mu.Unlock()
		s.logger.Warn("editor: external change ignored, session has unsaved edits")
		return false, nil
	}
	id := s.doc.ID
	incoming.ID = id
	if fingerprint(incoming) == fingerprint(s.doc) {
		s.mu.Unlock()
		return false, nil
	}

	snap := s.tracker.Capture(s.doc.Content)
	*s.doc = *incoming
	if _, err := s.tracker.Restore(s.doc.Content, snap); err != nil {
		s.logger.Debug("editor: selection restore fell back", slog.String("error", err.Error()))
	}
	s.exec.History().Clear()
	s.metrics = metrics.Compute(s.doc.Content)
	s.markSaved(s.doc)
	s.warning = ""
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.logger.Info("editor: reloaded external change")
	emit(listeners, Event{Kind: EventChanged, SessionID: s.id, NoteID: id, At: time.Now()})
	return true, nil
}

// Close stops autosave and, with FlushOnClose, saves unsaved edits first.
// A save already in flight completes; nothing is retried afterwards.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	flush := s.opts.FlushOnClose && s.dirtyLocked() && !s.doc.IsEmpty()
	s.mu.Unlock()

	s.sched.Close()
	var err error
	if flush {
		err = s.sched.SaveNow(ctx)
	}
	s.logger.Info("editor: session closed", slog.Bool("flushed", flush))
	return err
}

// idleSince reports when the session last saw input.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// do runs fn under the session lock after the closed check.
func (s *Session) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperr.ErrSessionClosed
	}
	s.lastActive = time.Now()
	return fn()
}

func (s *Session) touch() error {
	return s.do(func() error { return nil })
}

func (s *Session) dirtyLocked() bool {
	if !s.saved {
		return true
	}
	return fingerprint(s.doc) != s.savedPrint
}

func (s *Session) markSaved(d *document.Document) {
	s.savedPrint = fingerprint(d)
	s.saved = true
}

func (s *Session) listenersLocked() []func(Event) {
	return append(([]func(Event))(nil), s.listeners...)
}

// forward relays autosave outcomes to session listeners.
func (s *Session) forward(ev autosave.Event) {
	s.mu.Lock()
	out := Event{SessionID: s.id, NoteID: s.doc.ID, At: ev.At, Kind: EventSaved}
	listeners := s.listenersLocked()
	s.mu.Unlock()
	if ev.Kind == autosave.SaveFailed {
		out.Kind = EventSaveFailed
		if ev.Err != nil {
			out.Error = ev.Err.Error()
		}
	}
	emit(listeners, out)
}

func emit(listeners []func(Event), ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}

func fingerprint(d *document.Document) uint64 {
	data, err := d.Serialize()
	if err != nil {
		return 0
	}
	return checksum.Fingerprint(data)
}

// IsClosed reports whether err means the session is gone.
func IsClosed(err error) bool {
	return errors.Is(err, apperr.ErrSessionClosed)
}

// trimmed is the shared normalization for metadata strings.
func trimmed(s string) string { return strings.TrimSpace(s) }
