package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/robfig/cron"

	"github.com/starford/scriptor/internal/apperr"
	"github.com/starford/scriptor/internal/ingest"
)

const reapSchedule = "@every 1m"

// Manager owns the open sessions of a process and routes external note
// changes to every session editing that note.
type Manager struct {
	store  Store
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	sessions  map[string]*Session
	byNote    map[string]mapset.Set[string]
	listeners []func(Event)
	cron      *cron.Cron
}

// NewManager returns a Manager that opens sessions over store.
func NewManager(store Store, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
		byNote:   make(map[string]mapset.Set[string]),
	}
}

// MaxImageBytes is the embedded image size cap sessions enforce.
func (m *Manager) MaxImageBytes() int64 {
	if m.opts.MaxImageBytes > 0 {
		return m.opts.MaxImageBytes
	}
	return ingest.DefaultMaxBytes
}

// Subscribe registers fn for events of every session, current and future.
func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	for _, s := range m.sessions {
		s.Subscribe(fn)
	}
}

// Open starts a session on note id ("" creates a new note).
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	s, err := Open(ctx, id, m.store, m.opts, m.logger)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, fn := range m.listeners {
		s.Subscribe(fn)
	}
	m.sessions[s.ID()] = s
	noteID := s.NoteID()
	set, ok := m.byNote[noteID]
	if !ok {
		set = mapset.NewSet[string]()
		m.byNote[noteID] = set
	}
	set.Add(s.ID())
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("editor: session %s: %w", sessionID, apperr.ErrNotFound)
	}
	return s, nil
}

// Sessions returns the sessions editing note id.
func (m *Manager) Sessions(noteID string) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byNote[noteID]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, set.Cardinality())
	for _, sid := range set.ToSlice() {
		out = append(out, m.sessions[sid])
	}
	return out
}

// Close closes one session and forgets it.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	s, err := m.detach(sessionID)
	if err != nil {
		return err
	}
	return s.Close(ctx)
}

// Refresh reloads note id from the store into every session editing it.
// Sessions with unsaved edits keep their version.
func (m *Manager) Refresh(ctx context.Context, noteID string) int {
	sessions := m.Sessions(noteID)
	if len(sessions) == 0 {
		return 0
	}
	data, err := m.store.Load(ctx, noteID)
	if err != nil {
		m.logger.Warn("editor: refresh load failed", slog.String("note_id", noteID), slog.String("error", err.Error()))
		return 0
	}
	n := 0
	for _, s := range sessions {
		ok, err := s.Reload(data)
		if err != nil {
			m.logger.Warn("editor: refresh failed", slog.String("session_id", s.ID()), slog.String("error", err.Error()))
			continue
		}
		if ok {
			n++
		}
	}
	return n
}

// Start begins reaping sessions idle longer than Options.IdleTimeout.
func (m *Manager) Start() error {
	if m.opts.IdleTimeout <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return nil
	}
	c := cron.New()
	if err := c.AddFunc(reapSchedule, func() { m.Reap(context.Background(), time.Now()) }); err != nil {
		return fmt.Errorf("editor: schedule reaper: %w", err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Reap closes sessions idle since before now minus the idle timeout and
// returns how many it closed.
func (m *Manager) Reap(ctx context.Context, now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}
	m.mu.Lock()
	var idle []string
	for sid, s := range m.sessions {
		if now.Sub(s.idleSince()) > m.opts.IdleTimeout {
			idle = append(idle, sid)
		}
	}
	m.mu.Unlock()

	for _, sid := range idle {
		if err := m.Close(ctx, sid); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			m.logger.Warn("editor: reap close failed", slog.String("session_id", sid), slog.String("error", err.Error()))
		}
	}
	if len(idle) > 0 {
		m.logger.Info("editor: reaped idle sessions", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// CloseAll stops the reaper and closes every session, flushing as
// configured. It returns the first close error.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	if m.cron != nil {
		m.cron.Stop()
		m.cron = nil
	}
	ids := make([]string, 0, len(m.sessions))
	for sid := range m.sessions {
		ids = append(ids, sid)
	}
	m.mu.Unlock()

	var first error
	for _, sid := range ids {
		if err := m.Close(ctx, sid); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *Manager) detach(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("editor: session %s: %w", sessionID, apperr.ErrNotFound)
	}
	delete(m.sessions, sessionID)
	noteID := s.NoteID()
	if set, ok := m.byNote[noteID]; ok {
		set.Remove(sessionID)
		if set.Cardinality() == 0 {
			delete(m.byNote, noteID)
		}
	}
	return s, nil
}
