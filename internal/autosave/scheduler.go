// Package autosave persists an editing session on a fixed interval and on
// demand, never running two saves at once.
package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
)

// DefaultInterval is the autosave period when none is configured.
const DefaultInterval = 30 * time.Second

// Target is the state the scheduler saves.
type Target interface {
	// Empty reports a document with neither title nor content.
	Empty() bool
	// Dirty reports changes since the last successful save.
	Dirty() bool
	// Persist writes the current document to the store.
	Persist(ctx context.Context) error
}

// PersistFailure wraps a store error from a save attempt.
type PersistFailure struct {
	Err error
}

func (e *PersistFailure) Error() string {
	return fmt.Sprintf("autosave: persist failed: %v", e.Err)
}

func (e *PersistFailure) Unwrap() error { return e.Err }

// EventKind distinguishes save outcomes.
type EventKind string

// Event kinds.
const (
	Saved      EventKind = "saved"
	SaveFailed EventKind = "save_failed"
)

// Event is delivered to listeners after every save attempt.
type Event struct {
	Kind EventKind
	At   time.Time
	Err  error
}

// State is a point-in-time view of the scheduler.
type State struct {
	LastSavedAt time.Time `json:"last_saved_at"`
	IsSaving    bool      `json:"is_saving"`
}

// Scheduler drives periodic and manual saves of one Target.
type Scheduler struct {
	target   Target
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
	// slot is the save mutex: holding its single token means a save is in
	// flight. Ticks try it and give up; manual saves wait for it.
	slot chan struct{}

	mu        sync.Mutex
	state     State
	closed    bool
	listeners []func(Event)
	now       func() time.Time
}

// New returns a stopped Scheduler. interval <= 0 selects DefaultInterval;
// timeout bounds each periodic save.
func New(target Target, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = interval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		target:   target,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		slot:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Subscribe registers fn for save outcomes. Listeners run on the saving
// goroutine and must not block.
func (s *Scheduler) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Start begins periodic ticks.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cron != nil {
		return
	}
	s.cron = cron.New()
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.Tick))
	s.cron.Start()
	s.logger.Debug("autosave: started", slog.Duration("interval", s.interval))
}

// State returns the current save state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tick runs one periodic save decision. It is dropped while another save is
// in flight, for an empty document, and when nothing changed.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	select {
	case s.slot <- struct{}{}:
	default:
		s.logger.Debug("autosave: tick dropped, save in flight")
		return
	}
	defer func() { <-s.slot }()

	if s.target.Empty() || !s.target.Dirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.persist(ctx); err != nil {
		s.logger.Error("autosave: periodic save failed", slog.String("error", err.Error()))
	}
}

// SaveNow saves immediately, waiting for an in-flight save to finish first.
// A clean document is not written again. Store errors come back as
// *PersistFailure.
func (s *Scheduler) SaveNow(ctx context.Context) error {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slot }()

	if !s.target.Dirty() {
		return nil
	}
	return s.persist(ctx)
}

// Close stops periodic ticks. A save already in flight completes; nothing
// is retried afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	c := s.cron
	s.closed = true
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// persist runs with the slot held.
func (s *Scheduler) persist(ctx context.Context) error {
	s.setSaving(true)
	err := s.target.Persist(ctx)
	at := s.now()

	s.mu.Lock()
	s.state.IsSaving = false
	if err == nil {
		s.state.LastSavedAt = at
	}
	listeners := append(([]func(Event))(nil), s.listeners...)
	s.mu.Unlock()

	ev := Event{Kind: Saved, At: at}
	if err != nil {
		err = &PersistFailure{Err: err}
		ev = Event{Kind: SaveFailed, At: at, Err: err}
	}
	for _, fn := range listeners {
		fn(ev)
	}
	return err
}

func (s *Scheduler) setSaving(v bool) {
	s.mu.Lock()
	s.state.IsSaving = v
	s.mu.Unlock()
}
