package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu       sync.Mutex
	empty    bool
	dirty    bool
	fail     error
	gate     chan struct{} // when set, Persist blocks until it is closed
	started  chan struct{}
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeTarget) Empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.empty
}

func (f *fakeTarget) Dirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

func (f *fakeTarget) Persist(ctx context.Context) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.dirty = false
	return nil
}

func TestTickSkipsEmptyAndClean(t *testing.T) {
	f := &fakeTarget{empty: true, dirty: true}
	s := New(f, time.Minute, 0, nil)
	s.Tick()
	assert.Zero(t, f.calls.Load(), "empty document")

	f.empty, f.dirty = false, false
	s.Tick()
	assert.Zero(t, f.calls.Load(), "clean document")

	f.dirty = true
	s.Tick()
	assert.Equal(t, int32(1), f.calls.Load())
	assert.False(t, s.State().LastSavedAt.IsZero())
	assert.False(t, s.State().IsSaving)
}

func TestTickDroppedWhileSaving(t *testing.T) {
	f := &fakeTarget{dirty: true, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(f, time.Minute, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		s.Tick()
		close(done)
	}()
	<-f.started
	assert.True(t, s.State().IsSaving)

	s.Tick() // dropped, not queued
	close(f.gate)
	<-done
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestSaveNowWaitsForInFlight(t *testing.T) {
	f := &fakeTarget{dirty: true, gate: make(chan struct{}), started: make(chan struct{}, 2)}
	s := New(f, time.Minute, time.Minute, nil)

	go s.Tick()
	<-f.started

	saved := make(chan error, 1)
	go func() {
		f.mu.Lock()
		f.dirty = true
		f.mu.Unlock()
		saved <- s.SaveNow(context.Background())
	}()

	select {
	case <-saved:
		t.Fatal("manual save must wait for the in-flight save")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.gate)
	require.NoError(t, <-saved)
	assert.Equal(t, int32(1), f.maxSeen.Load(), "saves never overlap")
}

func TestSaveNowContextCancelled(t *testing.T) {
	f := &fakeTarget{dirty: true, gate: make(chan struct{}), started: make(chan struct{}, 1)}
	s := New(f, time.Minute, time.Minute, nil)
	go s.Tick()
	<-f.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.SaveNow(ctx), context.DeadlineExceeded)
	close(f.gate)
}

func TestPersistFailure(t *testing.T) {
	storeErr := errors.New("disk full")
	f := &fakeTarget{dirty: true, fail: storeErr}
	s := New(f, time.Minute, 0, nil)

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	err := s.SaveNow(context.Background())
	var pf *PersistFailure
	require.ErrorAs(t, err, &pf)
	assert.ErrorIs(t, err, storeErr)
	assert.True(t, s.State().LastSavedAt.IsZero())
	assert.False(t, s.State().IsSaving)
	assert.True(t, f.Dirty())

	require.Len(t, events, 1)
	assert.Equal(t, SaveFailed, events[0].Kind)

	f.mu.Lock()
	f.fail = nil
	f.mu.Unlock()
	require.NoError(t, s.SaveNow(context.Background()))
	require.Len(t, events, 2)
	assert.Equal(t, Saved, events[1].Kind)
	assert.Equal(t, s.State().LastSavedAt, events[1].At)
}

func TestSaveNowCleanIsNoop(t *testing.T) {
	f := &fakeTarget{}
	s := New(f, time.Minute, 0, nil)
	require.NoError(t, s.SaveNow(context.Background()))
	assert.Zero(t, f.calls.Load())
}

func TestCloseStopsTicks(t *testing.T) {
	f := &fakeTarget{dirty: true}
	s := New(f, time.Minute, 0, nil)
	s.Start()
	s.Close()
	s.Tick()
	assert.Zero(t, f.calls.Load())
	s.Start() // no restart after close
	s.Close()
}

func TestPeriodicSave(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the cron clock")
	}
	f := &fakeTarget{dirty: true}
	s := New(f, time.Second, 0, nil)
	s.Start()
	defer s.Close()

	deadline := time.Now().Add(3 * time.Second)
	for f.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	assert.Equal(t, int32(1), f.calls.Load())
}
