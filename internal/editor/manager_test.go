package editor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptor/internal/apperr"
)

func TestManagerRefresh(t *testing.T) {
	store := newMemStore()
	d := storedDoc("shared")
	store.put(t, d)
	m := NewManager(store, testOpts, nil)
	defer m.CloseAll(context.Background())

	var ev events
	m.Subscribe(ev.add)
	a, err := m.Open(context.Background(), d.ID)
	require.NoError(t, err)
	b, err := m.Open(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Len(t, m.Sessions(d.ID), 2)

	got, err := m.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	d.Title = "edited elsewhere"
	store.put(t, d)
	assert.Equal(t, 2, m.Refresh(context.Background(), d.ID))
	assert.Equal(t, "edited elsewhere", b.Document().Title)
	assert.Equal(t, []EventKind{EventChanged, EventChanged}, ev.kinds())

	assert.Zero(t, m.Refresh(context.Background(), "nobody"))

	require.NoError(t, m.Close(context.Background(), a.ID()))
	assert.Len(t, m.Sessions(d.ID), 1)
	_, err = m.Get(a.ID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, m.Close(context.Background(), a.ID()), apperr.ErrNotFound)
}

func TestManagerReap(t *testing.T) {
	opts := testOpts
	opts.IdleTimeout = time.Minute
	store := newMemStore()
	m := NewManager(store, opts, nil)
	require.NoError(t, m.Start())
	defer m.CloseAll(context.Background())

	s, err := m.Open(context.Background(), "")
	require.NoError(t, err)
	_, _ = s.InsertText("idle work")

	assert.Zero(t, m.Reap(context.Background(), time.Now()))
	assert.Equal(t, 1, m.Reap(context.Background(), time.Now().Add(2*time.Minute)))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 1, store.saveCount(), "reaped session flushed its edits")
}

func TestManagerCloseAll(t *testing.T) {
	m := NewManager(newMemStore(), testOpts, nil)
	a, _ := m.Open(context.Background(), "")
	b, _ := m.Open(context.Background(), "")
	require.NoError(t, m.CloseAll(context.Background()))
	_, err := a.InsertText("x")
	assert.True(t, IsClosed(err))
	_, err = b.InsertText("x")
	assert.True(t, IsClosed(err))
}
