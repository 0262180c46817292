package editor

import (
	"context"
	"time"
)

// target adapts a Session to autosave.Target. The document is serialized
// under the session lock; the store call runs outside it so typing is never
// blocked by a slow save.
type target struct {
	s *Session
}

func (t target) Empty() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.doc.IsEmpty()
}

func (t target) Dirty() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.dirtyLocked()
}

func (t target) Persist(ctx context.Context) error {
	s := t.s
	s.mu.Lock()
	snap := s.doc.Clone()
	snap.UpdatedAt = time.Now().UTC()
	data, err := snap.Serialize()
	id := snap.ID
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.store.Save(ctx, id, data); err != nil {
		return err
	}

	s.mu.Lock()
	s.doc.UpdatedAt = snap.UpdatedAt
	s.markSaved(snap)
	s.mu.Unlock()
	return nil
}
