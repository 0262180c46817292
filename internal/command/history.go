package command

import (
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/selection"
)

// DefaultHistoryLimit bounds the undo stack when no limit is configured.
const DefaultHistoryLimit = 100

// Entry is one restorable editor state.
type Entry struct {
	Content   document.Content
	Selection *selection.Snapshot
	Label     string
}

// History is a bounded pair of undo/redo stacks. Entries share committed
// content, which is never mutated, so recording is cheap.
type History struct {
	undo  []Entry
	redo  []Entry
	limit int
}

// NewHistory returns a History keeping at most limit undo entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Record pushes the state before an edit. Any redo entries are discarded.
func (h *History) Record(e Entry) {
	h.push(e)
	h.redo = nil
}

// Undo pops the latest state, parking cur for Redo.
func (h *History) Undo(cur Entry) (Entry, bool) {
	if len(h.undo) == 0 {
		return Entry{}, false
	}
	e := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cur)
	return e, true
}

// Redo pops the latest undone state, parking cur for Undo.
func (h *History) Redo(cur Entry) (Entry, bool) {
	if len(h.redo) == 0 {
		return Entry{}, false
	}
	e := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.push(cur)
	return e, true
}

// CanUndo reports whether Undo has anything to return.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo has anything to return.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo, h.redo = nil, nil
}

func (h *History) push(e Entry) {
	h.undo = append(h.undo, e)
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = append(h.undo[:0:0], h.undo[over:]...)
	}
}
