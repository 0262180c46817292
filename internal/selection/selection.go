// Package selection tracks the caret/selection of an editing session and
// keeps it stable across content mutations.
//
// Positions are captured as anchors: a block identity plus a rune offset and
// a little surrounding text. Restoring an anchor against a new tree looks the
// block up by identity and re-locates the offset by its context, so the caret
// survives edits that move text within or around its block.
package selection

import (
	"errors"
	"slices"

	"github.com/starford/scriptor/internal/document"
)

// contextRunes is how much text on each side of an offset an anchor keeps.
const contextRunes = 16

// ErrRestoreMiss reports that a snapshot's block no longer exists. Restore
// falls back to the end of the document when this happens.
var ErrRestoreMiss = errors.New("selection: anchor block no longer exists")

// Anchor is a position expressed independently of block indexes.
type Anchor struct {
	BlockID string `json:"block_id"`
	Path    int    `json:"path"`
	Offset  int    `json:"offset"`
	Before  string `json:"before,omitempty"`
	After   string `json:"after,omitempty"`
}

// Snapshot is a captured selection.
type Snapshot struct {
	Anchor Anchor `json:"anchor"`
	Focus  Anchor `json:"focus"`
}

// Tracker owns the current selection. A Tracker is not safe for concurrent
// use; the editing session serializes access.
type Tracker struct {
	sel     document.Range
	focused bool
	// last is the selection at the moment focus was lost, kept so that
	// inserts without focus still land where the user left the caret.
	last *Snapshot
}

// New returns a Tracker with nothing selected.
func New() *Tracker {
	return &Tracker{}
}

// Set makes r (clamped to c) the current selection.
func (t *Tracker) Set(c document.Content, r document.Range) document.Range {
	t.sel = c.ClampRange(r)
	t.focused = true
	t.last = nil
	return t.sel
}

// Blur drops focus, remembering the caret for later inserts.
func (t *Tracker) Blur(c document.Content) {
	if !t.focused {
		return
	}
	t.last = t.Capture(c)
	t.focused = false
}

// Selection returns the current selection and whether the editor has focus.
func (t *Tracker) Selection() (document.Range, bool) {
	return t.sel, t.focused
}

// Caret returns the insertion point: the focus of the current selection, or
// the last known caret re-located in c, or the end of c. ok is false in the
// last case.
func (t *Tracker) Caret(c document.Content) (p document.Point, ok bool) {
	if t.focused {
		return c.Clamp(t.sel.Focus), true
	}
	if t.last != nil {
		if p, found := resolve(c, t.last.Focus); found {
			return p, true
		}
	}
	return c.End(), false
}

// Capture snapshots the current selection against c. It returns nil when
// the editor has no focus.
func (t *Tracker) Capture(c document.Content) *Snapshot {
	if !t.focused || len(c) == 0 {
		return nil
	}
	r := c.ClampRange(t.sel)
	return &Snapshot{Anchor: capture(c, r.Anchor), Focus: capture(c, r.Focus)}
}

// Restore re-applies s to c and makes the result the current selection. A
// nil snapshot leaves the tracker unchanged. When a block of s is gone the
// caret collapses to the end of c and the returned error is ErrRestoreMiss;
// either way the tracker ends up with a valid selection.
func (t *Tracker) Restore(c document.Content, s *Snapshot) (document.Range, error) {
	if s == nil {
		return t.sel, nil
	}
	a, okA := resolve(c, s.Anchor)
	f, okF := resolve(c, s.Focus)
	if !okA || !okF {
		end := c.End()
		t.Set(c, document.Caret(end))
		return t.sel, ErrRestoreMiss
	}
	return t.Set(c, document.Range{Anchor: a, Focus: f}), nil
}

func capture(c document.Content, p document.Point) Anchor {
	b := c[p.Block]
	text := []rune(b.Text())
	lo := max(0, p.Offset-contextRunes)
	hi := min(len(text), p.Offset+contextRunes)
	return Anchor{
		BlockID: b.ID,
		Path:    p.Block,
		Offset:  p.Offset,
		Before:  string(text[lo:p.Offset]),
		After:   string(text[p.Offset:hi]),
	}
}

func resolve(c document.Content, a Anchor) (document.Point, bool) {
	idx := -1
	if a.Path >= 0 && a.Path < len(c) && c[a.Path].ID == a.BlockID {
		idx = a.Path
	} else {
		idx = c.Index(a.BlockID)
	}
	if idx < 0 {
		return document.Point{}, false
	}
	return document.Point{Block: idx, Offset: relocate([]rune(c[idx].Text()), a)}, true
}

// relocate finds the offset in text whose surroundings best match the
// anchor's context, preferring matches nearest the original offset. Without
// any match the original offset is clamped.
func relocate(text []rune, a Anchor) int {
	off := max(0, min(a.Offset, len(text)))
	before, after := []rune(a.Before), []rune(a.After)
	if fits(text, off, before, after) {
		return off
	}
	for _, try := range [][2][]rune{{before, after}, {before, nil}, {nil, after}} {
		if len(try[0])+len(try[1]) == 0 {
			continue
		}
		if p, ok := nearest(text, a.Offset, try[0], try[1]); ok {
			return p
		}
	}
	return off
}

func fits(text []rune, off int, before, after []rune) bool {
	if off < len(before) || off+len(after) > len(text) {
		return false
	}
	return slices.Equal(text[off-len(before):off], before) && slices.Equal(text[off:off+len(after)], after)
}

func nearest(text []rune, want int, before, after []rune) (int, bool) {
	best, found := 0, false
	for off := len(before); off+len(after) <= len(text); off++ {
		if !fits(text, off, before, after) {
			continue
		}
		if !found || abs(off-want) < abs(best-want) {
			best, found = off, true
		}
	}
	return best, found
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
