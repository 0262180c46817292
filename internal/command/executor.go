// Package command maps named editing commands onto document transformations
// and runs them with selection preservation and undo history.
package command

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/selection"
)

// ErrUnknownCommand is returned for names outside the command set.
var ErrUnknownCommand = errors.New("command: unknown command")

// Input is the editor state an EditFunc works from.
type Input struct {
	Content   document.Content
	Selection document.Range
	Focused   bool
	// Caret is where structural inserts go: the selection focus when
	// focused, otherwise the last known caret or the document end.
	Caret document.Point
	Arg   string
}

// Edit is the outcome of an EditFunc. A nil Selection means the captured
// selection is restored against the new content.
type Edit struct {
	Content   document.Content
	Selection *document.Range
}

// EditFunc computes an edit from the current state. Returning false means
// the edit does not apply and nothing is committed.
type EditFunc func(in Input) (Edit, bool)

// Result reports what an execution did.
type Result struct {
	Changed   bool           `json:"changed"`
	Selection document.Range `json:"selection"`
	Focused   bool           `json:"focused"`
}

// Executor applies commands to one document. It is not safe for concurrent
// use; the editing session serializes access.
type Executor struct {
	doc      *document.Document
	tracker  *selection.Tracker
	history  *History
	handlers map[Name]EditFunc
	onCommit func(document.Content)
	logger   *slog.Logger
}

// NewExecutor returns an Executor over doc and tracker.
func NewExecutor(doc *document.Document, tracker *selection.Tracker, historyLimit int, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		doc:      doc,
		tracker:  tracker,
		history:  NewHistory(historyLimit),
		handlers: registry(),
		logger:   logger,
	}
}

// OnCommit registers fn to run after every committed change.
func (e *Executor) OnCommit(fn func(document.Content)) {
	e.onCommit = fn
}

// History exposes the undo/redo stacks.
func (e *Executor) History() *History {
	return e.history
}

// Names lists the supported command names, sorted.
func Names() []Name {
	names := []Name{Undo, Redo}
	for n := range registry() {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Execute runs the named command with arg. Only an unknown name is an
// error; a command that cannot apply is a no-op with Changed false.
func (e *Executor) Execute(name Name, arg string) (Result, error) {
	switch name {
	case Undo:
		return e.undo(), nil
	case Redo:
		return e.redo(), nil
	}
	h, ok := e.handlers[name]
	if !ok {
		return Result{}, ErrUnknownCommand
	}
	return e.Mutate(string(name), func(in Input) (Edit, bool) {
		in.Arg = arg
		return h(in)
	}), nil
}

// Mutate runs fn as one undoable step: capture the selection, apply, record
// history, restore the selection and notify the commit hook.
func (e *Executor) Mutate(label string, fn EditFunc) Result {
	before := e.doc.Content
	sel, focused := e.tracker.Selection()
	caret, _ := e.tracker.Caret(before)
	snap := e.tracker.Capture(before)

	var edit Edit
	changed := e.doc.Apply(func(c document.Content) document.Content {
		out, ok := fn(Input{Content: c, Selection: c.ClampRange(sel), Focused: focused, Caret: caret})
		if !ok {
			return c
		}
		edit = out
		return out.Content
	})
	if !changed {
		e.logger.Debug("command: no-op", slog.String("command", label))
		return e.result(false)
	}

	e.history.Record(Entry{Content: before, Selection: snap, Label: label})
	if edit.Selection != nil {
		e.tracker.Set(e.doc.Content, *edit.Selection)
	} else {
		e.restore(snap)
	}
	e.committed()
	return e.result(true)
}

func (e *Executor) undo() Result {
	cur := Entry{Content: e.doc.Content, Selection: e.tracker.Capture(e.doc.Content), Label: string(Undo)}
	prev, ok := e.history.Undo(cur)
	if !ok {
		return e.result(false)
	}
	return e.swap(prev)
}

func (e *Executor) redo() Result {
	cur := Entry{Content: e.doc.Content, Selection: e.tracker.Capture(e.doc.Content), Label: string(Redo)}
	next, ok := e.history.Redo(cur)
	if !ok {
		return e.result(false)
	}
	return e.swap(next)
}

func (e *Executor) swap(to Entry) Result {
	e.doc.Apply(func(document.Content) document.Content { return to.Content })
	e.restore(to.Selection)
	e.committed()
	return e.result(true)
}

func (e *Executor) restore(snap *selection.Snapshot) {
	if _, err := e.tracker.Restore(e.doc.Content, snap); err != nil {
		e.logger.Debug("command: selection restore fell back", slog.String("error", err.Error()))
	}
}

func (e *Executor) committed() {
	if e.onCommit != nil {
		e.onCommit(e.doc.Content)
	}
}

func (e *Executor) result(changed bool) Result {
	r, focused := e.tracker.Selection()
	return Result{Changed: changed, Selection: r, Focused: focused}
}
