// Package ingest turns pasted or dropped external content (images, HTML,
// plain text) into content insertions at the caret.
package ingest

import (
	"log/slog"
	"strings"

	"github.com/starford/scriptor/internal/command"
	"github.com/starford/scriptor/internal/document"
)

// DefaultMaxBytes caps embedded images when nothing is configured.
const DefaultMaxBytes = 10 << 20

// Mutator commits one undoable edit. *command.Executor implements it.
type Mutator interface {
	Mutate(label string, fn command.EditFunc) command.Result
}

// Ingestor inserts external content through a Mutator, so every insertion
// is an ordinary undoable edit.
type Ingestor struct {
	exec     Mutator
	maxBytes int64
	logger   *slog.Logger
}

// New returns an Ingestor. maxBytes <= 0 selects DefaultMaxBytes.
func New(exec Mutator, maxBytes int64, logger *slog.Logger) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{exec: exec, maxBytes: maxBytes, logger: logger}
}

// MaxBytes is the configured image size cap.
func (in *Ingestor) MaxBytes() int64 {
	return in.maxBytes
}

// Image embeds data as an image block at the caret (or the end of the
// document when no caret is known). A payload that is not an accepted image
// is rejected with *UnsupportedMediaError and nothing changes.
func (in *Ingestor) Image(data []byte, mimeType, alt string) (command.Result, error) {
	if int64(len(data)) > in.maxBytes {
		err := &TooLargeError{Size: int64(len(data)), Limit: in.maxBytes}
		in.logger.Warn("ingest: image rejected", slog.String("error", err.Error()))
		return command.Result{}, err
	}
	mt, err := Sniff(data, mimeType)
	if err != nil {
		in.logger.Warn("ingest: image rejected", slog.String("mime", mimeType), slog.String("error", err.Error()))
		return command.Result{}, err
	}
	block := document.NewImage(EncodeDataURI(data, mt), mt, strings.TrimSpace(alt))
	res := in.exec.Mutate("image", func(ci command.Input) (command.Edit, bool) {
		return command.Insert(ci, block)
	})
	in.logger.Debug("ingest: image inserted", slog.String("mime", mt), slog.Int("bytes", len(data)))
	return res, nil
}

// DataURI decodes a pasted data: URI and embeds it via Image.
func (in *Ingestor) DataURI(uri, alt string) (command.Result, error) {
	data, mt, err := DecodeDataURI(uri)
	if err != nil {
		in.logger.Warn("ingest: data uri rejected", slog.String("error", err.Error()))
		return command.Result{}, &UnsupportedMediaError{MIME: mt, Reason: err.Error()}
	}
	return in.Image(data, mt, alt)
}

// HTML pastes an HTML fragment at the caret, replacing a non-empty
// selection. A fragment of a single plain paragraph is merged inline.
func (in *Ingestor) HTML(fragment string) (command.Result, error) {
	blocks, err := document.FromHTML(strings.NewReader(fragment))
	if err != nil {
		return command.Result{}, err
	}
	if blocks.IsEmpty() {
		return in.exec.Mutate("paste", func(command.Input) (command.Edit, bool) { return command.Edit{}, false }), nil
	}
	return in.exec.Mutate("paste", func(ci command.Input) (command.Edit, bool) {
		ci = replaceSelection(ci)
		if len(blocks) == 1 && inlineOnly(blocks[0]) {
			out, p := document.InsertRuns(ci.Content, ci.Caret, blocks[0].Runs)
			r := document.Caret(p)
			return command.Edit{Content: out, Selection: &r}, true
		}
		return command.Insert(ci, blocks...)
	}), nil
}

// Text pastes plain text at the caret, replacing a non-empty selection.
func (in *Ingestor) Text(s string) command.Result {
	return in.exec.Mutate("paste", func(ci command.Input) (command.Edit, bool) {
		if s == "" {
			return command.Edit{}, false
		}
		ci = replaceSelection(ci)
		out, p := document.InsertText(ci.Content, ci.Caret, s)
		r := document.Caret(p)
		return command.Edit{Content: out, Selection: &r}, true
	})
}

// replaceSelection deletes a focused, non-empty selection and moves the
// caret to where it was.
func replaceSelection(ci command.Input) command.Input {
	if !ci.Focused || ci.Selection.Collapsed() {
		return ci
	}
	out, p := document.DeleteRange(ci.Content, ci.Selection)
	ci.Content = out
	ci.Selection = document.Caret(p)
	ci.Caret = p
	return ci
}

func inlineOnly(b *document.Block) bool {
	return b.Kind == document.KindParagraph && b.List == document.ListNone && b.Align == document.AlignNone
}
