package document

import (
	"reflect"
	"strings"
	"unicode/utf8"
)

// Point addresses a caret position: a block index and a rune offset into the
// block's text. Media blocks only have offset 0.
type Point struct {
	Block  int `json:"block"`
	Offset int `json:"offset"`
}

// Before reports whether p sorts before q in document order.
func (p Point) Before(q Point) bool {
	if p.Block != q.Block {
		return p.Block < q.Block
	}
	return p.Offset < q.Offset
}

// Range is a selection from Anchor (where it started) to Focus (where the
// caret is). Anchor may sort after Focus.
type Range struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// Caret returns a collapsed range at p.
func Caret(p Point) Range {
	return Range{Anchor: p, Focus: p}
}

// Collapsed reports whether the range is a bare caret.
func (r Range) Collapsed() bool {
	return r.Anchor == r.Focus
}

// Start is the earlier endpoint.
func (r Range) Start() Point {
	if r.Focus.Before(r.Anchor) {
		return r.Focus
	}
	return r.Anchor
}

// End is the later endpoint.
func (r Range) End() Point {
	if r.Focus.Before(r.Anchor) {
		return r.Anchor
	}
	return r.Focus
}

// Content is the ordered sequence of top-level blocks. A committed Content is
// never mutated; edits produce a new Content.
type Content []*Block

// Clone returns a deep copy.
func (c Content) Clone() Content {
	out := make(Content, len(c))
	for i, b := range c {
		out[i] = b.clone()
	}
	return out
}

// Index returns the position of the block with the given ID, or -1.
func (c Content) Index(id string) int {
	for i, b := range c {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Clamp moves p to the nearest valid position.
func (c Content) Clamp(p Point) Point {
	if len(c) == 0 {
		return Point{}
	}
	if p.Block < 0 {
		return Point{}
	}
	if p.Block >= len(c) {
		return c.End()
	}
	n := c[p.Block].Len()
	p.Offset = max(0, min(p.Offset, n))
	return p
}

// ClampRange clamps both endpoints.
func (c Content) ClampRange(r Range) Range {
	return Range{Anchor: c.Clamp(r.Anchor), Focus: c.Clamp(r.Focus)}
}

// End is the position after the last character of the document.
func (c Content) End() Point {
	if len(c) == 0 {
		return Point{}
	}
	last := len(c) - 1
	return Point{Block: last, Offset: c[last].Len()}
}

// All returns the range covering the whole document.
func (c Content) All() Range {
	return Range{Anchor: Point{}, Focus: c.End()}
}

// PlainText flattens the content: blocks separated by newlines, table cells
// by tabs and table rows by newlines. Media contributes no text.
func (c Content) PlainText() string {
	var sb strings.Builder
	for i, b := range c {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch {
		case b.Kind.IsText():
			for _, r := range b.Runs {
				sb.WriteString(r.Text)
			}
		case b.Kind == KindTable && b.Table != nil:
			for ri, row := range b.Table.Rows {
				if ri > 0 {
					sb.WriteByte('\n')
				}
				for ci, cell := range row {
					if ci > 0 {
						sb.WriteByte('\t')
					}
					for _, r := range cell.Runs {
						sb.WriteString(r.Text)
					}
				}
			}
		}
	}
	return sb.String()
}

// Find returns the range of the first occurrence of s within one block's
// text. Matches never span blocks.
func (c Content) Find(s string) (Range, bool) {
	if s == "" {
		return Range{}, false
	}
	for i, b := range c {
		text := b.Text()
		j := strings.Index(text, s)
		if j < 0 {
			continue
		}
		start := utf8.RuneCountInString(text[:j])
		return Range{
			Anchor: Point{Block: i, Offset: start},
			Focus:  Point{Block: i, Offset: start + utf8.RuneCountInString(s)},
		}, true
	}
	return Range{}, false
}

// IsEmpty reports whether the content has no text and no media.
func (c Content) IsEmpty() bool {
	for _, b := range c {
		switch b.Kind {
		case KindImage, KindTable, KindRule:
			return false
		}
		for _, r := range b.Runs {
			if strings.TrimSpace(r.Text) != "" {
				return false
			}
		}
	}
	return true
}

// Equal reports whether a and b hold the same blocks, identities included.
func Equal(a, b Content) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize returns a canonical copy: empty runs dropped, adjacent runs of
// equal style merged, empty slices nil, Level only on headings.
func normalize(c Content) Content {
	if len(c) == 0 {
		return Content{NewParagraph()}
	}
	out := make(Content, len(c))
	for i, b := range c {
		nb := b.clone()
		nb.Runs = normalizeRuns(nb.Runs)
		if nb.Kind != KindHeading {
			nb.Level = 0
		}
		if nb.Table != nil {
			for _, row := range nb.Table.Rows {
				for j := range row {
					row[j].Runs = normalizeRuns(row[j].Runs)
				}
			}
		}
		out[i] = nb
	}
	return out
}

func normalizeRuns(runs []Run) []Run {
	var out []Run
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == r.Style {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}
