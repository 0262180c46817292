// Package document holds the note's structured content model: an ordered
// sequence of blocks, each block an ordered sequence of styled inline runs or
// an embedded media/table node, plus the scalar metadata around it.
package document

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Kind is the block-type tag.
type Kind string

// Block kinds.
const (
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindQuote     Kind = "blockquote"
	KindCode      Kind = "code"
	KindImage     Kind = "image"
	KindTable     Kind = "table"
	KindRule      Kind = "rule"
)

// IsText reports whether blocks of this kind carry inline runs and can hold the caret.
func (k Kind) IsText() bool {
	switch k {
	case KindParagraph, KindHeading, KindQuote, KindCode:
		return true
	}
	return false
}

func (k Kind) valid() bool {
	return k.IsText() || k == KindImage || k == KindTable || k == KindRule
}

// Align is a block-level alignment attribute.
type Align string

// Alignments. AlignNone means "inherit" and is what new blocks get.
const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

func (a Align) valid() bool {
	switch a {
	case AlignNone, AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// ListKind marks a block as an item of a list container. Consecutive blocks
// with the same ListKind render as one list.
type ListKind string

// List kinds.
const (
	ListNone    ListKind = ""
	ListBullet  ListKind = "bullet"
	ListOrdered ListKind = "ordered"
)

func (l ListKind) valid() bool {
	switch l {
	case ListNone, ListBullet, ListOrdered:
		return true
	}
	return false
}

// MaxHeadingLevel is the deepest heading the editor produces.
const MaxHeadingLevel = 5

// Font sizes follow the 1..7 scale of the toolbar; sizePoints maps them to points.
const (
	MinFontSize = 1
	MaxFontSize = 7
)

var sizePoints = [...]int{0, 8, 10, 12, 14, 18, 24, 36}

// Inline names a boolean inline style attribute.
type Inline string

// Inline styles.
const (
	Bold      Inline = "bold"
	Italic    Inline = "italic"
	Underline Inline = "underline"
	Strike    Inline = "strikethrough"
)

// Style is the full set of inline attributes of a run. Style is comparable;
// adjacent runs with equal styles are merged on every commit.
type Style struct {
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Strike    bool   `json:"strike,omitempty"`
	Color     string `json:"color,omitempty"`
	Highlight string `json:"highlight,omitempty"`
	Font      string `json:"font,omitempty"`
	Size      int    `json:"size,omitempty"`
	Link      string `json:"link,omitempty"`
}

// Has reports whether the boolean attribute f is set.
func (s Style) Has(f Inline) bool {
	switch f {
	case Bold:
		return s.Bold
	case Italic:
		return s.Italic
	case Underline:
		return s.Underline
	case Strike:
		return s.Strike
	}
	return false
}

// With returns a copy of s with attribute f set to on.
func (s Style) With(f Inline, on bool) Style {
	switch f {
	case Bold:
		s.Bold = on
	case Italic:
		s.Italic = on
	case Underline:
		s.Underline = on
	case Strike:
		s.Strike = on
	}
	return s
}

// Run is a stretch of text sharing one style.
type Run struct {
	Text  string `json:"text"`
	Style Style  `json:"style,omitzero"`
}

// Image is an embedded, self-contained media node. Src is always a data URI.
type Image struct {
	Src    string `json:"src"`
	MIME   string `json:"mime"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Cell is one table cell.
type Cell struct {
	Runs []Run `json:"runs,omitempty"`
}

// Table is a rectangular grid of cells.
type Table struct {
	Rows [][]Cell `json:"rows"`
}

// Block is one node of the content tree. ID is the block's identity; it is
// kept across edits and serialization and is what selections anchor to.
type Block struct {
	ID    string   `json:"id"`
	Kind  Kind     `json:"kind"`
	Level int      `json:"level,omitempty"`
	Align Align    `json:"align,omitempty"`
	List  ListKind `json:"list,omitempty"`
	Runs  []Run    `json:"runs,omitempty"`
	Image *Image   `json:"image,omitempty"`
	Table *Table   `json:"table,omitempty"`
}

// Text returns the plain text of a text block.
func (b *Block) Text() string {
	if len(b.Runs) == 1 {
		return b.Runs[0].Text
	}
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Len is the length of the block's text in runes. Media blocks have length 0.
func (b *Block) Len() int {
	n := 0
	for _, r := range b.Runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

func (b *Block) clone() *Block {
	nb := *b
	nb.Runs = cloneRuns(b.Runs)
	if b.Image != nil {
		img := *b.Image
		nb.Image = &img
	}
	if b.Table != nil {
		t := &Table{Rows: make([][]Cell, len(b.Table.Rows))}
		for i, row := range b.Table.Rows {
			t.Rows[i] = make([]Cell, len(row))
			for j, cell := range row {
				t.Rows[i][j] = Cell{Runs: cloneRuns(cell.Runs)}
			}
		}
		nb.Table = t
	}
	return &nb
}

func cloneRuns(runs []Run) []Run {
	if len(runs) == 0 {
		return nil
	}
	out := make([]Run, len(runs))
	copy(out, runs)
	return out
}

func newID() string {
	return uuid.NewString()
}

// NewParagraph returns a paragraph block with a fresh identity.
func NewParagraph(runs ...Run) *Block {
	return NewBlock(KindParagraph, runs...)
}

// NewBlock returns a text block of kind with a fresh identity.
func NewBlock(kind Kind, runs ...Run) *Block {
	return &Block{ID: newID(), Kind: kind, Runs: cloneRuns(runs)}
}

// NewImage returns an image block embedding src (a data URI).
func NewImage(src, mime, alt string) *Block {
	return &Block{ID: newID(), Kind: KindImage, Image: &Image{Src: src, MIME: mime, Alt: alt}}
}

// NewTable returns a table skeleton of empty cells.
func NewTable(rows, cols int) *Block {
	t := &Table{Rows: make([][]Cell, rows)}
	for i := range t.Rows {
		t.Rows[i] = make([]Cell, cols)
	}
	return &Block{ID: newID(), Kind: KindTable, Table: t}
}

// NewRule returns a horizontal rule block.
func NewRule() *Block {
	return &Block{ID: newID(), Kind: KindRule}
}

// FontSizePoints maps a 1..7 toolbar size to points; 0 for out-of-range sizes.
func FontSizePoints(size int) int {
	if size < MinFontSize || size > MaxFontSize {
		return 0
	}
	return sizePoints[size]
}

// FontSizeFromPoints returns the toolbar size closest to pt.
func FontSizeFromPoints(pt int) int {
	best, bestDiff := 0, 0
	for size := MinFontSize; size <= MaxFontSize; size++ {
		d := sizePoints[size] - pt
		if d < 0 {
			d = -d
		}
		if best == 0 || d < bestDiff {
			best, bestDiff = size, d
		}
	}
	return best
}
