package document

import (
	"strings"
	"unicode/utf8"
)

// The functions in this file are pure: they never modify their input and
// return a new Content (and, where the caret moves, its new position).

// Selected returns the runs covered by r, split at the range boundaries.
func Selected(c Content, r Range) []Run {
	r = c.ClampRange(r)
	var out []Run
	eachSpan(c, r, func(b *Block, from, to int) {
		_, mid, _ := split3(b.Runs, from, to)
		out = append(out, mid...)
	})
	return out
}

// MapRuns rewrites the style of every run inside r.
func MapRuns(c Content, r Range, fn func(Style) Style) Content {
	out := c.Clone()
	r = out.ClampRange(r)
	eachSpan(out, r, func(b *Block, from, to int) {
		before, mid, after := split3(b.Runs, from, to)
		for i := range mid {
			mid[i].Style = fn(mid[i].Style)
		}
		b.Runs = concatRuns(before, mid, after)
	})
	return out
}

// ToggleStyle flips f on every run in r, so applying it twice to the same
// range restores c. A range covering no text leaves c unchanged.
func ToggleStyle(c Content, r Range, f Inline) Content {
	if len(Selected(c, r)) == 0 {
		return c
	}
	return MapRuns(c, r, func(s Style) Style { return s.With(f, !s.Has(f)) })
}

// SetBlockKind changes the kind of every text block touched by r.
func SetBlockKind(c Content, r Range, kind Kind, level int) Content {
	if !kind.IsText() {
		return c
	}
	if kind != KindHeading {
		level = 0
	}
	out := c.Clone()
	eachBlock(out, out.ClampRange(r), func(b *Block) {
		if b.Kind.IsText() {
			b.Kind, b.Level = kind, level
		}
	})
	return out
}

// ToggleList flips every text block touched by r between list kind l and
// no list. Applying it twice to the same range restores c.
func ToggleList(c Content, r Range, l ListKind) Content {
	r = c.ClampRange(r)
	touched := false
	eachBlock(c, r, func(b *Block) {
		touched = touched || b.Kind.IsText()
	})
	if !touched {
		return c
	}
	out := c.Clone()
	eachBlock(out, r, func(b *Block) {
		if !b.Kind.IsText() {
			return
		}
		if b.List == l {
			b.List = ListNone
		} else {
			b.List = l
		}
	})
	return out
}

// SetAlign aligns every block touched by r.
func SetAlign(c Content, r Range, a Align) Content {
	out := c.Clone()
	eachBlock(out, out.ClampRange(r), func(b *Block) {
		if b.Kind != KindRule {
			b.Align = a
		}
	})
	return out
}

// LinkRange turns the text in r into a link to url. On a collapsed range the
// url itself is inserted as the link text and the caret moves past it.
func LinkRange(c Content, r Range, url string) (Content, Range) {
	if url == "" {
		return c, r
	}
	r = c.ClampRange(r)
	if !r.Collapsed() {
		return MapRuns(c, r, func(s Style) Style {
			s.Link = url
			return s
		}), r
	}
	st := styleAt(c, r.Focus)
	st.Link = url
	out, p := InsertRuns(c, r.Focus, []Run{{Text: url, Style: st}})
	return out, Caret(p)
}

// InsertRuns inserts runs at p. Inserting into a media block places the
// runs in a new paragraph after it.
func InsertRuns(c Content, p Point, runs []Run) (Content, Point) {
	if runeCount(runs) == 0 {
		return c, c.Clamp(p)
	}
	out := c.Clone()
	p = out.Clamp(p)
	b := out[p.Block]
	if !b.Kind.IsText() {
		b = NewParagraph()
		out = insertBlocks(out, p.Block+1, b)
		p = Point{Block: p.Block + 1}
	}
	before, after := splitRuns(b.Runs, p.Offset)
	b.Runs = concatRuns(before, cloneRuns(runs), after)
	return out, Point{Block: p.Block, Offset: p.Offset + runeCount(runs)}
}

// InsertText types text at p with the style of the character before the
// caret. Newlines split the block.
func InsertText(c Content, p Point, text string) (Content, Point) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return c, c.Clamp(p)
	}
	st := styleAt(c, p)
	out, p := c, c.Clamp(p)
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out, p = SplitBlock(out, p)
		}
		if line != "" {
			out, p = InsertRuns(out, p, []Run{{Text: line, Style: st}})
		}
	}
	return out, p
}

// SplitBlock splits the text block at p in two. The first half keeps the
// block's identity; splitting at the end of a heading starts a paragraph.
func SplitBlock(c Content, p Point) (Content, Point) {
	out := c.Clone()
	p = out.Clamp(p)
	b := out[p.Block]
	if !b.Kind.IsText() {
		out = insertBlocks(out, p.Block+1, NewParagraph())
		return out, Point{Block: p.Block + 1}
	}
	left, right := splitRuns(b.Runs, p.Offset)
	nb := &Block{ID: newID(), Kind: b.Kind, Level: b.Level, Align: b.Align, List: b.List, Runs: right}
	if b.Kind == KindHeading && len(right) == 0 {
		nb.Kind, nb.Level = KindParagraph, 0
	}
	b.Runs = left
	out = insertBlocks(out, p.Block+1, nb)
	return out, Point{Block: p.Block + 1}
}

// DeleteRange removes everything between the endpoints of r. Media blocks
// touched by a multi-block range are removed whole; the start block absorbs
// what is left of the end block.
func DeleteRange(c Content, r Range) (Content, Point) {
	r = c.ClampRange(r)
	start, end := r.Start(), r.End()
	if start == end {
		return c, start
	}
	out := c.Clone()
	sb, eb := out[start.Block], out[end.Block]
	if start.Block == end.Block {
		before, _, after := split3(sb.Runs, start.Offset, end.Offset)
		sb.Runs = concatRuns(before, after)
		return out, start
	}
	var tail []Run
	if eb.Kind.IsText() {
		_, tail = splitRuns(eb.Runs, end.Offset)
	}
	if sb.Kind.IsText() {
		head, _ := splitRuns(sb.Runs, start.Offset)
		sb.Runs = concatRuns(head, tail)
		return removeBlocks(out, start.Block+1, end.Block+1), start
	}
	if eb.Kind.IsText() {
		eb.Runs = tail
		return removeBlocks(out, start.Block, end.Block), Point{Block: start.Block}
	}
	out = removeBlocks(out, start.Block, end.Block+1)
	if len(out) == 0 {
		return Content{NewParagraph()}, Point{}
	}
	return out, out.Clamp(Point{Block: start.Block})
}

// DeleteBackward is a backspace at p: it deletes the previous character,
// merges the block into the previous one at offset 0, or removes a media
// block.
func DeleteBackward(c Content, p Point) (Content, Point) {
	p = c.Clamp(p)
	if len(c) == 0 {
		return c, p
	}
	cur := c[p.Block]
	if !cur.Kind.IsText() {
		out := removeBlocks(c.Clone(), p.Block, p.Block+1)
		if len(out) == 0 {
			return Content{NewParagraph()}, Point{}
		}
		if p.Block > 0 {
			return out, out.Clamp(Point{Block: p.Block - 1, Offset: out[p.Block-1].Len()})
		}
		return out, Point{}
	}
	if p.Offset > 0 {
		return DeleteRange(c, Range{Anchor: Point{Block: p.Block, Offset: p.Offset - 1}, Focus: p})
	}
	if p.Block == 0 {
		if cur.List != ListNone {
			out := c.Clone()
			out[0].List = ListNone
			return out, p
		}
		return c, p
	}
	prev := c[p.Block-1]
	if prev.Kind.IsText() {
		return DeleteRange(c, Range{Anchor: Point{Block: p.Block - 1, Offset: prev.Len()}, Focus: p})
	}
	out := removeBlocks(c.Clone(), p.Block-1, p.Block)
	return out, Point{Block: p.Block - 1}
}

// InsertBlocks inserts whole blocks at p. A caret in the middle of a text
// block splits it; the returned caret is at the start of the block after the
// inserted ones, and an empty paragraph is added when there is none.
func InsertBlocks(c Content, p Point, blocks ...*Block) (Content, Point) {
	if len(blocks) == 0 {
		return c, c.Clamp(p)
	}
	out := c.Clone()
	p = out.Clamp(p)
	ins := make([]*Block, len(blocks))
	for i, b := range blocks {
		ins[i] = b.clone()
	}
	var at int
	if len(out) == 0 {
		at = 0
	} else {
		b := out[p.Block]
		switch {
		case !b.Kind.IsText():
			at = p.Block + 1
		case p.Offset == 0:
			at = p.Block
		case p.Offset >= b.Len():
			at = p.Block + 1
		default:
			left, right := splitRuns(b.Runs, p.Offset)
			b.Runs = left
			out = insertBlocks(out, p.Block+1, &Block{ID: newID(), Kind: b.Kind, Level: b.Level, Align: b.Align, List: b.List, Runs: right})
			at = p.Block + 1
		}
	}
	out = insertBlocks(out, at, ins...)
	next := at + len(ins)
	if next >= len(out) || !out[next].Kind.IsText() {
		out = insertBlocks(out, next, NewParagraph())
	}
	return out, Point{Block: next}
}

func styleAt(c Content, p Point) Style {
	p = c.Clamp(p)
	if len(c) == 0 || !c[p.Block].Kind.IsText() {
		return Style{}
	}
	runs := c[p.Block].Runs
	if len(runs) == 0 {
		return Style{}
	}
	var st Style
	if p.Offset == 0 {
		st = runs[0].Style
	} else {
		left, _ := splitRuns(runs, p.Offset)
		st = left[len(left)-1].Style
	}
	st.Link = ""
	return st
}

// eachBlock calls fn for every block between r's endpoints, inclusive.
func eachBlock(c Content, r Range, fn func(*Block)) {
	if len(c) == 0 {
		return
	}
	for i := r.Start().Block; i <= r.End().Block; i++ {
		fn(c[i])
	}
}

// eachSpan calls fn with the rune span of every text block that r covers.
func eachSpan(c Content, r Range, fn func(b *Block, from, to int)) {
	if len(c) == 0 || r.Collapsed() {
		return
	}
	start, end := r.Start(), r.End()
	for i := start.Block; i <= end.Block; i++ {
		b := c[i]
		if !b.Kind.IsText() {
			continue
		}
		from, to := 0, b.Len()
		if i == start.Block {
			from = start.Offset
		}
		if i == end.Block {
			to = end.Offset
		}
		if from < to {
			fn(b, from, to)
		}
	}
}

// splitRuns splits runs at rune offset off into two fresh slices.
func splitRuns(runs []Run, off int) (left, right []Run) {
	pos := 0
	for i, r := range runs {
		n := utf8.RuneCountInString(r.Text)
		if off <= pos {
			return cloneRuns(runs[:i]), cloneRuns(runs[i:])
		}
		if off < pos+n {
			rs := []rune(r.Text)
			k := off - pos
			left = append(cloneRuns(runs[:i]), Run{Text: string(rs[:k]), Style: r.Style})
			right = append([]Run{{Text: string(rs[k:]), Style: r.Style}}, runs[i+1:]...)
			return left, right
		}
		pos += n
	}
	return cloneRuns(runs), nil
}

func split3(runs []Run, from, to int) (before, mid, after []Run) {
	before, rest := splitRuns(runs, from)
	mid, after = splitRuns(rest, to-from)
	return before, mid, after
}

func concatRuns(parts ...[]Run) []Run {
	var out []Run
	for _, p := range parts {
		out = append(out, p...)
	}
	return normalizeRuns(out)
}

func runeCount(runs []Run) int {
	n := 0
	for _, r := range runs {
		n += utf8.RuneCountInString(r.Text)
	}
	return n
}

func insertBlocks(c Content, i int, bs ...*Block) Content {
	out := make(Content, 0, len(c)+len(bs))
	out = append(out, c[:i]...)
	out = append(out, bs...)
	return append(out, c[i:]...)
}

func removeBlocks(c Content, from, to int) Content {
	out := make(Content, 0, len(c)-(to-from))
	out = append(out, c[:from]...)
	return append(out, c[to:]...)
}
