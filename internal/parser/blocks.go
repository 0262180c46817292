package parser

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"

	"github.com/starford/scriptor/internal/document"
)

// builder walks a goldmark AST and appends document blocks.
type builder struct {
	src []byte
	out document.Content
}

// piece is one inline result: a styled run, an embedded image that has to
// become its own block, or a hard line break.
type piece struct {
	run   document.Run
	block *document.Block
	brk   bool
}

func (b *builder) blocks(parent ast.Node, kind document.Kind, list document.ListKind) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.textBlock(node, document.KindHeading, min(node.Level, document.MaxHeadingLevel), list)
		case *ast.Paragraph, *ast.TextBlock:
			b.textBlock(node, kind, 0, list)
		case *ast.Blockquote:
			b.blocks(node, document.KindQuote, list)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			blk := document.NewBlock(document.KindCode, document.Run{Text: b.lines(node)})
			blk.List = list
			b.out = append(b.out, blk)
		case *ast.List:
			l := document.ListBullet
			if node.IsOrdered() {
				l = document.ListOrdered
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				b.blocks(item, kind, l)
			}
		case *ast.ThematicBreak:
			b.out = append(b.out, document.NewRule())
		case *ast.HTMLBlock:
			blocks, err := document.FromHTML(strings.NewReader(b.lines(node)))
			if err == nil && !blocks.IsEmpty() {
				b.out = append(b.out, blocks...)
			}
		case *east.Table:
			b.table(node)
		}
	}
}

func (b *builder) textBlock(n ast.Node, kind document.Kind, level int, list document.ListKind) {
	var runs []document.Run
	flush := func(force bool) {
		if len(runs) == 0 && !force {
			return
		}
		blk := document.NewBlock(kind, runs...)
		blk.Level = level
		blk.List = list
		b.out = append(b.out, blk)
		runs = nil
	}
	for _, p := range b.inline(n, document.Style{}, nil) {
		switch {
		case p.block != nil:
			flush(false)
			b.out = append(b.out, p.block)
		case p.brk:
			flush(true)
		default:
			runs = append(runs, p.run)
		}
	}
	flush(false)
}

func (b *builder) table(t *east.Table) {
	var rows [][]document.Cell
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var row []document.Cell
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			var cell document.Cell
			for _, p := range b.inline(c, document.Style{}, nil) {
				switch {
				case p.block != nil:
					cell.Runs = append(cell.Runs, document.Run{Text: p.block.Image.Alt})
				case p.brk:
					cell.Runs = append(cell.Runs, document.Run{Text: " "})
				default:
					cell.Runs = append(cell.Runs, p.run)
				}
			}
			row = append(row, cell)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], document.Cell{})
		}
	}
	blk := document.NewTable(len(rows), width)
	blk.Table.Rows = rows
	b.out = append(b.out, blk)
}

func (b *builder) inline(parent ast.Node, st document.Style, out []piece) []piece {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			out = appendText(out, string(node.Value(b.src)), st)
			switch {
			case node.HardLineBreak():
				out = append(out, piece{brk: true})
			case node.SoftLineBreak():
				out = appendText(out, " ", st)
			}
		case *ast.String:
			out = appendText(out, string(node.Value), st)
		case *ast.Emphasis:
			next := st
			if node.Level >= 2 {
				next.Bold = true
			} else {
				next.Italic = true
			}
			out = b.inline(node, next, out)
		case *east.Strikethrough:
			next := st
			next.Strike = true
			out = b.inline(node, next, out)
		case *ast.CodeSpan:
			next := st
			next.Font = "monospace"
			out = b.inline(node, next, out)
		case *ast.Link:
			next := st
			next.Link = string(node.Destination)
			out = b.inline(node, next, out)
		case *ast.AutoLink:
			next := st
			next.Link = string(node.URL(b.src))
			out = appendText(out, string(node.Label(b.src)), next)
		case *ast.Image:
			alt := plain(b.inline(node, document.Style{}, nil))
			dest := string(node.Destination)
			if mt, ok := document.ImageMIME(dest); ok {
				out = append(out, piece{block: document.NewImage(dest, mt, alt)})
				continue
			}
			// Remote images are not embedded on import; keep the alt text.
			out = appendText(out, alt, st)
		case *east.TaskCheckBox:
			mark := "[ ] "
			if node.IsChecked {
				mark = "[x] "
			}
			out = appendText(out, mark, st)
		default:
			out = b.inline(node, st, out)
		}
	}
	return out
}

// lines joins the raw source lines of a code or HTML block.
func (b *builder) lines(n ast.Node) string {
	var sb strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(b.src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func appendText(out []piece, s string, st document.Style) []piece {
	if s == "" {
		return out
	}
	return append(out, piece{run: document.Run{Text: s, Style: st}})
}

func plain(ps []piece) string {
	var sb strings.Builder
	for _, p := range ps {
		sb.WriteString(p.run.Text)
	}
	return sb.String()
}
