package document

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var fragmentContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// FromHTML converts an HTML fragment (pasted markup, legacy note bodies) into
// content. Unknown elements are unwrapped; images are kept only when their
// source is an embedded data URI.
func FromHTML(r io.Reader) (Content, error) {
	nodes, err := html.ParseFragment(r, fragmentContext)
	if err != nil {
		return nil, &ParseError{Reason: "invalid html", Err: err}
	}
	hr := &htmlReader{}
	for _, n := range nodes {
		hr.walk(n, Style{})
	}
	hr.flush()
	return normalize(hr.out), nil
}

type htmlReader struct {
	out   Content
	cur   *Block
	list  ListKind
	quote bool
	pre   bool
	align Align
}

func (h *htmlReader) open(kind Kind, level int) {
	if h.cur != nil && len(h.cur.Runs) > 0 {
		h.flush()
	}
	if h.quote && kind == KindParagraph {
		kind = KindQuote
	}
	h.cur = &Block{ID: newID(), Kind: kind, Level: level, List: h.list, Align: h.align}
}

func (h *htmlReader) flush() {
	if h.cur != nil {
		h.out = append(h.out, h.cur)
		h.cur = nil
	}
}

func (h *htmlReader) add(b *Block) {
	h.flush()
	h.out = append(h.out, b)
}

func (h *htmlReader) text(s string, st Style) {
	if !h.pre {
		s = collapseSpace(s)
	}
	if h.cur == nil {
		if strings.TrimSpace(s) == "" {
			return
		}
		h.open(KindParagraph, 0)
		if !h.pre {
			s = strings.TrimLeft(s, " ")
		}
	}
	h.cur.Runs = append(h.cur.Runs, Run{Text: s, Style: st})
}

func (h *htmlReader) children(n *html.Node, st Style) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		h.walk(c, st)
	}
}

func (h *htmlReader) block(n *html.Node, st Style, kind Kind, level int) {
	prev := h.align
	if a := alignOf(n); a != AlignNone {
		h.align = a
	}
	h.open(kind, level)
	h.children(n, st)
	h.flush()
	h.align = prev
}

func (h *htmlReader) walk(n *html.Node, st Style) {
	switch n.Type {
	case html.TextNode:
		h.text(n.Data, st)
		return
	case html.ElementNode:
	case html.DocumentNode:
		h.children(n, st)
		return
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Title, atom.Template:
	case atom.P, atom.Div:
		h.block(n, st, KindParagraph, 0)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		h.block(n, st, KindHeading, min(int(n.Data[1]-'0'), MaxHeadingLevel))
	case atom.Pre:
		h.pre = true
		h.block(n, st, KindCode, 0)
		h.pre = false
	case atom.Blockquote:
		h.flush()
		h.quote = true
		h.children(n, st)
		h.flush()
		h.quote = false
	case atom.Ul, atom.Ol:
		h.flush()
		prev := h.list
		h.list = ListBullet
		if n.DataAtom == atom.Ol {
			h.list = ListOrdered
		}
		h.children(n, st)
		h.flush()
		h.list = prev
	case atom.Li:
		h.block(n, st, KindParagraph, 0)
	case atom.Br:
		if h.pre {
			h.text("\n", st)
		} else if h.cur != nil {
			kind, level := h.cur.Kind, h.cur.Level
			h.flush()
			h.open(kind, level)
		}
	case atom.Hr:
		h.add(NewRule())
	case atom.Img:
		src := attr(n, "src")
		if mime, ok := ImageMIME(src); ok {
			h.add(NewImage(src, mime, attr(n, "alt")))
		}
	case atom.Table:
		if t := readTable(n); t != nil {
			h.add(t)
		}
	case atom.B, atom.Strong:
		st.Bold = true
		h.children(n, st)
	case atom.I, atom.Em:
		st.Italic = true
		h.children(n, st)
	case atom.U, atom.Ins:
		st.Underline = true
		h.children(n, st)
	case atom.S, atom.Strike, atom.Del:
		st.Strike = true
		h.children(n, st)
	case atom.A:
		if href := attr(n, "href"); href != "" {
			st.Link = href
		}
		h.children(n, st)
	case atom.Code, atom.Kbd, atom.Samp:
		if !h.pre {
			st.Font = "monospace"
		}
		h.children(n, st)
	case atom.Span, atom.Font, atom.Mark:
		if n.DataAtom == atom.Mark && st.Highlight == "" {
			st.Highlight = "yellow"
		}
		h.children(n, styleFromAttrs(n, st))
	default:
		h.children(n, st)
	}
}

func readTable(n *html.Node) *Block {
	var rows [][]Cell
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.DataAtom {
			case atom.Tr:
				var row []Cell
				for td := c.FirstChild; td != nil; td = td.NextSibling {
					if td.DataAtom == atom.Td || td.DataAtom == atom.Th {
						row = append(row, Cell{Runs: inlineRuns(td)})
					}
				}
				rows = append(rows, row)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				visit(c)
			}
		}
	}
	visit(n)
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if len(rows) == 0 || cols == 0 {
		return nil
	}
	for i, row := range rows {
		for len(row) < cols {
			row = append(row, Cell{})
		}
		rows[i] = row
	}
	return &Block{ID: newID(), Kind: KindTable, Table: &Table{Rows: rows}}
}

// inlineRuns flattens an element's content into runs, joining blocks with spaces.
func inlineRuns(n *html.Node) []Run {
	sub := &htmlReader{}
	sub.children(n, Style{})
	sub.flush()
	var runs []Run
	for i, b := range sub.out {
		if i > 0 && len(runs) > 0 {
			runs = append(runs, Run{Text: " "})
		}
		runs = append(runs, b.Runs...)
	}
	return normalizeRuns(runs)
}

func styleFromAttrs(n *html.Node, st Style) Style {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "color":
			st.Color = a.Val
		case "face":
			st.Font = a.Val
		case "size":
			if v, err := strconv.Atoi(a.Val); err == nil && FontSizePoints(v) != 0 {
				st.Size = v
			}
		case "style":
			for prop, val := range cssDecls(a.Val) {
				switch prop {
				case "color":
					st.Color = val
				case "background-color", "background":
					st.Highlight = val
				case "font-family":
					st.Font = strings.Trim(val, `"'`)
				case "font-size":
					if pt, err := strconv.Atoi(strings.TrimSuffix(val, "pt")); err == nil {
						st.Size = FontSizeFromPoints(pt)
					}
				case "font-weight":
					if w, err := strconv.Atoi(val); val == "bold" || val == "bolder" || (err == nil && w >= 600) {
						st.Bold = true
					}
				case "font-style":
					st.Italic = val == "italic" || val == "oblique"
				case "text-decoration", "text-decoration-line":
					if strings.Contains(val, "underline") {
						st.Underline = true
					}
					if strings.Contains(val, "line-through") {
						st.Strike = true
					}
				}
			}
		}
	}
	return st
}

func cssDecls(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(prop))] = strings.TrimSpace(val)
	}
	return out
}

func alignOf(n *html.Node) Align {
	v := attr(n, "align")
	if v == "" {
		v = cssDecls(attr(n, "style"))["text-align"]
	}
	switch Align(strings.ToLower(v)) {
	case AlignLeft:
		return AlignLeft
	case AlignCenter:
		return AlignCenter
	case AlignRight:
		return AlignRight
	}
	return AlignNone
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// ImageMIME returns the media type of an image data URI.
func ImageMIME(src string) (string, bool) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return "", false
	}
	meta, _, ok := strings.Cut(rest, ",")
	if !ok {
		return "", false
	}
	mime, _, _ := strings.Cut(meta, ";")
	if !strings.HasPrefix(mime, "image/") {
		return "", false
	}
	return mime, true
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				sb.WriteByte(' ')
			}
			space = true
		default:
			sb.WriteRune(r)
			space = false
		}
	}
	return sb.String()
}

// RenderHTML renders content as an HTML fragment. Consecutive list items are
// grouped into one <ul> or <ol>.
func RenderHTML(c Content) (string, error) {
	var nodes []*html.Node
	var list *html.Node
	var listKind ListKind
	for _, b := range c {
		if b.List == ListNone || !b.Kind.IsText() {
			list = nil
			nodes = append(nodes, blockNode(b))
			continue
		}
		if list == nil || listKind != b.List {
			list = element(atom.Ul)
			if b.List == ListOrdered {
				list = element(atom.Ol)
			}
			listKind = b.List
			nodes = append(nodes, list)
		}
		li := element(atom.Li)
		if b.Kind == KindParagraph {
			setAlign(li, b.Align)
			appendRuns(li, b.Runs)
		} else {
			li.AppendChild(blockNode(b))
		}
		list.AppendChild(li)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("document: render html: %w", err)
		}
	}
	return buf.String(), nil
}

func blockNode(b *Block) *html.Node {
	var n *html.Node
	switch b.Kind {
	case KindHeading:
		n = element(headingAtoms[max(1, min(b.Level, MaxHeadingLevel))])
	case KindQuote:
		n = element(atom.Blockquote)
	case KindCode:
		n = element(atom.Pre)
	case KindImage:
		n = element(atom.Img, "src", b.Image.Src, "alt", b.Image.Alt, "style", "max-width:100%;height:auto")
		if b.Image.Width > 0 {
			n.Attr = append(n.Attr, html.Attribute{Key: "width", Val: strconv.Itoa(b.Image.Width)})
		}
		if b.Image.Height > 0 {
			n.Attr = append(n.Attr, html.Attribute{Key: "height", Val: strconv.Itoa(b.Image.Height)})
		}
	case KindRule:
		return element(atom.Hr)
	case KindTable:
		n = element(atom.Table)
		body := element(atom.Tbody)
		for _, row := range b.Table.Rows {
			tr := element(atom.Tr)
			for _, cell := range row {
				td := element(atom.Td)
				appendRuns(td, cell.Runs)
				tr.AppendChild(td)
			}
			body.AppendChild(tr)
		}
		n.AppendChild(body)
		return n
	default:
		n = element(atom.P)
	}
	setAlign(n, b.Align)
	appendRuns(n, b.Runs)
	return n
}

var headingAtoms = [...]atom.Atom{0, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5}

func appendRuns(parent *html.Node, runs []Run) {
	for _, r := range runs {
		parent.AppendChild(runNode(r))
	}
}

// runNode wraps a text node in one element per style attribute, innermost
// first: strong, em, u, s, span, a.
func runNode(r Run) *html.Node {
	n := &html.Node{Type: html.TextNode, Data: r.Text}
	wrap := func(a atom.Atom, attrs ...string) {
		w := element(a, attrs...)
		w.AppendChild(n)
		n = w
	}
	st := r.Style
	if st.Bold {
		wrap(atom.Strong)
	}
	if st.Italic {
		wrap(atom.Em)
	}
	if st.Underline {
		wrap(atom.U)
	}
	if st.Strike {
		wrap(atom.S)
	}
	var css []string
	if st.Color != "" {
		css = append(css, "color:"+st.Color)
	}
	if st.Highlight != "" {
		css = append(css, "background-color:"+st.Highlight)
	}
	if st.Font != "" {
		css = append(css, "font-family:"+st.Font)
	}
	if pt := FontSizePoints(st.Size); pt > 0 {
		css = append(css, "font-size:"+strconv.Itoa(pt)+"pt")
	}
	if len(css) > 0 {
		wrap(atom.Span, "style", strings.Join(css, ";"))
	}
	if st.Link != "" {
		wrap(atom.A, "href", st.Link)
	}
	return n
}

func setAlign(n *html.Node, a Align) {
	if a != AlignNone {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: "text-align:" + string(a)})
	}
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}
