package command

import (
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/scriptor/internal/document"
)

// Name identifies a command.
type Name string

// The command set.
const (
	Bold           Name = "bold"
	Italic         Name = "italic"
	Underline      Name = "underline"
	Strikethrough  Name = "strikethrough"
	Heading        Name = "heading"
	Paragraph      Name = "paragraph"
	Blockquote     Name = "blockquote"
	Code           Name = "code"
	FormatBlock    Name = "formatBlock"
	BulletList     Name = "bulletList"
	OrderedList    Name = "orderedList"
	AlignLeft      Name = "alignLeft"
	AlignCenter    Name = "alignCenter"
	AlignRight     Name = "alignRight"
	ForeColor      Name = "foreColor"
	HighlightColor Name = "highlightColor"
	FontName       Name = "fontName"
	FontSize       Name = "fontSize"
	Link           Name = "link"
	Image          Name = "image"
	Table          Name = "table"
	HorizontalRule Name = "horizontalRule"
	Undo           Name = "undo"
	Redo           Name = "redo"
)

// MaxTableSize bounds each dimension of an inserted table.
const MaxTableSize = 20

var (
	colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,4}|#[0-9a-fA-F]{6}|#[0-9a-fA-F]{8}|rgba?\([0-9.,%\s]+\)|[a-zA-Z]+)$`)
	fontPattern  = regexp.MustCompile(`^[\w\s,.-]+$`)
	tablePattern = regexp.MustCompile(`^(\d+)\s*[xX]\s*(\d+)$`)
)

func registry() map[Name]EditFunc {
	return map[Name]EditFunc{
		Bold:          toggle(document.Bold),
		Italic:        toggle(document.Italic),
		Underline:     toggle(document.Underline),
		Strikethrough: toggle(document.Strike),

		Heading: func(in Input) (Edit, bool) {
			level, err := strconv.Atoi(strings.TrimSpace(in.Arg))
			if err != nil || level < 1 || level > document.MaxHeadingLevel {
				return Edit{}, false
			}
			return blockKind(in, document.KindHeading, level)
		},
		Paragraph:   kind(document.KindParagraph),
		Blockquote:  kind(document.KindQuote),
		Code:        kind(document.KindCode),
		FormatBlock: formatBlock,

		BulletList:  list(document.ListBullet),
		OrderedList: list(document.ListOrdered),

		AlignLeft:   align(document.AlignLeft),
		AlignCenter: align(document.AlignCenter),
		AlignRight:  align(document.AlignRight),

		ForeColor: runAttr(validColor, func(s document.Style, v string) document.Style {
			s.Color = v
			return s
		}),
		HighlightColor: runAttr(validColor, func(s document.Style, v string) document.Style {
			s.Highlight = v
			return s
		}),
		FontName: runAttr(func(v string) bool {
			return validation.Validate(v, validation.Required, validation.Length(1, 64), validation.Match(fontPattern)) == nil
		}, func(s document.Style, v string) document.Style {
			s.Font = v
			return s
		}),
		FontSize: runAttr(func(v string) bool {
			n, err := strconv.Atoi(v)
			return err == nil && validation.Validate(n, validation.Min(document.MinFontSize), validation.Max(document.MaxFontSize)) == nil
		}, func(s document.Style, v string) document.Style {
			s.Size, _ = strconv.Atoi(v)
			return s
		}),

		Link:           link,
		Image:          image,
		Table:          table,
		HorizontalRule: func(in Input) (Edit, bool) { return Insert(in, document.NewRule()) },
	}
}

func toggle(f document.Inline) EditFunc {
	return func(in Input) (Edit, bool) {
		if !in.Focused || in.Selection.Collapsed() {
			return Edit{}, false
		}
		return Edit{Content: document.ToggleStyle(in.Content, in.Selection, f)}, true
	}
}

func kind(k document.Kind) EditFunc {
	return func(in Input) (Edit, bool) { return blockKind(in, k, 0) }
}

func blockKind(in Input, k document.Kind, level int) (Edit, bool) {
	if !in.Focused {
		return Edit{}, false
	}
	return Edit{Content: document.SetBlockKind(in.Content, in.Selection, k, level)}, true
}

// formatBlock accepts the tag names of the original toolbar: h1..h6, p,
// blockquote and pre, optionally in angle brackets.
func formatBlock(in Input) (Edit, bool) {
	tag := strings.ToLower(strings.Trim(strings.TrimSpace(in.Arg), "<>"))
	switch tag {
	case "p", "div", "":
		return blockKind(in, document.KindParagraph, 0)
	case "blockquote":
		return blockKind(in, document.KindQuote, 0)
	case "pre":
		return blockKind(in, document.KindCode, 0)
	}
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return blockKind(in, document.KindHeading, min(int(tag[1]-'0'), document.MaxHeadingLevel))
	}
	return Edit{}, false
}

func list(l document.ListKind) EditFunc {
	return func(in Input) (Edit, bool) {
		if !in.Focused {
			return Edit{}, false
		}
		return Edit{Content: document.ToggleList(in.Content, in.Selection, l)}, true
	}
}

func align(a document.Align) EditFunc {
	return func(in Input) (Edit, bool) {
		if !in.Focused {
			return Edit{}, false
		}
		return Edit{Content: document.SetAlign(in.Content, in.Selection, a)}, true
	}
}

func runAttr(valid func(string) bool, set func(document.Style, string) document.Style) EditFunc {
	return func(in Input) (Edit, bool) {
		v := strings.TrimSpace(in.Arg)
		if !in.Focused || in.Selection.Collapsed() || !valid(v) {
			return Edit{}, false
		}
		return Edit{Content: document.MapRuns(in.Content, in.Selection, func(s document.Style) document.Style {
			return set(s, v)
		})}, true
	}
}

func validColor(v string) bool {
	return validation.Validate(v, validation.Required, validation.Match(colorPattern)) == nil
}

func link(in Input) (Edit, bool) {
	url := strings.TrimSpace(in.Arg)
	if !in.Focused || validation.Validate(url, validation.Required, is.RequestURL) != nil {
		return Edit{}, false
	}
	out, r := document.LinkRange(in.Content, in.Selection, url)
	return Edit{Content: out, Selection: &r}, true
}

func image(in Input) (Edit, bool) {
	src := strings.TrimSpace(in.Arg)
	mime, ok := document.ImageMIME(src)
	if !ok {
		return Edit{}, false
	}
	return Insert(in, document.NewImage(src, mime, ""))
}

func table(in Input) (Edit, bool) {
	rows, cols := 2, 2
	if arg := strings.TrimSpace(in.Arg); arg != "" {
		m := tablePattern.FindStringSubmatch(arg)
		if m == nil {
			return Edit{}, false
		}
		rows, _ = strconv.Atoi(m[1])
		cols, _ = strconv.Atoi(m[2])
	}
	if rows < 1 || cols < 1 || rows > MaxTableSize || cols > MaxTableSize {
		return Edit{}, false
	}
	return Insert(in, document.NewTable(rows, cols))
}

// Insert places blocks at the caret (collapsing any selection to its end)
// and moves the caret after them. It is shared with content ingestion.
func Insert(in Input, blocks ...*document.Block) (Edit, bool) {
	p := in.Caret
	if in.Focused {
		p = in.Selection.End()
	}
	out, at := document.InsertBlocks(in.Content, p, blocks...)
	r := document.Caret(at)
	return Edit{Content: out, Selection: &r}, true
}
