package document

import (
	"strconv"
	"strings"
)

// RenderMarkdown renders content as CommonMark with GFM tables and
// strikethrough. Attributes Markdown cannot express (color, font, size,
// underline, alignment) are dropped. Embedded images are written with a
// placeholder destination instead of their payload.
func RenderMarkdown(c Content) string {
	var sb strings.Builder
	ordinal := 0
	for i, b := range c {
		if b.List != ListOrdered || !b.Kind.IsText() {
			ordinal = 0
		}
		if i > 0 {
			if b.List != ListNone && c[i-1].List != ListNone && b.Kind.IsText() && c[i-1].Kind.IsText() {
				sb.WriteByte('\n')
			} else {
				sb.WriteString("\n\n")
			}
		}
		switch b.Kind {
		case KindImage:
			sb.WriteString("![" + escapeMarkdown(b.Image.Alt) + "](embedded:" + b.Image.MIME + ")")
			continue
		case KindRule:
			sb.WriteString("---")
			continue
		case KindTable:
			writeMarkdownTable(&sb, b.Table)
			continue
		}

		switch b.List {
		case ListBullet:
			sb.WriteString("- ")
		case ListOrdered:
			ordinal++
			sb.WriteString(strconv.Itoa(ordinal) + ". ")
		}
		switch b.Kind {
		case KindHeading:
			sb.WriteString(strings.Repeat("#", b.Level) + " ")
			writeMarkdownRuns(&sb, b.Runs)
		case KindQuote:
			sb.WriteString("> ")
			writeMarkdownRuns(&sb, b.Runs)
		case KindCode:
			sb.WriteString("```\n" + b.Text() + "\n```")
		default:
			writeMarkdownRuns(&sb, b.Runs)
		}
	}
	return sb.String()
}

func writeMarkdownTable(sb *strings.Builder, t *Table) {
	for i, row := range t.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteByte('|')
		for _, cell := range row {
			sb.WriteByte(' ')
			var cb strings.Builder
			writeMarkdownRuns(&cb, cell.Runs)
			sb.WriteString(strings.ReplaceAll(cb.String(), "|", `\|`))
			sb.WriteString(" |")
		}
		if i == 0 {
			sb.WriteString("\n|")
			for range row {
				sb.WriteString(" --- |")
			}
		}
	}
}

func writeMarkdownRuns(sb *strings.Builder, runs []Run) {
	for _, r := range runs {
		text := escapeMarkdown(r.Text)
		if strings.TrimSpace(text) == "" {
			sb.WriteString(text)
			continue
		}
		// Markers must hug the text, so surrounding spaces go outside them.
		lead := text[:len(text)-len(strings.TrimLeft(text, " "))]
		trail := text[len(strings.TrimRight(text, " ")):]
		text = strings.TrimSpace(text)
		st := r.Style
		if st.Font == "monospace" {
			text = "`" + strings.TrimSpace(r.Text) + "`"
		}
		if st.Strike {
			text = "~~" + text + "~~"
		}
		if st.Italic {
			text = "*" + text + "*"
		}
		if st.Bold {
			text = "**" + text + "**"
		}
		if st.Link != "" {
			text = "[" + text + "](" + st.Link + ")"
		}
		sb.WriteString(lead + text + trail)
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "~", `\~`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
