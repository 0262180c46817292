package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/starford/scriptor/internal/document"
)

// Import formats.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatText     = "text"
)

// Formats lists the accepted import formats.
var Formats = []string{FormatMarkdown, FormatHTML, FormatText}

// Import builds a new document from data in the given format. An empty
// format is treated as Markdown.
func Import(format string, data []byte) (*document.Document, error) {
	switch strings.ToLower(format) {
	case "", FormatMarkdown, "md":
		res, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parser: import markdown: %w", err)
		}
		return res.Document(), nil
	case FormatHTML:
		c, err := document.FromHTML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parser: import html: %w", err)
		}
		d := document.New()
		d.Apply(func(document.Content) document.Content { return c })
		return d, nil
	case FormatText:
		d := document.New()
		d.Apply(func(c document.Content) document.Content {
			out, _ := document.InsertText(c, document.Point{}, string(data))
			return out
		})
		return d, nil
	default:
		return nil, fmt.Errorf("parser: unsupported import format %q", format)
	}
}
