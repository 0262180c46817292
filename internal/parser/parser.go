// Package parser imports Markdown notes (with optional YAML frontmatter) into
// the structured document model.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/scriptor/internal/document"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Content     document.Content
	Tags        []string
	Title       string
	Category    string
	Subject     string
	Folder      string
	Starred     bool
	Public      bool
}

// Parse extracts frontmatter, body, content blocks, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	src := []byte(body)
	root := md.Parser().Parse(text.NewReader(src))
	b := &builder{src: src}
	b.blocks(root, document.KindParagraph, document.ListNone)

	res := &Result{
		Frontmatter: fm,
		Body:        body,
		Content:     b.out,
		Tags:        extractTags(b.out.PlainText(), fm),
		Title:       deriveTitle(fm, body),
		Category:    fmString(fm, "category"),
		Subject:     fmString(fm, "subject"),
		Folder:      fmString(fm, "folder"),
		Starred:     fmBool(fm, "starred"),
		Public:      fmBool(fm, "public"),
	}
	return res, nil
}

// Document builds a fresh note from the parse result.
func (r *Result) Document() *document.Document {
	d := document.New()
	d.Title = r.Title
	for _, t := range r.Tags {
		d.AddTag(t)
	}
	if r.Category != "" {
		d.Category = r.Category
	}
	d.Subject = r.Subject
	d.FolderRef = r.Folder
	d.Flags = document.Flags{Starred: r.Starred, Public: r.Public}
	d.Apply(func(document.Content) document.Content { return r.Content })
	return d
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	// Find end delimiter.
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	// Body starts after closing delimiter line.
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: body only, no error.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags collects tags from the frontmatter "tags" field and #tags in the text.
func extractTags(plain string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		case string:
			for _, s := range strings.Split(v, ",") {
				add(s)
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(plain, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s := fmString(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func fmString(fm map[string]interface{}, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func fmBool(fm map[string]interface{}, key string) bool {
	b, _ := fm[key].(bool)
	return b
}
