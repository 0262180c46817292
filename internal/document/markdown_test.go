package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	c := Content{
		{ID: "h", Kind: KindHeading, Level: 2, Runs: []Run{{Text: "Plan"}}},
		{ID: "p", Kind: KindParagraph, Runs: []Run{
			{Text: "Do "},
			{Text: "this ", Style: Style{Bold: true}},
			{Text: "now", Style: Style{Italic: true, Link: "https://x.io"}},
		}},
		{ID: "1", Kind: KindParagraph, List: ListOrdered, Runs: []Run{{Text: "first"}}},
		{ID: "2", Kind: KindParagraph, List: ListOrdered, Runs: []Run{{Text: "second"}}},
		{ID: "q", Kind: KindQuote, Runs: []Run{{Text: "a_b"}}},
		{ID: "t", Kind: KindTable, Table: &Table{Rows: [][]Cell{
			{{Runs: []Run{{Text: "k"}}}, {Runs: []Run{{Text: "v"}}}},
			{{Runs: []Run{{Text: "1"}}}, {Runs: []Run{{Text: "2"}}}},
		}}},
		{ID: "i", Kind: KindImage, Image: &Image{Src: "data:image/png;base64,AA", MIME: "image/png", Alt: "pic"}},
		{ID: "r", Kind: KindRule},
	}
	want := "## Plan\n\n" +
		"Do **this** [*now*](https://x.io)\n\n" +
		"1. first\n2. second\n\n" +
		"> a\\_b\n\n" +
		"| k | v |\n| --- | --- |\n| 1 | 2 |\n\n" +
		"![pic](embedded:image/png)\n\n" +
		"---"
	assert.Equal(t, want, RenderMarkdown(c))
}

func TestRenderMarkdownCode(t *testing.T) {
	c := Content{{ID: "c", Kind: KindCode, Runs: []Run{{Text: "x := 1"}}}}
	assert.Equal(t, "```\nx := 1\n```", RenderMarkdown(c))
}
