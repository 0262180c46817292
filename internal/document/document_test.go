package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Document {
	d := New()
	d.Title = "Groceries"
	d.Tags = []string{"home", "weekly"}
	d.Flags.Starred = true
	d.Content = Content{
		{ID: "h", Kind: KindHeading, Level: 2, Runs: []Run{{Text: "List"}}},
		{ID: "p", Kind: KindParagraph, Align: AlignCenter, Runs: []Run{
			{Text: "Buy "},
			{Text: "milk", Style: Style{Bold: true, Color: "#ff0000"}},
		}},
		{ID: "li", Kind: KindParagraph, List: ListBullet, Runs: []Run{{Text: "eggs", Style: Style{Link: "https://example.com"}}}},
		{ID: "img", Kind: KindImage, Image: &Image{Src: "data:image/png;base64,AAAA", MIME: "image/png"}},
		{ID: "t", Kind: KindTable, Table: &Table{Rows: [][]Cell{
			{{Runs: []Run{{Text: "a"}}}, {Runs: []Run{{Text: "b"}}}},
			{{}, {Runs: []Run{{Text: "d"}}}},
		}}},
		{ID: "hr", Kind: KindRule},
	}
	return d
}

func TestSerializeLoadRoundTrip(t *testing.T) {
	d := sample()
	data, err := d.Serialize()
	require.NoError(t, err)

	got, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.Title, got.Title)
	assert.Equal(t, d.Tags, got.Tags)
	assert.Equal(t, d.Flags, got.Flags)
	assert.True(t, d.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, Equal(d.Content, got.Content))

	again, err := got.Serialize()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestSerializeMergesAdjacentRuns(t *testing.T) {
	d := New()
	d.Content = Content{{ID: "p", Kind: KindParagraph, Runs: []Run{{Text: "ab"}, {Text: ""}, {Text: "cd"}}}}
	data, err := d.Serialize()
	require.NoError(t, err)

	got, err := Load(data)
	require.NoError(t, err)
	require.Len(t, got.Content[0].Runs, 1)
	assert.Equal(t, "abcd", got.Content[0].Runs[0].Text)
}

func TestLoadEmptyPayload(t *testing.T) {
	d, err := Load(nil)
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
	assert.Equal(t, DefaultCategory, d.Category)
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "<p>hello"},
		{"unknown kind", `{"id":"x","content":[{"id":"a","kind":"marquee"}]}`},
		{"heading level", `{"id":"x","content":[{"id":"a","kind":"heading","level":9}]}`},
		{"remote image", `{"id":"x","content":[{"id":"a","kind":"image","image":{"src":"http://x/y.png"}}]}`},
		{"ragged table", `{"id":"x","content":[{"id":"a","kind":"table","table":{"rows":[[{}],[{},{}]]}}]}`},
		{"duplicate ids", `{"id":"x","content":[{"id":"a","kind":"paragraph"},{"id":"a","kind":"paragraph"}]}`},
		{"text in rule", `{"id":"x","content":[{"id":"a","kind":"rule","runs":[{"text":"x"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, IsParseError(err), "want *ParseError, got %T", err)
		})
	}
}

func TestLoadOrEmpty(t *testing.T) {
	d, err := LoadOrEmpty([]byte("{broken"))
	require.Error(t, err)
	require.NotNil(t, d)
	assert.True(t, d.IsEmpty())
}

func TestLoadAssignsMissingIDs(t *testing.T) {
	d, err := Load([]byte(`{"title":"t","content":[{"kind":"paragraph","runs":[{"text":"x"}]}]}`))
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.NotEmpty(t, d.Content[0].ID)
}

func TestApplyReportsChange(t *testing.T) {
	d := sample()
	before := d.Content

	changed := d.Apply(func(c Content) Content { return c })
	assert.False(t, changed)

	changed = d.Apply(func(c Content) Content {
		return ToggleStyle(c, Range{Anchor: Point{0, 0}, Focus: Point{0, 4}}, Italic)
	})
	assert.True(t, changed)
	assert.False(t, before[0].Runs[0].Style.Italic, "committed content must not be mutated")
	assert.True(t, d.Content[0].Runs[0].Style.Italic)
}

func TestPlainText(t *testing.T) {
	d := sample()
	assert.Equal(t, "List\nBuy milk\neggs\n\na\tb\n\td\n", d.Content.PlainText())
}

func TestIsEmpty(t *testing.T) {
	d := New()
	assert.True(t, d.IsEmpty())

	d.Content = Content{NewParagraph(Run{Text: "   "})}
	assert.True(t, d.IsEmpty())

	d.Content = Content{NewRule()}
	assert.False(t, d.IsEmpty())

	d = New()
	d.Title = "x"
	assert.False(t, d.IsEmpty())
}

func TestTags(t *testing.T) {
	d := New()
	assert.True(t, d.AddTag("  work "))
	assert.False(t, d.AddTag("work"))
	assert.False(t, d.AddTag("   "))
	assert.True(t, d.AddTag("ideas"))
	assert.Equal(t, []string{"work", "ideas"}, d.Tags)

	assert.True(t, d.RemoveTag("work"))
	assert.False(t, d.RemoveTag("work"))
	assert.Equal(t, []string{"ideas"}, d.Tags)
}

func TestFlags(t *testing.T) {
	d := New()
	assert.True(t, d.ToggleStar())
	assert.False(t, d.ToggleStar())
	assert.True(t, d.TogglePublic())
	assert.True(t, d.Flags.Public)
}

func TestCloneIsDeep(t *testing.T) {
	d := sample()
	cp := d.Clone()
	cp.Content[1].Runs[0].Text = "Sell "
	cp.Tags[0] = "office"
	assert.Equal(t, "Buy ", d.Content[1].Runs[0].Text)
	assert.Equal(t, "home", d.Tags[0])
}

func TestSerializeIsJSON(t *testing.T) {
	data, err := sample().Serialize()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))
	assert.Contains(t, string(data), `"kind":"heading"`)
	assert.NotContains(t, string(data), `"style":{}`)
}

func TestContentFind(t *testing.T) {
	c := Content{
		NewParagraph(Run{Text: "héllo "}, Run{Text: "world", Style: Style{Bold: true}}),
		NewParagraph(Run{Text: "second line"}),
	}

	r, ok := c.Find("world")
	require.True(t, ok)
	assert.Equal(t, Range{Anchor: Point{Block: 0, Offset: 6}, Focus: Point{Block: 0, Offset: 11}}, r)

	r, ok = c.Find("line")
	require.True(t, ok)
	assert.Equal(t, Point{Block: 1, Offset: 7}, r.Anchor)

	_, ok = c.Find("world\nsecond")
	assert.False(t, ok)
	_, ok = c.Find("")
	assert.False(t, ok)
}
