package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func para(id string, runs ...Run) *Block {
	return &Block{ID: id, Kind: KindParagraph, Runs: runs}
}

func rng(b1, o1, b2, o2 int) Range {
	return Range{Anchor: Point{b1, o1}, Focus: Point{b2, o2}}
}

func TestToggleStyleSplitsRuns(t *testing.T) {
	c := Content{para("a", Run{Text: "Hello world"})}
	out := ToggleStyle(c, rng(0, 6, 0, 11), Bold)

	require.Len(t, out[0].Runs, 2)
	assert.Equal(t, Run{Text: "Hello "}, out[0].Runs[0])
	assert.Equal(t, Run{Text: "world", Style: Style{Bold: true}}, out[0].Runs[1])
	assert.Len(t, c[0].Runs, 1, "input untouched")
}

func TestToggleStyleTwiceRestores(t *testing.T) {
	c := Content{
		para("a", Run{Text: "first"}),
		para("b", Run{Text: "second"}),
	}
	r := rng(0, 2, 1, 3)
	once := normalize(ToggleStyle(c, r, Italic))
	twice := normalize(ToggleStyle(once, r, Italic))
	assert.False(t, Equal(c, once))
	assert.True(t, Equal(c, twice))
}

func TestToggleStyleBackwardRange(t *testing.T) {
	c := Content{para("a", Run{Text: "abcdef"})}
	out := ToggleStyle(c, rng(0, 4, 0, 1), Strike)
	assert.Equal(t, "bcd", out[0].Runs[1].Text)
	assert.True(t, out[0].Runs[1].Style.Strike)
}

func TestToggleStyleCollapsedIsNoop(t *testing.T) {
	c := Content{para("a", Run{Text: "abc"})}
	out := ToggleStyle(c, rng(0, 1, 0, 1), Bold)
	assert.True(t, Equal(c, out))
}

func TestToggleStyleMixedFlipsEachRun(t *testing.T) {
	c := normalize(Content{para("a", Run{Text: "Hello ", Style: Style{Bold: true}}, Run{Text: "world"})})
	r := rng(0, 0, 0, 11)

	once := normalize(ToggleStyle(c, r, Bold))
	require.Len(t, once[0].Runs, 2)
	assert.False(t, once[0].Runs[0].Style.Bold)
	assert.True(t, once[0].Runs[1].Style.Bold)

	twice := normalize(ToggleStyle(once, r, Bold))
	assert.True(t, Equal(c, twice))
}

func TestMultibyteOffsets(t *testing.T) {
	c := Content{para("a", Run{Text: "héllo wörld"})}
	out := ToggleStyle(c, rng(0, 6, 0, 11), Underline)
	assert.Equal(t, "wörld", out[0].Runs[1].Text)
}

func TestSetBlockKind(t *testing.T) {
	c := Content{para("a", Run{Text: "x"}), NewRule(), para("b", Run{Text: "y"})}
	out := SetBlockKind(c, rng(0, 0, 2, 0), KindHeading, 3)
	assert.Equal(t, KindHeading, out[0].Kind)
	assert.Equal(t, 3, out[0].Level)
	assert.Equal(t, KindRule, out[1].Kind)
	assert.Equal(t, KindHeading, out[2].Kind)

	back := SetBlockKind(out, rng(0, 0, 0, 0), KindParagraph, 3)
	assert.Equal(t, KindParagraph, back[0].Kind)
	assert.Zero(t, back[0].Level)
}

func TestToggleList(t *testing.T) {
	c := Content{para("a", Run{Text: "x"}), para("b", Run{Text: "y"})}
	on := ToggleList(c, rng(0, 0, 1, 1), ListBullet)
	assert.Equal(t, ListBullet, on[0].List)
	assert.Equal(t, ListBullet, on[1].List)

	off := ToggleList(on, rng(0, 0, 1, 1), ListBullet)
	assert.Equal(t, ListNone, off[0].List)

	switched := ToggleList(on, rng(0, 0, 0, 0), ListOrdered)
	assert.Equal(t, ListOrdered, switched[0].List)
	assert.Equal(t, ListBullet, switched[1].List)

	mixed := Content{para("a", Run{Text: "x"}), para("b", Run{Text: "y"})}
	mixed[0].List = ListBullet
	once := ToggleList(mixed, rng(0, 0, 1, 1), ListBullet)
	assert.Equal(t, ListNone, once[0].List)
	assert.Equal(t, ListBullet, once[1].List)
	twice := ToggleList(once, rng(0, 0, 1, 1), ListBullet)
	assert.True(t, Equal(mixed, twice))
}

func TestSetAlign(t *testing.T) {
	c := Content{para("a", Run{Text: "x"})}
	out := SetAlign(c, rng(0, 0, 0, 0), AlignRight)
	assert.Equal(t, AlignRight, out[0].Align)
}

func TestLinkRange(t *testing.T) {
	c := Content{para("a", Run{Text: "see docs"})}

	out, sel := LinkRange(c, rng(0, 4, 0, 8), "https://go.dev")
	assert.Equal(t, rng(0, 4, 0, 8), sel)
	assert.Equal(t, "https://go.dev", out[0].Runs[1].Style.Link)

	out, sel = LinkRange(c, rng(0, 8, 0, 8), "https://go.dev")
	assert.Equal(t, "see docshttps://go.dev", out[0].Text())
	assert.Equal(t, Caret(Point{0, 22}), sel)

	out, _ = LinkRange(c, rng(0, 0, 0, 3), "")
	assert.True(t, Equal(c, out))
}

func TestInsertTextInheritsStyle(t *testing.T) {
	c := Content{para("a", Run{Text: "ab", Style: Style{Bold: true}}, Run{Text: "cd"})}
	out, p := InsertText(c, Point{0, 2}, "XY")
	assert.Equal(t, Point{0, 4}, p)
	out = normalize(out)
	require.Len(t, out[0].Runs, 2)
	assert.Equal(t, Run{Text: "abXY", Style: Style{Bold: true}}, out[0].Runs[0])
}

func TestInsertTextNewlineSplits(t *testing.T) {
	c := Content{para("a", Run{Text: "headtail"})}
	out, p := InsertText(c, Point{0, 4}, "1\n2\n3")
	require.Len(t, out, 3)
	assert.Equal(t, "head1", out[0].Text())
	assert.Equal(t, "2", out[1].Text())
	assert.Equal(t, "3tail", out[2].Text())
	assert.Equal(t, Point{2, 1}, p)
	assert.Equal(t, "a", out[0].ID)
}

func TestInsertTextAfterMedia(t *testing.T) {
	c := Content{NewRule()}
	out, p := InsertText(c, Point{0, 0}, "x")
	require.Len(t, out, 2)
	assert.Equal(t, "x", out[1].Text())
	assert.Equal(t, Point{1, 1}, p)
}

func TestSplitHeadingAtEnd(t *testing.T) {
	c := Content{{ID: "h", Kind: KindHeading, Level: 1, Runs: []Run{{Text: "Title"}}}}
	out, p := SplitBlock(c, Point{0, 5})
	require.Len(t, out, 2)
	assert.Equal(t, KindParagraph, out[1].Kind)
	assert.Equal(t, Point{1, 0}, p)
}

func TestDeleteRange(t *testing.T) {
	c := Content{
		para("a", Run{Text: "hello"}),
		NewRule(),
		para("b", Run{Text: "world"}),
	}
	out, p := DeleteRange(c, rng(0, 2, 2, 3))
	require.Len(t, out, 1)
	assert.Equal(t, "held", out[0].Text())
	assert.Equal(t, Point{0, 2}, p)

	out, p = DeleteRange(c, rng(0, 1, 0, 4))
	assert.Equal(t, "ho", out[0].Text())
	assert.Equal(t, Point{0, 1}, p)
}

func TestDeleteBackward(t *testing.T) {
	c := Content{para("a", Run{Text: "ab"}), para("b", Run{Text: "cd"})}

	out, p := DeleteBackward(c, Point{1, 1})
	assert.Equal(t, "d", out[1].Text())
	assert.Equal(t, Point{1, 0}, p)

	out, p = DeleteBackward(c, Point{1, 0})
	require.Len(t, out, 1)
	assert.Equal(t, "abcd", out[0].Text())
	assert.Equal(t, Point{0, 2}, p)

	out, p = DeleteBackward(c, Point{0, 0})
	assert.True(t, Equal(c, out))
	assert.Equal(t, Point{0, 0}, p)
}

func TestDeleteBackwardRemovesMedia(t *testing.T) {
	c := Content{para("a", Run{Text: "ab"}), NewRule(), para("b", Run{Text: "cd"})}
	out, p := DeleteBackward(c, Point{2, 0})
	require.Len(t, out, 2)
	assert.Equal(t, Point{1, 0}, p)
	assert.Equal(t, "cd", out[1].Text())
}

func TestInsertBlocksMidBlock(t *testing.T) {
	c := Content{para("a", Run{Text: "abcd"})}
	out, p := InsertBlocks(c, Point{0, 2}, NewRule())
	require.Len(t, out, 3)
	assert.Equal(t, "ab", out[0].Text())
	assert.Equal(t, KindRule, out[1].Kind)
	assert.Equal(t, "cd", out[2].Text())
	assert.Equal(t, Point{2, 0}, p)
}

func TestInsertBlocksAtEndAddsParagraph(t *testing.T) {
	c := Content{para("a", Run{Text: "abcd"})}
	out, p := InsertBlocks(c, Point{0, 4}, NewTable(2, 2))
	require.Len(t, out, 3)
	assert.Equal(t, KindTable, out[1].Kind)
	assert.Equal(t, KindParagraph, out[2].Kind)
	assert.Equal(t, Point{2, 0}, p)
}

func TestInsertBlocksIntoEmptyParagraph(t *testing.T) {
	c := Content{para("a")}
	out, p := InsertBlocks(c, Point{0, 0}, NewImage("data:image/png;base64,AA", "image/png", ""))
	require.Len(t, out, 2)
	assert.Equal(t, KindImage, out[0].Kind)
	assert.Equal(t, "a", out[1].ID)
	assert.Equal(t, Point{1, 0}, p)
}

func TestClamp(t *testing.T) {
	c := Content{para("a", Run{Text: "abc"}), para("b", Run{Text: "de"})}
	assert.Equal(t, Point{0, 3}, c.Clamp(Point{0, 99}))
	assert.Equal(t, Point{1, 2}, c.Clamp(Point{7, 0}))
	assert.Equal(t, Point{0, 0}, c.Clamp(Point{-1, 5}))
	assert.Equal(t, Point{1, 2}, c.End())
}
