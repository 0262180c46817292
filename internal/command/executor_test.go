package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/selection"
)

type fixture struct {
	doc     *document.Document
	tracker *selection.Tracker
	exec    *Executor
	commits int
}

func newFixture(t *testing.T, text ...string) *fixture {
	t.Helper()
	doc := document.New()
	doc.Content = nil
	for _, s := range text {
		doc.Content = append(doc.Content, document.NewParagraph(document.Run{Text: s}))
	}
	if len(doc.Content) == 0 {
		doc.Content = document.Content{document.NewParagraph()}
	}
	f := &fixture{doc: doc, tracker: selection.New()}
	f.exec = NewExecutor(doc, f.tracker, 5, nil)
	f.exec.OnCommit(func(document.Content) { f.commits++ })
	return f
}

func (f *fixture) selectAll() {
	f.tracker.Set(f.doc.Content, f.doc.Content.All())
}

func (f *fixture) serialize(t *testing.T) string {
	t.Helper()
	data, err := f.doc.Serialize()
	require.NoError(t, err)
	return string(data)
}

func TestBoldThenUndo(t *testing.T) {
	f := newFixture(t, "Hello world")
	f.selectAll()
	before := f.serialize(t)

	res, err := f.exec.Execute(Bold, "")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, f.doc.Content[0].Runs[0].Style.Bold)
	assert.Equal(t, f.doc.Content.All(), res.Selection, "selection survives a style change")

	res, err = f.exec.Execute(Undo, "")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, before, f.serialize(t))
	assert.Equal(t, 2, f.commits)

	res, err = f.exec.Execute(Redo, "")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, f.doc.Content[0].Runs[0].Style.Bold)
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, "x")
	_, err := f.exec.Execute("blink", "")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestNoOps(t *testing.T) {
	tests := []struct {
		name string
		cmd  Name
		arg  string
		sel  func(f *fixture)
	}{
		{"bold without focus", Bold, "", func(*fixture) {}},
		{"bold on caret", Bold, "", func(f *fixture) {
			f.tracker.Set(f.doc.Content, document.Caret(document.Point{Offset: 2}))
		}},
		{"heading out of range", Heading, "9", (*fixture).selectAll},
		{"heading without level", Heading, "", (*fixture).selectAll},
		{"bad color", ForeColor, "url(javascript:x)", (*fixture).selectAll},
		{"empty color", HighlightColor, "", (*fixture).selectAll},
		{"font size", FontSize, "8", (*fixture).selectAll},
		{"link without url", Link, "  ", (*fixture).selectAll},
		{"link not a url", Link, "not a url", (*fixture).selectAll},
		{"image not data uri", Image, "https://x/y.png", (*fixture).selectAll},
		{"table bad shape", Table, "0x3", (*fixture).selectAll},
		{"table garbage", Table, "big", (*fixture).selectAll},
		{"formatBlock unknown", FormatBlock, "marquee", (*fixture).selectAll},
		{"align already", AlignLeft, "", func(f *fixture) {
			f.doc.Content[0].Align = document.AlignLeft
			f.selectAll()
		}},
		{"undo empty", Undo, "", (*fixture).selectAll},
		{"redo empty", Redo, "", (*fixture).selectAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "some text")
			tt.sel(f)
			before := f.serialize(t)

			res, err := f.exec.Execute(tt.cmd, tt.arg)
			require.NoError(t, err)
			assert.False(t, res.Changed)
			assert.Equal(t, before, f.serialize(t))
			assert.False(t, f.exec.History().CanUndo())
			assert.Zero(t, f.commits)
		})
	}
}

func TestBlockCommands(t *testing.T) {
	f := newFixture(t, "title", "body")
	f.tracker.Set(f.doc.Content, document.Caret(document.Point{Block: 0, Offset: 1}))

	_, err := f.exec.Execute(Heading, "2")
	require.NoError(t, err)
	assert.Equal(t, document.KindHeading, f.doc.Content[0].Kind)
	assert.Equal(t, 2, f.doc.Content[0].Level)
	assert.Equal(t, document.KindParagraph, f.doc.Content[1].Kind)

	_, err = f.exec.Execute(FormatBlock, "<BLOCKQUOTE>")
	require.NoError(t, err)
	assert.Equal(t, document.KindQuote, f.doc.Content[0].Kind)

	_, err = f.exec.Execute(FormatBlock, "h6")
	require.NoError(t, err)
	assert.Equal(t, document.MaxHeadingLevel, f.doc.Content[0].Level)

	_, err = f.exec.Execute(AlignCenter, "")
	require.NoError(t, err)
	assert.Equal(t, document.AlignCenter, f.doc.Content[0].Align)
}

func TestListToggleIsIdempotentPair(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.selectAll()
	before := f.serialize(t)

	res, _ := f.exec.Execute(BulletList, "")
	assert.True(t, res.Changed)
	assert.Equal(t, document.ListBullet, f.doc.Content[1].List)

	res, _ = f.exec.Execute(BulletList, "")
	assert.True(t, res.Changed)
	assert.Equal(t, before, f.serialize(t))
}

func TestToggleTwiceRestoresMixedSelection(t *testing.T) {
	f := newFixture(t, "Hello world", "second")
	f.tracker.Set(f.doc.Content, document.Range{Focus: document.Point{Offset: 6}})
	_, err := f.exec.Execute(Bold, "")
	require.NoError(t, err)
	f.tracker.Set(f.doc.Content, document.Range{Anchor: document.Point{Block: 1}, Focus: document.Point{Block: 1, Offset: 6}})
	_, err = f.exec.Execute(OrderedList, "")
	require.NoError(t, err)

	for _, name := range []Name{Bold, Italic, OrderedList, BulletList} {
		t.Run(string(name), func(t *testing.T) {
			f.selectAll()
			before := f.serialize(t)
			res, err := f.exec.Execute(name, "")
			require.NoError(t, err)
			require.True(t, res.Changed)
			f.selectAll()
			_, err = f.exec.Execute(name, "")
			require.NoError(t, err)
			assert.Equal(t, before, f.serialize(t))
		})
	}
}

func TestRunAttributes(t *testing.T) {
	f := newFixture(t, "colorful")
	f.selectAll()

	for _, c := range []struct {
		cmd Name
		arg string
	}{
		{ForeColor, "#ff0000"},
		{HighlightColor, "yellow"},
		{FontName, "Georgia"},
		{FontSize, "5"},
		{Link, "https://example.com"},
	} {
		res, err := f.exec.Execute(c.cmd, c.arg)
		require.NoError(t, err)
		assert.True(t, res.Changed, c.cmd)
	}
	assert.Equal(t, document.Style{
		Color: "#ff0000", Highlight: "yellow", Font: "Georgia", Size: 5, Link: "https://example.com",
	}, f.doc.Content[0].Runs[0].Style)
}

func TestStructuralInsertMovesCaret(t *testing.T) {
	f := newFixture(t, "abcd")
	f.tracker.Set(f.doc.Content, document.Caret(document.Point{Offset: 2}))

	res, err := f.exec.Execute(Table, "")
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Len(t, f.doc.Content, 3)
	tbl := f.doc.Content[1]
	assert.Equal(t, document.KindTable, tbl.Kind)
	assert.Len(t, tbl.Table.Rows, 2)
	assert.Len(t, tbl.Table.Rows[0], 2)
	assert.Equal(t, document.Caret(document.Point{Block: 2}), res.Selection)

	res, err = f.exec.Execute(HorizontalRule, "")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, document.KindRule, f.doc.Content[2].Kind)

	res, err = f.exec.Execute(Image, "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "image/png", f.doc.Content[3].Image.MIME)
}

func TestInsertWithoutFocusGoesToEnd(t *testing.T) {
	f := newFixture(t, "one", "two")
	res, err := f.exec.Execute(HorizontalRule, "")
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Len(t, f.doc.Content, 4)
	assert.Equal(t, document.KindRule, f.doc.Content[2].Kind)
	assert.Equal(t, document.KindParagraph, f.doc.Content[3].Kind)
}

func TestNewEditClearsRedo(t *testing.T) {
	f := newFixture(t, "text")
	f.selectAll()
	f.exec.Execute(Bold, "")
	f.exec.Execute(Undo, "")
	require.True(t, f.exec.History().CanRedo())

	f.selectAll()
	f.exec.Execute(Italic, "")
	assert.False(t, f.exec.History().CanRedo())
}

func TestHistoryIsBounded(t *testing.T) {
	f := newFixture(t, "text")
	f.selectAll()
	for i := 0; i < 8; i++ {
		res, _ := f.exec.Execute(Bold, "")
		require.True(t, res.Changed)
	}
	undone := 0
	for f.exec.History().CanUndo() {
		f.exec.Execute(Undo, "")
		undone++
	}
	assert.Equal(t, 5, undone)
}

func TestMutateCustomEdit(t *testing.T) {
	f := newFixture(t, "ab")
	f.tracker.Set(f.doc.Content, document.Caret(document.Point{Offset: 2}))

	res := f.exec.Mutate("type", func(in Input) (Edit, bool) {
		out, p := document.InsertText(in.Content, in.Selection.Focus, "c")
		r := document.Caret(p)
		return Edit{Content: out, Selection: &r}, true
	})
	assert.True(t, res.Changed)
	assert.Equal(t, "abc", f.doc.Content[0].Text())
	assert.Equal(t, document.Caret(document.Point{Offset: 3}), res.Selection)

	f.exec.Execute(Undo, "")
	assert.Equal(t, "ab", f.doc.Content[0].Text())
	sel, _ := f.tracker.Selection()
	assert.Equal(t, document.Caret(document.Point{Offset: 2}), sel)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Contains(t, names, Bold)
	assert.Contains(t, names, Undo)
	assert.Len(t, names, 24)
}
