package api

import (
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/scriptor/internal/command"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/editor"
	"github.com/starford/scriptor/internal/models"
	"github.com/starford/scriptor/internal/parser"
)

// CreateNoteRequest imports a new note. Content is read in Format
// (markdown, html or text); an empty Content creates a blank note.
type CreateNoteRequest struct {
	Title    string   `json:"title,omitempty" example:"Groceries"`
	Format   string   `json:"format,omitempty" example:"markdown"`
	Content  string   `json:"content,omitempty" example:"# Hello\nWorld"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty" example:"personal"`
}

// Validate implements validation.Validatable.
func (r CreateNoteRequest) Validate() error {
	formats := make([]any, len(parser.Formats))
	for i, f := range parser.Formats {
		formats[i] = f
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 500)),
		validation.Field(&r.Format, validation.In(formats...)),
		validation.Field(&r.Category, validation.Length(0, 100)),
	)
}

// UpdateNoteRequest replaces a stored note with a serialized document.
type UpdateNoteRequest struct {
	Document json.RawMessage `json:"document" validate:"required"`
}

// Validate implements validation.Validatable.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Document, validation.Required),
	)
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// OpenSessionRequest opens a session on NoteID, or on a new note when it
// is empty.
type OpenSessionRequest struct {
	NoteID string `json:"note_id,omitempty"`
}

// CommandRequest runs a named editing command.
type CommandRequest struct {
	Name string `json:"name" example:"bold" validate:"required"`
	Arg  string `json:"arg,omitempty" example:"#ff0000"`
}

// Validate implements validation.Validatable.
func (r CommandRequest) Validate() error {
	names := command.Names()
	in := make([]any, len(names))
	for i, n := range names {
		in[i] = string(n)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.In(in...)),
	)
}

// TextRequest deletes Backspace characters before the caret, then types Text.
type TextRequest struct {
	Text      string `json:"text,omitempty" example:"Hello"`
	Backspace int    `json:"backspace,omitempty" example:"0"`
}

// Validate implements validation.Validatable.
func (r TextRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Backspace, validation.Min(0), validation.Max(10000)),
	)
}

// SelectRequest places the selection. All selects the whole document and
// Blur drops focus; otherwise Range is used.
type SelectRequest struct {
	Range *document.Range `json:"range,omitempty"`
	All   bool            `json:"all,omitempty"`
	Blur  bool            `json:"blur,omitempty"`
}

// Validate implements validation.Validatable.
func (r SelectRequest) Validate() error {
	set := 0
	for _, ok := range []bool{r.Range != nil, r.All, r.Blur} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return validation.NewError("validation_select_one", "exactly one of range, all or blur is required")
	}
	return nil
}

// PasteRequest pastes clipboard content: HTML when present, plain text
// otherwise.
type PasteRequest struct {
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

// Validate implements validation.Validatable.
func (r PasteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.When(r.HTML == "", validation.Required.Error("text or html is required"))),
	)
}

// ImageRequest inserts an image from a URL or a data URI. Uploads use
// multipart/form-data instead.
type ImageRequest struct {
	URL     string `json:"url,omitempty" example:"https://example.com/logo.png"`
	DataURI string `json:"data_uri,omitempty"`
	Alt     string `json:"alt,omitempty"`
}

// Validate implements validation.Validatable.
func (r ImageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.URL, validation.When(r.DataURI == "", validation.Required.Error("url or data_uri is required"))),
		validation.Field(&r.DataURI, validation.When(r.URL != "", validation.Empty.Error("give either url or data_uri"))),
	)
}

// TagRequest adds a tag.
type TagRequest struct {
	Tag string `json:"tag" example:"work" validate:"required"`
}

// Validate implements validation.Validatable.
func (r TagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tag, validation.Required, validation.Length(1, 100)),
	)
}

// MetaRequest changes note metadata. Nil fields are left alone; Starred and
// Public set the flag to the given value.
type MetaRequest struct {
	Title    *string `json:"title,omitempty"`
	Folder   *string `json:"folder,omitempty"`
	Category *string `json:"category,omitempty"`
	Subject  *string `json:"subject,omitempty"`
	Starred  *bool   `json:"starred,omitempty"`
	Public   *bool   `json:"public,omitempty"`
	Picker   *string `json:"picker,omitempty" example:"foreColor"`
}

// Validate implements validation.Validatable.
func (r MetaRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 500)),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.Picker, validation.In(string(editor.PickerNone), string(editor.PickerForeColor), string(editor.PickerHighlight))),
	)
}

// CommandResponse reports a command outcome with the session state after it.
type CommandResponse struct {
	Result command.Result `json:"result"`
	State  editor.State   `json:"state"`
}
