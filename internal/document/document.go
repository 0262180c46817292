package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultCategory is assigned to notes that never picked one.
const DefaultCategory = "general"

// Flags are the note's boolean switches.
type Flags struct {
	Starred bool `json:"starred"`
	Public  bool `json:"public"`
}

// Document is the full state of one note.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags,omitempty"`
	FolderRef string    `json:"folder_ref,omitempty"`
	Flags     Flags     `json:"flags"`
	Category  string    `json:"category,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParseError reports a serialized document that could not be loaded.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document: %s: %v", e.Reason, e.Err)
	}
	return "document: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is (or wraps) a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// New returns an empty document with a fresh identity.
func New() *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        newID(),
		Category:  DefaultCategory,
		Content:   Content{NewParagraph()},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Load parses a serialized document. An empty payload yields an empty
// document. Malformed or structurally invalid input returns a *ParseError.
func Load(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}
	if d.ID == "" {
		d.ID = newID()
	}
	for _, b := range d.Content {
		if b != nil && b.ID == "" {
			b.ID = newID()
		}
	}
	if err := validate(d.Content); err != nil {
		return nil, &ParseError{Reason: "invalid content", Err: err}
	}
	if d.Category == "" {
		d.Category = DefaultCategory
	}
	d.Tags = cleanTags(d.Tags)
	d.Content = normalize(d.Content)
	return &d, nil
}

// LoadOrEmpty is Load that never leaves the caller without a document: on a
// parse failure it returns an empty document together with the error.
func LoadOrEmpty(data []byte) (*Document, error) {
	d, err := Load(data)
	if err != nil {
		return New(), err
	}
	return d, nil
}

// Serialize encodes the document canonically. Load(Serialize(d)) is
// structurally equal to d.
func (d *Document) Serialize() ([]byte, error) {
	cp := *d
	cp.Content = normalize(d.Content)
	cp.Tags = cleanTags(d.Tags)
	data, err := json.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("document: serialize: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	cp := *d
	cp.Tags = slices.Clone(d.Tags)
	cp.Content = d.Content.Clone()
	return &cp
}

// Apply replaces the content with fn's result and reports whether anything
// changed. fn receives the committed content and must not modify it.
func (d *Document) Apply(fn func(Content) Content) bool {
	next := normalize(fn(d.Content))
	if Equal(d.Content, next) {
		return false
	}
	d.Content = next
	return true
}

// IsEmpty reports whether the note has neither a title nor content.
func (d *Document) IsEmpty() bool {
	return strings.TrimSpace(d.Title) == "" && d.Content.IsEmpty()
}

// AddTag appends a trimmed tag unless it is empty or already present.
func (d *Document) AddTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" || slices.Contains(d.Tags, tag) {
		return false
	}
	d.Tags = append(d.Tags, tag)
	return true
}

// RemoveTag removes tag and reports whether it was present.
func (d *Document) RemoveTag(tag string) bool {
	i := slices.Index(d.Tags, strings.TrimSpace(tag))
	if i < 0 {
		return false
	}
	d.Tags = slices.Delete(d.Tags, i, i+1)
	return true
}

// ToggleStar flips the starred flag and returns the new value.
func (d *Document) ToggleStar() bool {
	d.Flags.Starred = !d.Flags.Starred
	return d.Flags.Starred
}

// TogglePublic flips the public flag and returns the new value.
func (d *Document) TogglePublic() bool {
	d.Flags.Public = !d.Flags.Public
	return d.Flags.Public
}

func cleanTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func validate(c Content) error {
	seen := make(map[string]struct{}, len(c))
	for i, b := range c {
		if b == nil {
			return fmt.Errorf("block %d: null", i)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("block %d: duplicate id %q", i, b.ID)
		}
		seen[b.ID] = struct{}{}
		if !b.Kind.valid() {
			return fmt.Errorf("block %d: unknown kind %q", i, b.Kind)
		}
		if !b.Align.valid() {
			return fmt.Errorf("block %d: unknown align %q", i, b.Align)
		}
		if !b.List.valid() {
			return fmt.Errorf("block %d: unknown list %q", i, b.List)
		}
		switch b.Kind {
		case KindHeading:
			if b.Level < 1 || b.Level > MaxHeadingLevel {
				return fmt.Errorf("block %d: heading level %d out of range", i, b.Level)
			}
		case KindImage:
			if b.Image == nil || !strings.HasPrefix(b.Image.Src, "data:") {
				return fmt.Errorf("block %d: image without embedded source", i)
			}
		case KindTable:
			if err := validateTable(b.Table); err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
		}
		if !b.Kind.IsText() && len(b.Runs) > 0 {
			return fmt.Errorf("block %d: %s block carries text", i, b.Kind)
		}
		if b.Kind.IsText() && (b.Image != nil || b.Table != nil) {
			return fmt.Errorf("block %d: text block carries media", i)
		}
		for _, r := range b.Runs {
			if r.Style.Size != 0 && FontSizePoints(r.Style.Size) == 0 {
				return fmt.Errorf("block %d: font size %d out of range", i, r.Style.Size)
			}
		}
	}
	return nil
}

func validateTable(t *Table) error {
	if t == nil || len(t.Rows) == 0 {
		return errors.New("table without rows")
	}
	cols := len(t.Rows[0])
	if cols == 0 {
		return errors.New("table without columns")
	}
	for i, row := range t.Rows {
		if len(row) != cols {
			return fmt.Errorf("table row %d has %d cells, want %d", i, len(row), cols)
		}
	}
	return nil
}
