package editor

import (
	"context"
	"log/slog"

	"github.com/starford/scriptor/internal/document"
)

// Picker is the color picker currently open in the host UI.
type Picker string

// Pickers. At most one is open at a time.
const (
	PickerNone      Picker = ""
	PickerForeColor Picker = "foreColor"
	PickerHighlight Picker = "highlightColor"
)

// OpenPicker opens p and closes any other picker. Invoking a color command
// closes it again.
func (s *Session) OpenPicker(p Picker) error {
	return s.do(func() error {
		switch p {
		case PickerForeColor, PickerHighlight, PickerNone:
			s.picker = p
		default:
			s.picker = PickerNone
		}
		return nil
	})
}

// SetTitle sets the note title.
func (s *Session) SetTitle(title string) error {
	return s.do(func() error {
		s.doc.Title = title
		return nil
	})
}

// AddTag adds a tag and reports whether it was new.
func (s *Session) AddTag(tag string) (bool, error) {
	var added bool
	err := s.do(func() error {
		added = s.doc.AddTag(tag)
		return nil
	})
	return added, err
}

// RemoveTag removes a tag and reports whether it was present.
func (s *Session) RemoveTag(tag string) (bool, error) {
	var removed bool
	err := s.do(func() error {
		removed = s.doc.RemoveTag(tag)
		return nil
	})
	return removed, err
}

// SetFolder sets the weak folder reference; "" detaches the note.
func (s *Session) SetFolder(ref string) error {
	return s.do(func() error {
		s.doc.FolderRef = trimmed(ref)
		return nil
	})
}

// SetCategory sets the category; "" restores the default one.
func (s *Session) SetCategory(category string) error {
	return s.do(func() error {
		s.doc.Category = trimmed(category)
		if s.doc.Category == "" {
			s.doc.Category = document.DefaultCategory
		}
		return nil
	})
}

// SetSubject sets the free-text subject.
func (s *Session) SetSubject(subject string) error {
	return s.do(func() error {
		s.doc.Subject = trimmed(subject)
		return nil
	})
}

// ToggleStar flips the starred flag and returns the new value.
func (s *Session) ToggleStar() (bool, error) {
	var on bool
	err := s.do(func() error {
		on = s.doc.ToggleStar()
		return nil
	})
	return on, err
}

// TogglePublic flips the public flag and saves right away, so publishing
// never waits for the next autosave tick.
func (s *Session) TogglePublic(ctx context.Context) (bool, error) {
	var on bool
	if err := s.do(func() error {
		on = s.doc.TogglePublic()
		return nil
	}); err != nil {
		return false, err
	}
	s.logger.Info("editor: visibility changed", slog.Bool("public", on))
	return on, s.sched.SaveNow(ctx)
}
