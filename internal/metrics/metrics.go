// Package metrics derives reading statistics from note content.
package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/starford/scriptor/internal/document"
)

// WordsPerMinute is the reading speed used for ReadingMinutes.
const WordsPerMinute = 200

// Metrics are the statistics shown next to the editor.
type Metrics struct {
	Words          int `json:"words"`
	Characters     int `json:"characters"`
	ReadingMinutes int `json:"reading_minutes"`
}

// Compute derives metrics from c. Words are maximal runs of non-whitespace
// in the plain text; characters count every rune of the plain text,
// including the newlines that separate blocks.
func Compute(c document.Content) Metrics {
	return FromText(c.PlainText())
}

// FromText derives metrics from plain text.
func FromText(text string) Metrics {
	words := len(strings.Fields(text))
	return Metrics{
		Words:          words,
		Characters:     utf8.RuneCountInString(text),
		ReadingMinutes: (words + WordsPerMinute - 1) / WordsPerMinute,
	}
}
