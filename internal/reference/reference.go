// Package reference parses free-text Bible citations such as "John 3:16",
// "1 Tim 3:16-18" or "jhn.1.1" into structured references.
package reference

import (
	"fmt"

	"github.com/hyperjump/sworddrill/internal/models"
)

// VerseRange is an inclusive range of verse numbers. Start <= End and both are >= 1.
type VerseRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Reference is a parsed citation. Book is the token as typed (trimmed, case
// preserved) until the caller rewrites it to the canonical book name.
type Reference struct {
	Book    string      `json:"book"`
	Chapter int         `json:"chapter"`
	Verses  *VerseRange `json:"verses,omitempty"`
}

// String renders the display form: "Book C", "Book C:V" or "Book C:S-E".
func (r Reference) String() string {
	switch {
	case r.Verses == nil:
		return fmt.Sprintf("%s %d", r.Book, r.Chapter)
	case r.Verses.Start == r.Verses.End:
		return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verses.Start)
	default:
		return fmt.Sprintf("%s %d:%d-%d", r.Book, r.Chapter, r.Verses.Start, r.Verses.End)
	}
}

// Narrow returns a copy of r whose verse range reports what was actually
// retrieved: the requested start through the last returned verse. A requested
// range with no returned verses collapses to none; a chapter-only reference is
// returned unchanged.
func (r Reference) Narrow(verses []models.Verse) Reference {
	if r.Verses == nil {
		return r
	}
	if len(verses) == 0 {
		r.Verses = nil
		return r
	}
	r.Verses = &VerseRange{Start: r.Verses.Start, End: verses[len(verses)-1].Verse}
	return r
}

// WithBook returns a copy of r with the book token replaced, typically by the
// canonical name of the resolved book.
func (r Reference) WithBook(name string) Reference {
	r.Book = name
	if r.Verses != nil {
		v := *r.Verses
		r.Verses = &v
	}
	return r
}
