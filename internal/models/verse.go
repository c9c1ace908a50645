package models

import "fmt"

// Verse is a single verse of a chapter.
type Verse struct {
	ID      int    `json:"id" db:"id"`
	Book    int    `json:"book" db:"book"`
	Chapter int    `json:"chapter" db:"chapter"`
	Verse   int    `json:"verse" db:"verse"`
	Words   string `json:"words" db:"words"`
}

// VerseFormat selects which verse table a lookup reads from.
type VerseFormat int

const (
	// PlainText is verse text with no markup.
	PlainText VerseFormat = iota
	// HTML is verse text with inline HTML markup.
	HTML
)

func (f VerseFormat) String() string {
	switch f {
	case PlainText:
		return "text"
	case HTML:
		return "html"
	}
	return fmt.Sprintf("VerseFormat(%d)", int(f))
}

// ParseVerseFormat converts "text" or "html" into a VerseFormat.
func ParseVerseFormat(s string) (VerseFormat, error) {
	switch s {
	case "text", "plain", "":
		return PlainText, nil
	case "html":
		return HTML, nil
	}
	return PlainText, fmt.Errorf("unknown verse format %q; use text or html", s)
}
