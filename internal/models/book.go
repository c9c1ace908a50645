// Package models defines core data structures for books, verses, and search hits.
package models

import "fmt"

// Testament is the half of the Bible a book belongs to. It is stored as "OLD" or "NEW".
type Testament string

const (
	// OldTestament covers Genesis through Malachi.
	OldTestament Testament = "OLD"
	// NewTestament covers Matthew through Revelation.
	NewTestament Testament = "NEW"
)

// ParseTestament converts a stored testament value into a Testament.
func ParseTestament(s string) (Testament, error) {
	switch Testament(s) {
	case OldTestament, NewTestament:
		return Testament(s), nil
	}
	return "", fmt.Errorf("unexpected testament %q", s)
}

// Book is a canonical book of the Bible. IDs are 1-indexed in canonical order.
type Book struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	ChapterCount int       `json:"chapter_count" db:"chapter_count"`
	Testament    Testament `json:"testament" db:"testament"`
}

// Chapters returns the 1-based chapter numbers of the book.
func (b *Book) Chapters() []int {
	chapters := make([]int, b.ChapterCount)
	for i := range chapters {
		chapters[i] = i + 1
	}
	return chapters
}

// BookAbbreviation maps a lowercase abbreviation to a book. The lowercase
// canonical name is registered as one of the book's own abbreviations.
type BookAbbreviation struct {
	ID           int    `json:"-" db:"id"`
	BookID       int    `json:"book_id" db:"book_id"`
	Abbreviation string `json:"abbreviation" db:"abbreviation"`
}
