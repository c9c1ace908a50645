// Package storage defines the persistence interface for books, abbreviations and verses.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/sworddrill/internal/models"
)

// ErrNotFound is returned (wrapped) when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// VerseQuery selects verses of one chapter, optionally bounded to an inclusive
// verse range. Start and End are ignored when End is zero.
type VerseQuery struct {
	Format  models.VerseFormat
	Book    int
	Chapter int
	Start   int
	End     int
}

// Ranged reports whether the query carries a verse bound.
func (q VerseQuery) Ranged() bool {
	return q.End > 0
}

// Storage defines book and verse persistence operations.
type Storage interface {
	// Reference data
	SeedBooks(ctx context.Context, books []models.Book, abbrevs []models.BookAbbreviation) error
	BookByAbbreviation(ctx context.Context, abbrev string) (*models.Book, error)
	Book(ctx context.Context, id int) (*models.Book, error)
	Books(ctx context.Context) ([]models.Book, error)
	Abbreviations(ctx context.Context) ([]models.BookAbbreviation, error)

	// Verses
	Verses(ctx context.Context, q VerseQuery) ([]models.Verse, error)
	BatchInsertVerses(ctx context.Context, format models.VerseFormat, verses []models.Verse) error
	EachVerse(ctx context.Context, format models.VerseFormat, fn func(models.Verse) error) error

	// Stats
	CountBooks(ctx context.Context) (int64, error)
	CountVerses(ctx context.Context, format models.VerseFormat) (int64, error)

	Close() error
}
