package search

import (
	"context"

	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/reference"
	"github.com/hyperjump/sworddrill/internal/storage"
)

// Passage is a retrieved reference: the resolved book, the reference with
// its book rewritten to the canonical name and its range narrowed to what
// was found, and the verses in order.
type Passage struct {
	Book      models.Book         `json:"book"`
	Reference reference.Reference `json:"reference"`
	Verses    []models.Verse      `json:"verses"`
}

// Empty reports whether the reference was well-formed but matched no verses.
func (p *Passage) Empty() bool {
	return len(p.Verses) == 0
}

// RangeQuery builds the bounded query for ref within book.
func RangeQuery(book models.Book, ref reference.Reference, format models.VerseFormat) storage.VerseQuery {
	q := storage.VerseQuery{Format: format, Book: book.ID, Chapter: ref.Chapter}
	if ref.Verses != nil {
		q.Start, q.End = ref.Verses.Start, ref.Verses.End
	}
	return q
}

// Verses resolves ref's book and returns it with the verses ref selects,
// ordered by chapter then verse. A chapter or range with no content yields
// an empty slice rather than an error.
func (e *Engine) Verses(ctx context.Context, ref reference.Reference, format models.VerseFormat) (*models.Book, []models.Verse, error) {
	book, _, err := e.Book(ctx, ref.Book)
	if err != nil {
		return nil, nil, err
	}
	verses, err := e.storage.Verses(ctx, RangeQuery(*book, ref, format))
	if err != nil {
		return nil, nil, e.storageError("verses", err)
	}
	return book, verses, nil
}

// Passage retrieves ref and returns the canonical, narrowed reference with
// its verses.
func (e *Engine) Passage(ctx context.Context, ref reference.Reference, format models.VerseFormat) (*Passage, error) {
	book, verses, err := e.Verses(ctx, ref, format)
	if err != nil {
		return nil, err
	}
	return &Passage{
		Book:      *book,
		Reference: ref.WithBook(book.Name).Narrow(verses),
		Verses:    verses,
	}, nil
}
