package search

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/storage"
)

// PreloadAbbreviations loads the abbreviation table into memory so Book
// resolves without a storage round trip. Call it before the engine is shared.
func (e *Engine) PreloadAbbreviations(ctx context.Context) error {
	books, err := e.storage.Books(ctx)
	if err != nil {
		return e.storageError("preload books", err)
	}
	abbrevs, err := e.storage.Abbreviations(ctx)
	if err != nil {
		return e.storageError("preload abbreviations", err)
	}

	byID := make(map[int]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	index := make(map[string]int, len(abbrevs))
	for _, a := range abbrevs {
		index[a.Abbreviation] = a.BookID
	}
	e.books = byID
	e.abbreviations = index
	e.logger.Debug("abbreviations preloaded", zap.Int("books", len(byID)), zap.Int("abbreviations", len(index)))
	return nil
}

// Book resolves a book token, case-insensitively, against the abbreviation
// table (which includes every canonical name). It returns the book and its
// 1-based chapter numbers.
func (e *Engine) Book(ctx context.Context, token string) (*models.Book, []int, error) {
	key := strings.ToLower(strings.TrimSpace(token))

	if e.abbreviations != nil {
		id, ok := e.abbreviations[key]
		if !ok {
			return nil, nil, e.bookNotFound(token)
		}
		b := e.books[id]
		return &b, b.Chapters(), nil
	}

	b, err := e.storage.BookByAbbreviation(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, e.bookNotFound(token)
	}
	if err != nil {
		return nil, nil, e.storageError("resolve book", err)
	}
	return b, b.Chapters(), nil
}

func (e *Engine) bookNotFound(token string) error {
	e.logger.Debug("book not found", zap.String("book", token))
	return &models.BookNotFoundError{Book: token}
}

// bookByID returns the book for a search hit.
func (e *Engine) bookByID(ctx context.Context, id int) (*models.Book, error) {
	if e.books != nil {
		if b, ok := e.books[id]; ok {
			return &b, nil
		}
	}
	b, err := e.storage.Book(ctx, id)
	if err != nil {
		return nil, e.storageError("book by id", err)
	}
	return b, nil
}
