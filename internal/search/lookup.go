package search

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/reference"
)

// Search runs a full-text search and pairs each hit with its book. Results
// are ordered by rank ascending and capped at the engine's result limit. A
// query with nothing searchable left after sanitizing returns no results and
// never reaches the index.
func (e *Engine) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if e.maxQueryLength > 0 {
		if r := []rune(query); len(r) > e.maxQueryLength {
			query = string(r[:e.maxQueryLength])
		}
	}

	expr := Sanitize(query)
	if expr.Empty() {
		return []models.SearchResult{}, nil
	}

	hits, err := e.index.Search(ctx, expr, e.resultLimit)
	if err != nil {
		return nil, e.storageError("search", err)
	}
	e.logger.Debug("search", zap.String("expr", expr.String()), zap.Int("hits", len(hits)))

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		book, err := e.bookByID(ctx, h.Book)
		if err != nil {
			return nil, err
		}
		results = append(results, models.SearchResult{Hit: h, Book: *book})
	}
	return results, nil
}

// LookupResult is the outcome of Lookup: a Passage when the query was a
// reference that resolved, otherwise full-text Matches.
type LookupResult struct {
	Passage *Passage              `json:"passage,omitempty"`
	Matches []models.SearchResult `json:"matches"`
}

// Lookup treats query as a reference first. A query that parses as a
// reference but names an unknown book yields an empty result; only a query
// that does not parse is searched as text. Storage faults are the only errors.
func (e *Engine) Lookup(ctx context.Context, query string, format models.VerseFormat) (*LookupResult, error) {
	if ref, err := reference.Parse(query); err == nil {
		p, err := e.Passage(ctx, ref, format)
		var notFound *models.BookNotFoundError
		switch {
		case err == nil:
			return &LookupResult{Passage: p, Matches: []models.SearchResult{}}, nil
		case errors.As(err, &notFound):
			e.logger.Debug("lookup: unknown book", zap.String("book", notFound.Book))
			return &LookupResult{Matches: []models.SearchResult{}}, nil
		default:
			return nil, err
		}
	}

	matches, err := e.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return &LookupResult{Matches: matches}, nil
}
