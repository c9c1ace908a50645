// Package keyword provides the full-text verse index used for search.
package keyword

import (
	"context"
	"strings"

	"github.com/hyperjump/sworddrill/internal/models"
)

// Expression is a sanitized full-text query. Terms are lowercase ASCII words.
// When Phrase is false every term matches independently as a prefix and all
// terms must match; when true the terms must appear contiguously.
type Expression struct {
	Terms  []string
	Phrase bool
}

// Empty reports whether the expression has nothing to search for.
func (e Expression) Empty() bool {
	return len(e.Terms) == 0
}

// String renders the expression in match syntax: `"a b"` for a phrase,
// `a* b*` for prefix terms.
func (e Expression) String() string {
	if e.Phrase {
		return `"` + strings.Join(e.Terms, " ") + `"`
	}
	parts := make([]string, len(e.Terms))
	for i, t := range e.Terms {
		parts[i] = t + "*"
	}
	return strings.Join(parts, " ")
}

// VerseIndex defines full-text verse indexing and search operations.
type VerseIndex interface {
	IndexVerses(ctx context.Context, verses []models.Verse) error
	// Search returns at most limit hits ordered by Rank ascending. Each hit's
	// Words carries <em> markers around the matched spans.
	Search(ctx context.Context, expr Expression, limit int) ([]models.SearchHit, error)
	DocCount() (uint64, error)
	Close() error
}
