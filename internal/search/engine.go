// Package search resolves book names, retrieves verse ranges and runs
// full-text verse search.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/keyword"
	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/storage"
)

// DefaultResultLimit caps full-text search results.
const DefaultResultLimit = 15

// Engine answers reference lookups and searches. It holds no per-request
// state; every call borrows the storage handle for its own duration only.
type Engine struct {
	storage        storage.Storage
	index          keyword.VerseIndex
	logger         *zap.Logger
	resultLimit    int
	maxQueryLength int

	// Set once by PreloadAbbreviations, read-only afterwards.
	abbreviations map[string]int
	books         map[int]models.Book
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for resolver misses and storage faults.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithResultLimit overrides the number of search hits returned.
func WithResultLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.resultLimit = n
		}
	}
}

// WithMaxQueryLength truncates search queries to n characters before
// sanitizing. Zero disables the cap.
func WithMaxQueryLength(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxQueryLength = n
		}
	}
}

// NewEngine creates an engine over the given storage and full-text index.
func NewEngine(store storage.Storage, index keyword.VerseIndex, opts ...Option) *Engine {
	e := &Engine{
		storage:     store,
		index:       index,
		logger:      zap.NewNop(),
		resultLimit: DefaultResultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AllBooks returns every book in canonical order.
func (e *Engine) AllBooks(ctx context.Context) ([]models.Book, error) {
	books, err := e.storage.Books(ctx)
	if err != nil {
		return nil, e.storageError("list books", err)
	}
	return books, nil
}

// storageError hides err behind the generic storage message and logs the cause.
func (e *Engine) storageError(op string, err error) error {
	e.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return &models.StorageError{Op: op, Err: err}
}
