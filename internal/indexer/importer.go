// Package indexer loads verse corpora into storage and builds the full-text index.
package indexer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/hyperjump/sworddrill/internal/canon"
	"github.com/hyperjump/sworddrill/internal/keyword"
	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/storage"
)

const batchSize = 1000

// Importer writes canon and verse data to storage and mirrors plain-text
// verses into the full-text index.
type Importer struct {
	storage     storage.Storage
	index       keyword.VerseIndex
	htmlPolicy  *bluemonday.Policy
	stripPolicy *bluemonday.Policy
	logger      *zap.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) ImporterOption {
	return func(imp *Importer) {
		if l != nil {
			imp.logger = l
		}
	}
}

// NewImporter creates an importer. index may be nil when only storage is loaded.
func NewImporter(store storage.Storage, index keyword.VerseIndex, opts ...ImporterOption) *Importer {
	imp := &Importer{
		storage:     store,
		index:       index,
		htmlPolicy:  bluemonday.UGCPolicy(),
		stripPolicy: bluemonday.StripTagsPolicy(),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// SeedCanon writes the 66 books and their abbreviations. Safe to repeat.
func (imp *Importer) SeedCanon(ctx context.Context) error {
	books, abbrevs := canon.Books(), canon.Abbreviations()
	if err := imp.storage.SeedBooks(ctx, books, abbrevs); err != nil {
		return fmt.Errorf("failed to seed canon: %w", err)
	}
	imp.logger.Info("canon seeded", zap.Int("books", len(books)), zap.Int("abbreviations", len(abbrevs)))
	return nil
}

// ImportFile opens path and imports it with ImportVerses.
func (imp *Importer) ImportFile(ctx context.Context, path string, format models.VerseFormat) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open verses file: %w", err)
	}
	defer f.Close()
	n, err := imp.ImportVerses(ctx, f, format)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// ImportVerses reads tab-separated rows of book, chapter, verse and text and
// upserts them into the table for format. The book column may be a canonical
// id or any known name or abbreviation. Lines starting with # are comments.
// Plain-text rows are stripped of markup; HTML rows are sanitized.
func (imp *Importer) ImportVerses(ctx context.Context, r io.Reader, format models.VerseFormat) (int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = 4
	cr.LazyQuotes = true

	total := 0
	batch := make([]models.Verse, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := imp.storage.BatchInsertVerses(ctx, format, batch); err != nil {
			return fmt.Errorf("failed to store verses: %w", err)
		}
		total += len(batch)
		imp.logger.Debug("verses stored", zap.Stringer("format", format), zap.Int("total", total))
		batch = batch[:0]
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("failed to read verses: %w", err)
		}
		line, _ := cr.FieldPos(0)

		v, err := parseRecord(record)
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		v.Words = imp.clean(v.Words, format)
		if v.Words == "" {
			return total, fmt.Errorf("line %d: empty verse text", line)
		}
		batch = append(batch, v)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	imp.logger.Info("verses imported", zap.Stringer("format", format), zap.Int("count", total))
	return total, nil
}

func parseRecord(record []string) (models.Verse, error) {
	book, err := resolveBook(record[0])
	if err != nil {
		return models.Verse{}, err
	}
	chapter, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil || chapter < 1 || chapter > book.ChapterCount {
		return models.Verse{}, fmt.Errorf("invalid chapter %q for %s", record[1], book.Name)
	}
	verse, err := strconv.Atoi(strings.TrimSpace(record[2]))
	if err != nil || verse < 1 {
		return models.Verse{}, fmt.Errorf("invalid verse %q", record[2])
	}
	return models.Verse{Book: book.ID, Chapter: chapter, Verse: verse, Words: record[3]}, nil
}

func resolveBook(field string) (models.Book, error) {
	field = strings.TrimSpace(field)
	if id, err := strconv.Atoi(field); err == nil {
		if b, ok := canon.ByID(id); ok {
			return b, nil
		}
		return models.Book{}, fmt.Errorf("book id %d out of range", id)
	}
	if b, ok := canon.Lookup(field); ok {
		return b, nil
	}
	return models.Book{}, &models.BookNotFoundError{Book: field}
}

// clean sanitizes verse text for the target table and collapses whitespace.
func (imp *Importer) clean(words string, format models.VerseFormat) string {
	if format == models.HTML {
		words = imp.htmlPolicy.Sanitize(words)
	} else {
		words = html.UnescapeString(imp.stripPolicy.Sanitize(words))
	}
	return strings.Join(strings.Fields(words), " ")
}

// Reindex rebuilds the full-text index from the plain-text verses in storage.
// The caller is expected to start from an empty index (see keyword.RemoveIndex).
func (imp *Importer) Reindex(ctx context.Context) (int, error) {
	if imp.index == nil {
		return 0, errors.New("no full-text index configured")
	}

	total := 0
	batch := make([]models.Verse, 0, batchSize)
	flush := func() error {
		if err := imp.index.IndexVerses(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err := imp.storage.EachVerse(ctx, models.PlainText, func(v models.Verse) error {
		batch = append(batch, v)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("failed to reindex: %w", err)
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, fmt.Errorf("failed to reindex: %w", err)
		}
	}
	imp.logger.Info("index rebuilt", zap.Int("verses", total))
	return total, nil
}
