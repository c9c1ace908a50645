package keyword

import (
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight"
	"github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simplefrag "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehl "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/sworddrill/internal/models"
)

const (
	verseAnalyzer    = "verse_text"
	verseHighlighter = "verse_em"

	// Verses are short; one fragment covers the whole text.
	fragmentSize = 2000
	batchSize    = 1000
)

func init() {
	registry.RegisterHighlighter(verseHighlighter, func(map[string]interface{}, *registry.Cache) (highlight.Highlighter, error) {
		return simplehl.NewHighlighter(
			simplefrag.NewFragmenter(fragmentSize),
			html.NewFragmentFormatter("<em>", "</em>"),
			"",
		), nil
	})
}

// verseDoc is the indexed shape of a verse. Only text is analyzed.
type verseDoc struct {
	Book    int    `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Text    string `json:"text"`
}

// BleveIndex implements VerseIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path builds
// an in-memory index. An existing index is reopened as-is; after changing the
// mapping, remove it with RemoveIndex and reindex.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im, err := newVerseMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to build index mapping: %w", err)
	}

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// RemoveIndex deletes the index directory at path, if any.
func RemoveIndex(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove Bleve index: %w", err)
	}
	return nil
}

func newVerseMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	// Lowercased unicode words, no stemming or stop words, so "rock" is a
	// prefix of "rock" and "rocks" but never of a stem.
	if err := im.AddCustomAnalyzer(verseAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	text := bleve.NewTextFieldMapping()
	text.Analyzer = verseAnalyzer
	text.Store = true
	text.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("text", text)

	for _, name := range []string{"book", "chapter", "verse"} {
		docMapping.AddFieldMappingsAt(name, bleve.NewNumericFieldMapping())
	}

	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = verseAnalyzer
	return im, nil
}

func docID(v models.Verse) string {
	return fmt.Sprintf("%02d.%03d.%03d", v.Book, v.Chapter, v.Verse)
}

// IndexVerses adds or replaces verses, flushing a batch every 1000 documents.
func (b *BleveIndex) IndexVerses(ctx context.Context, verses []models.Verse) error {
	batch := b.index.NewBatch()
	for _, v := range verses {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := verseDoc{Book: v.Book, Chapter: v.Chapter, Verse: v.Verse, Text: v.Words}
		if err := batch.Index(docID(v), doc); err != nil {
			return fmt.Errorf("failed to index %s: %w", docID(v), err)
		}
		if batch.Size() >= batchSize {
			if err := b.index.Batch(batch); err != nil {
				return fmt.Errorf("failed to flush batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to flush batch: %w", err)
		}
	}
	return nil
}

// Search runs expr against the text field. Phrase expressions use a match
// phrase query; otherwise each term becomes a prefix query and all must match.
// Rank is the negated relevance score so lower is better.
func (b *BleveIndex) Search(ctx context.Context, expr Expression, limit int) ([]models.SearchHit, error) {
	if expr.Empty() || limit <= 0 {
		return []models.SearchHit{}, nil
	}

	req := bleve.NewSearchRequest(buildQuery(expr))
	req.Size = limit
	req.Fields = []string{"book", "chapter", "verse", "text"}
	req.Highlight = bleve.NewHighlightWithStyle(verseHighlighter)
	req.Highlight.AddField("text")
	req.SortBy([]string{"-_score", "_id"})

	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hits = append(hits, toHit(h))
	}
	return hits, nil
}

func buildQuery(expr Expression) blevequery.Query {
	if expr.Phrase {
		q := bleve.NewMatchPhraseQuery(strings.Join(expr.Terms, " "))
		q.SetField("text")
		q.Analyzer = verseAnalyzer
		return q
	}
	prefixes := make([]blevequery.Query, len(expr.Terms))
	for i, t := range expr.Terms {
		pq := bleve.NewPrefixQuery(t)
		pq.SetField("text")
		prefixes[i] = pq
	}
	return bleve.NewConjunctionQuery(prefixes...)
}

func toHit(h *search.DocumentMatch) models.SearchHit {
	hit := models.SearchHit{
		Book:    intField(h.Fields["book"]),
		Chapter: intField(h.Fields["chapter"]),
		Verse:   intField(h.Fields["verse"]),
		Rank:    -h.Score,
	}
	// The formatter escapes text around the markers; stored verses are plain.
	if frags := h.Fragments["text"]; len(frags) > 0 {
		hit.Words = stdhtml.UnescapeString(frags[0])
	} else if s, ok := h.Fields["text"].(string); ok {
		hit.Words = s
	}
	return hit
}

func intField(v interface{}) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

// DocCount returns the total number of verses in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
