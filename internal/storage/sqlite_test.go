package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/sworddrill/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "bible.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	books := []models.Book{
		{ID: 19, Name: "Psalms", ChapterCount: 150, Testament: models.OldTestament},
		{ID: 43, Name: "John", ChapterCount: 21, Testament: models.NewTestament},
	}
	abbrevs := []models.BookAbbreviation{
		{BookID: 19, Abbreviation: "psalms"},
		{BookID: 19, Abbreviation: "psa"},
		{BookID: 43, Abbreviation: "john"},
		{BookID: 43, Abbreviation: "jhn"},
	}
	if err := store.SeedBooks(context.Background(), books, abbrevs); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSQLiteStorage_Books(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	b, err := store.BookByAbbreviation(ctx, "psa")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "Psalms" || b.ChapterCount != 150 || b.Testament != models.OldTestament {
		t.Errorf("got %+v", b)
	}

	if _, err := store.BookByAbbreviation(ctx, "PSA"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected exact-match miss for uppercase token, got %v", err)
	}

	b, err = store.Book(ctx, 43)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "John" {
		t.Errorf("expected John, got %s", b.Name)
	}
	if _, err := store.Book(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	books, err := store.Books(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 || books[0].ID != 19 || books[1].ID != 43 {
		t.Errorf("books out of order: %+v", books)
	}

	abbrevs, err := store.Abbreviations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(abbrevs) != 4 {
		t.Errorf("expected 4 abbreviations, got %d", len(abbrevs))
	}

	n, err := store.CountBooks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 books, got %d", n)
	}
}

func TestSQLiteStorage_SeedBooksIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	again := []models.Book{{ID: 19, Name: "Psalms", ChapterCount: 150, Testament: models.OldTestament}}
	if err := store.SeedBooks(ctx, again, []models.BookAbbreviation{{BookID: 19, Abbreviation: "psa"}}); err != nil {
		t.Fatal(err)
	}
	abbrevs, _ := store.Abbreviations(ctx)
	if len(abbrevs) != 4 {
		t.Errorf("reseed changed abbreviation count to %d", len(abbrevs))
	}
}

func TestSQLiteStorage_Verses(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	var verses []models.Verse
	for v := 1; v <= 176; v++ {
		verses = append(verses, models.Verse{Book: 19, Chapter: 119, Verse: v, Words: "filler"})
	}
	if err := store.BatchInsertVerses(ctx, models.PlainText, verses); err != nil {
		t.Fatal(err)
	}
	html := []models.Verse{{Book: 19, Chapter: 119, Verse: 105, Words: "<i>NUN.</i> Thy word"}}
	if err := store.BatchInsertVerses(ctx, models.HTML, html); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query VerseQuery
		first int
		last  int
		count int
	}{
		{"whole chapter", VerseQuery{Format: models.PlainText, Book: 19, Chapter: 119}, 1, 176, 176},
		{"single verse", VerseQuery{Format: models.PlainText, Book: 19, Chapter: 119, Start: 105, End: 105}, 105, 105, 1},
		{"past the end", VerseQuery{Format: models.PlainText, Book: 19, Chapter: 119, Start: 170, End: 999}, 170, 176, 7},
		{"html table", VerseQuery{Format: models.HTML, Book: 19, Chapter: 119}, 105, 105, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Verses(ctx, tt.query)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.count {
				t.Fatalf("expected %d verses, got %d", tt.count, len(got))
			}
			if got[0].Verse != tt.first || got[len(got)-1].Verse != tt.last {
				t.Errorf("span %d..%d, want %d..%d", got[0].Verse, got[len(got)-1].Verse, tt.first, tt.last)
			}
		})
	}

	got, err := store.Verses(ctx, VerseQuery{Format: models.PlainText, Book: 19, Chapter: 151})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}

	// Upsert replaces words in place.
	if err := store.BatchInsertVerses(ctx, models.PlainText, []models.Verse{{Book: 19, Chapter: 119, Verse: 1, Words: "replaced"}}); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Verses(ctx, VerseQuery{Format: models.PlainText, Book: 19, Chapter: 119, Start: 1, End: 1})
	if got[0].Words != "replaced" {
		t.Errorf("expected replaced words, got %q", got[0].Words)
	}

	n, err := store.CountVerses(ctx, models.PlainText)
	if err != nil {
		t.Fatal(err)
	}
	if n != 176 {
		t.Errorf("expected 176 verses, got %d", n)
	}
}

func TestSQLiteStorage_EachVerse(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	verses := []models.Verse{
		{Book: 43, Chapter: 3, Verse: 16, Words: "For God so loved the world"},
		{Book: 19, Chapter: 119, Verse: 105, Words: "Thy word is a lamp"},
	}
	if err := store.BatchInsertVerses(ctx, models.PlainText, verses); err != nil {
		t.Fatal(err)
	}

	var seen []int
	err := store.EachVerse(ctx, models.PlainText, func(v models.Verse) error {
		seen = append(seen, v.Book)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != 19 || seen[1] != 43 {
		t.Errorf("expected canonical order [19 43], got %v", seen)
	}

	stop := errors.New("stop")
	err = store.EachVerse(ctx, models.PlainText, func(models.Verse) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error, got %v", err)
	}
}

func TestFootprint(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "bible.db")
	idx := filepath.Join(dir, "index")
	if err := os.WriteFile(db, make([]byte, 100), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(idx, "store"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(idx, "store", "root.bolt"), make([]byte, 50), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := Footprint(db, idx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 150 {
		t.Errorf("expected 150 bytes, got %d", n)
	}

	n, err = Footprint(filepath.Join(dir, "missing.db"), "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 for missing paths, got %d", n)
	}
}
