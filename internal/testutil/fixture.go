// Package testutil builds a small seeded corpus for package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/sworddrill/internal/canon"
	"github.com/hyperjump/sworddrill/internal/keyword"
	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/storage"
)

// Known KJV texts used by assertions.
const (
	Psalm119v105 = "NUN. Thy word is a lamp unto my feet, and a light unto my path."
	Jeremiah2329 = "Is not my word like as a fire? saith the LORD; and like a hammer that breaketh the rock in pieces?"
	Exodus1211   = "And thus shall ye eat it; with your loins girded, your shoes on your feet, and your staff in your hand; and ye shall eat it in haste: it is the LORD's passover."
	John316      = "For God so loved the world, that he gave his only begotten Son, that whosoever believeth in him should not perish, but have everlasting life."
)

// Verses returns the fixture corpus in canonical order.
func Verses() []models.Verse {
	verses := []models.Verse{
		{Book: 1, Chapter: 1, Verse: 1, Words: "In the beginning God created the heaven and the earth."},
		{Book: 1, Chapter: 1, Verse: 2, Words: "And the earth was without form, and void; and darkness was upon the face of the deep. And the Spirit of God moved upon the face of the waters."},
		{Book: 1, Chapter: 1, Verse: 3, Words: "And God said, Let there be light: and there was light."},
		{Book: 2, Chapter: 12, Verse: 11, Words: Exodus1211},
	}
	for v := 1; v <= 176; v++ {
		words := fmt.Sprintf("Psalm filler %d", v)
		switch v {
		case 1:
			words = "ALEPH. Blessed are the undefiled in the way, who walk in the law of the LORD."
		case 105:
			words = Psalm119v105
		case 176:
			words = "I have gone astray like a lost sheep; seek thy servant; for I do not forget thy commandments."
		}
		verses = append(verses, models.Verse{Book: 19, Chapter: 119, Verse: v, Words: words})
	}
	return append(verses,
		models.Verse{Book: 20, Chapter: 3, Verse: 5, Words: "Trust in the LORD with all thine heart; and lean not unto thine own understanding."},
		models.Verse{Book: 24, Chapter: 23, Verse: 29, Words: Jeremiah2329},
		models.Verse{Book: 43, Chapter: 1, Verse: 1, Words: "In the beginning was the Word, and the Word was with God, and the Word was God."},
		models.Verse{Book: 43, Chapter: 3, Verse: 16, Words: John316},
		models.Verse{Book: 54, Chapter: 3, Verse: 16, Words: "And without controversy great is the mystery of godliness: God was manifest in the flesh, justified in the Spirit, seen of angels, preached unto the Gentiles, believed on in the world, received up into glory."},
	)
}

// HTMLVerses mirrors Verses with inline markup, as the html table stores it.
func HTMLVerses() []models.Verse {
	verses := Verses()
	for i, v := range verses {
		verses[i].Words = fmt.Sprintf(`<span class="verse" id="v%d">%s</span>`, v.Verse, v.Words)
	}
	return verses
}

// NewStorage opens a temp-dir database seeded with the canon and the fixture verses.
func NewStorage(t testing.TB) *storage.SQLiteStorage {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "bible.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.SeedBooks(ctx, canon.Books(), canon.Abbreviations()); err != nil {
		t.Fatal(err)
	}
	if err := store.BatchInsertVerses(ctx, models.PlainText, Verses()); err != nil {
		t.Fatal(err)
	}
	if err := store.BatchInsertVerses(ctx, models.HTML, HTMLVerses()); err != nil {
		t.Fatal(err)
	}
	return store
}

// NewIndex builds an in-memory full-text index over the fixture verses.
func NewIndex(t testing.TB) *keyword.BleveIndex {
	t.Helper()
	idx, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	if err := idx.IndexVerses(context.Background(), Verses()); err != nil {
		t.Fatal(err)
	}
	return idx
}
