// Package canon holds the closed 66-book Protestant canon with KJV chapter
// counts and the abbreviations each book resolves from.
package canon

import (
	"strings"

	"github.com/hyperjump/sworddrill/internal/models"
)

// Entry is a canonical book and its lowercase abbreviations. The lowercase
// canonical name is always one of them.
type Entry struct {
	models.Book
	Abbreviations []string
}

type numbered struct {
	n     int
	stems []string
}

type def struct {
	name     string
	chapters int
	abbrevs  []string
	series   *numbered
}

var ordinals = map[int][]string{
	1: {"1", "i", "first", "1st"},
	2: {"2", "ii", "second", "2nd"},
	3: {"3", "iii", "third", "3rd"},
}

func n(i int, stems ...string) *numbered { return &numbered{n: i, stems: stems} }

var samuel = []string{"samuel", "sam", "sa", "sm"}
var kings = []string{"kings", "kgs", "kin", "ki", "kg"}
var chronicles = []string{"chronicles", "chron", "chr", "ch"}
var corinthians = []string{"corinthians", "cor", "co"}
var thessalonians = []string{"thessalonians", "thess", "thes", "th"}
var timothy = []string{"timothy", "tim", "ti"}
var peter = []string{"peter", "pet", "pe", "pt"}
var epistleJohn = []string{"john", "jhn", "jn", "jo"}

var oldTestament = []def{
	{"Genesis", 50, []string{"gen", "ge", "gn"}, nil},
	{"Exodus", 40, []string{"exod", "exo", "ex"}, nil},
	{"Leviticus", 27, []string{"lev", "le", "lv"}, nil},
	{"Numbers", 36, []string{"num", "nu", "nm", "nb"}, nil},
	{"Deuteronomy", 34, []string{"deut", "deu", "de", "dt"}, nil},
	{"Joshua", 24, []string{"josh", "jos", "jsh"}, nil},
	{"Judges", 21, []string{"judg", "jdg", "jg", "jdgs"}, nil},
	{"Ruth", 4, []string{"rth", "ru"}, nil},
	{"1 Samuel", 31, nil, n(1, samuel...)},
	{"2 Samuel", 24, nil, n(2, samuel...)},
	{"1 Kings", 22, nil, n(1, kings...)},
	{"2 Kings", 25, nil, n(2, kings...)},
	{"1 Chronicles", 29, nil, n(1, chronicles...)},
	{"2 Chronicles", 36, nil, n(2, chronicles...)},
	{"Ezra", 10, []string{"ezr"}, nil},
	{"Nehemiah", 13, []string{"neh", "ne"}, nil},
	{"Esther", 10, []string{"esth", "est", "es"}, nil},
	{"Job", 42, []string{"jb"}, nil},
	{"Psalms", 150, []string{"ps", "psa", "psalm", "pss", "psm"}, nil},
	{"Proverbs", 31, []string{"prov", "pro", "prv", "pr"}, nil},
	{"Ecclesiastes", 12, []string{"eccles", "eccl", "ecc", "ec", "qoh"}, nil},
	{"Song of Solomon", 8, []string{"song", "sos", "sng", "song of songs", "canticles", "so"}, nil},
	{"Isaiah", 66, []string{"isa", "is"}, nil},
	{"Jeremiah", 52, []string{"jer", "je", "jr"}, nil},
	{"Lamentations", 5, []string{"lam", "la"}, nil},
	{"Ezekiel", 48, []string{"ezek", "eze", "ezk"}, nil},
	{"Daniel", 12, []string{"dan", "da", "dn"}, nil},
	{"Hosea", 14, []string{"hos", "ho"}, nil},
	{"Joel", 3, []string{"jl", "jol"}, nil},
	{"Amos", 9, []string{"amo", "am"}, nil},
	{"Obadiah", 1, []string{"obad", "oba", "ob"}, nil},
	{"Jonah", 4, []string{"jnh", "jon"}, nil},
	{"Micah", 7, []string{"mic", "mc"}, nil},
	{"Nahum", 3, []string{"nah", "nam", "na"}, nil},
	{"Habakkuk", 3, []string{"hab", "hb"}, nil},
	{"Zephaniah", 3, []string{"zeph", "zep", "zp"}, nil},
	{"Haggai", 2, []string{"hag", "hg"}, nil},
	{"Zechariah", 14, []string{"zech", "zec", "zc"}, nil},
	{"Malachi", 4, []string{"mal", "ml"}, nil},
}

var newTestament = []def{
	{"Matthew", 28, []string{"matt", "mat", "mt"}, nil},
	{"Mark", 16, []string{"mrk", "mk", "mr"}, nil},
	{"Luke", 24, []string{"luk", "lk"}, nil},
	{"John", 21, []string{"jhn", "joh", "jn"}, nil},
	{"Acts", 28, []string{"act", "ac"}, nil},
	{"Romans", 16, []string{"rom", "ro", "rm"}, nil},
	{"1 Corinthians", 16, nil, n(1, corinthians...)},
	{"2 Corinthians", 13, nil, n(2, corinthians...)},
	{"Galatians", 6, []string{"gal", "ga"}, nil},
	{"Ephesians", 6, []string{"ephes", "eph"}, nil},
	{"Philippians", 4, []string{"phil", "php", "pp"}, nil},
	{"Colossians", 4, []string{"col"}, nil},
	{"1 Thessalonians", 5, nil, n(1, thessalonians...)},
	{"2 Thessalonians", 3, nil, n(2, thessalonians...)},
	{"1 Timothy", 6, nil, n(1, timothy...)},
	{"2 Timothy", 4, nil, n(2, timothy...)},
	{"Titus", 3, []string{"tit"}, nil},
	{"Philemon", 1, []string{"philem", "phm", "pm"}, nil},
	{"Hebrews", 13, []string{"heb"}, nil},
	{"James", 5, []string{"jas", "jm"}, nil},
	{"1 Peter", 5, nil, n(1, peter...)},
	{"2 Peter", 3, nil, n(2, peter...)},
	{"1 John", 5, nil, n(1, epistleJohn...)},
	{"2 John", 1, nil, n(2, epistleJohn...)},
	{"3 John", 1, nil, n(3, epistleJohn...)},
	{"Jude", 1, []string{"jud", "jd"}, nil},
	{"Revelation", 22, []string{"rev", "re", "rv", "revelations", "apocalypse"}, nil},
}

var entries = build()

func build() []Entry {
	out := make([]Entry, 0, len(oldTestament)+len(newTestament))
	add := func(defs []def, t models.Testament) {
		for _, d := range defs {
			out = append(out, Entry{
				Book: models.Book{
					ID:           len(out) + 1,
					Name:         d.name,
					ChapterCount: d.chapters,
					Testament:    t,
				},
				Abbreviations: d.abbreviations(),
			})
		}
	}
	add(oldTestament, models.OldTestament)
	add(newTestament, models.NewTestament)
	return out
}

func (d def) abbreviations() []string {
	seen := map[string]bool{}
	var out []string
	push := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	push(strings.ToLower(d.name))
	for _, a := range d.abbrevs {
		push(a)
	}
	if d.series == nil {
		return out
	}
	for _, stem := range d.series.stems {
		for i, prefix := range ordinals[d.series.n] {
			push(prefix + " " + stem)
			if i == 0 {
				push(prefix + stem)
			}
		}
	}
	return out
}

// Entries returns the canon in Bible order. The slice is a copy.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Books returns the 66 books in Bible order.
func Books() []models.Book {
	books := make([]models.Book, len(entries))
	for i, e := range entries {
		books[i] = e.Book
	}
	return books
}

// Abbreviations flattens every entry into abbreviation rows keyed by book id.
func Abbreviations() []models.BookAbbreviation {
	var rows []models.BookAbbreviation
	for _, e := range entries {
		for _, a := range e.Abbreviations {
			rows = append(rows, models.BookAbbreviation{BookID: e.ID, Abbreviation: a})
		}
	}
	return rows
}

// ByID returns the book with the given 1-based id.
func ByID(id int) (models.Book, bool) {
	if id < 1 || id > len(entries) {
		return models.Book{}, false
	}
	return entries[id-1].Book, true
}

// Lookup matches a token case-insensitively against the abbreviation table
// without touching storage.
func Lookup(token string) (models.Book, bool) {
	id, ok := index[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return models.Book{}, false
	}
	return entries[id-1].Book, true
}

var index = func() map[string]int {
	m := make(map[string]int)
	for _, e := range entries {
		for _, a := range e.Abbreviations {
			m[a] = e.ID
		}
	}
	return m
}()
