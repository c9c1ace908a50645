package reference

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/sworddrill/internal/models"
)

// MaxLength is the longest citation string, in characters, that Parse accepts.
const MaxLength = 100

// maxDigits bounds chapter and verse numbers to 1-3 decimal digits.
const maxDigits = 3

type parseState int

const (
	stateInit parseState = iota
	stateBook
	stateChapter
	stateVerseFrom
	stateVerseTo
)

// Parse turns a raw citation into a Reference with a single pass over its
// characters. The book token is everything up to the first digit; the chapter
// is mandatory; ":" or "." introduces the verse and "-" the end of a verse range.
// Characters that do not fit the current state are skipped, so trailing text
// after a number is ignored rather than rejected.
func Parse(raw string) (Reference, error) {
	if raw == "" || utf8.RuneCountInString(raw) > MaxLength {
		return Reference{}, invalid(raw)
	}

	var book, chapter, from, to strings.Builder
	state := stateInit
	for _, c := range raw {
		switch state {
		case stateInit:
			book.WriteRune(c)
			state = stateBook
		case stateBook:
			switch {
			case unicode.IsLetter(c) || unicode.IsSpace(c):
				book.WriteRune(c)
			case isDigit(c):
				chapter.WriteRune(c)
				state = stateChapter
			}
		case stateChapter:
			switch {
			case isDigit(c):
				chapter.WriteRune(c)
			case c == ':' || c == '.':
				state = stateVerseFrom
			}
		case stateVerseFrom:
			switch {
			case isDigit(c):
				from.WriteRune(c)
			case c == '-':
				state = stateVerseTo
			}
		case stateVerseTo:
			if isDigit(c) {
				to.WriteRune(c)
			}
		}
	}

	ref := Reference{Book: strings.TrimSpace(book.String())}
	if ref.Book == "" {
		return Reference{}, invalid(raw)
	}
	var ok bool
	if ref.Chapter, ok = parseNumber(chapter.String()); !ok {
		return Reference{}, invalid(raw)
	}
	if from.Len() == 0 {
		return ref, nil
	}

	start, ok := parseNumber(from.String())
	if !ok {
		return Reference{}, invalid(raw)
	}
	end := start
	if to.Len() > 0 {
		if end, ok = parseNumber(to.String()); !ok || end < start {
			return Reference{}, invalid(raw)
		}
	}
	ref.Verses = &VerseRange{Start: start, End: end}
	return ref, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(raw string) Reference {
	ref, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return ref
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func parseNumber(s string) (int, bool) {
	if s == "" || len(s) > maxDigits {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func invalid(raw string) error {
	return &models.InvalidReferenceError{Reference: raw}
}
