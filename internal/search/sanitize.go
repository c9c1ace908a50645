package search

import (
	"regexp"
	"strings"

	"github.com/hyperjump/sworddrill/internal/keyword"
)

var nonWord = regexp.MustCompile(`[^a-zA-Z ]+`)

// Sanitize turns free text into a safe full-text expression. Everything but
// ASCII letters and spaces is removed, which also strips index control syntax.
// A double quote anywhere in the input requests a phrase match. Terms are
// lowercased; the result is empty when nothing searchable remains.
func Sanitize(query string) keyword.Expression {
	phrase := strings.Contains(query, `"`)
	cleaned := strings.ToLower(nonWord.ReplaceAllString(query, ""))
	return keyword.Expression{
		Terms:  strings.Fields(cleaned),
		Phrase: phrase,
	}
}
