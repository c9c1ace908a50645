// Package cli renders lookup, search and book listings for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/sworddrill/internal/models"
	"github.com/hyperjump/sworddrill/internal/reference"
	"github.com/hyperjump/sworddrill/internal/search"
	"github.com/hyperjump/sworddrill/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// Writer renders results to an io.Writer.
type Writer struct {
	out    io.Writer
	format OutputFormat
	// Emphasis markers substituted for <em> in text output.
	on, off string
	// Truncate search hits to this many characters in text output; 0 keeps all.
	maxHit int
}

// NewWriter returns a writer for format. color enables ANSI bold for
// highlighted search terms.
func NewWriter(out io.Writer, format OutputFormat, color bool) *Writer {
	w := &Writer{out: out, format: format}
	if color {
		w.on, w.off = utils.ANSIBold, utils.ANSIReset
	}
	return w
}

// WithMaxHitLength truncates search hit text in text output.
func (w *Writer) WithMaxHitLength(n int) *Writer {
	w.maxHit = n
	return w
}

func (w *Writer) json(v interface{}) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Passage prints the canonical reference followed by one "verse words" line per verse.
func (w *Writer) Passage(p *search.Passage) error {
	if w.format == OutputJSON {
		return w.json(passageJSON{
			Book:            p.Book,
			Reference:       p.Reference,
			ReferenceString: p.Reference.String(),
			Verses:          p.Verses,
		})
	}
	fmt.Fprintln(w.out, p.Reference.String())
	for _, v := range p.Verses {
		fmt.Fprintf(w.out, "%d %s\n", v.Verse, v.Words)
	}
	return nil
}

type passageJSON struct {
	Book            models.Book         `json:"book"`
	Reference       reference.Reference `json:"reference"`
	ReferenceString string              `json:"reference_string"`
	Verses          []models.Verse      `json:"verses"`
}

// SearchResults prints one block per hit: the citation, then the highlighted text.
func (w *Writer) SearchResults(results []models.SearchResult) error {
	if w.format == OutputJSON {
		return w.json(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(w.out, "No matches.")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(w.out, "%s %d:%d\n", r.Book.Name, r.Hit.Chapter, r.Hit.Verse)
		text := utils.Emphasize(r.Hit.Words, w.on, w.off)
		if w.maxHit > 0 && w.on == "" {
			text = utils.Truncate(text, w.maxHit)
		}
		fmt.Fprintf(w.out, "    %s\n", text)
	}
	return nil
}

// Lookup prints a passage when there is one, otherwise the search matches.
func (w *Writer) Lookup(res *search.LookupResult) error {
	if res.Passage != nil {
		return w.Passage(res.Passage)
	}
	return w.SearchResults(res.Matches)
}

// Books lists the canon, one "id name (chapters)" line per book.
func (w *Writer) Books(books []models.Book) error {
	if w.format == OutputJSON {
		return w.json(map[string]interface{}{"books": books})
	}
	for _, b := range books {
		fmt.Fprintf(w.out, "%2d  %-16s %3d chapters  %s\n", b.ID, b.Name, b.ChapterCount, b.Testament)
	}
	return nil
}

// Book prints a single book and its chapter numbers.
func (w *Writer) Book(b *models.Book, chapters []int) error {
	if w.format == OutputJSON {
		return w.json(map[string]interface{}{"book": b, "chapters": chapters})
	}
	fmt.Fprintf(w.out, "%s (%s), %d chapters\n", b.Name, b.Testament, b.ChapterCount)
	for i, c := range chapters {
		if i > 0 {
			fmt.Fprint(w.out, " ")
		}
		fmt.Fprint(w.out, c)
	}
	fmt.Fprintln(w.out)
	return nil
}

// Status summarizes the corpus.
type Status struct {
	Books       int64  `json:"books"`
	Verses      int64  `json:"verses"`
	HTMLVerses  int64  `json:"html_verses"`
	IndexedDocs uint64 `json:"indexed_docs"`
	DiskBytes   int64  `json:"disk_bytes"`
	Database    string `json:"database"`
	Index       string `json:"index"`
}

// Status prints corpus counts and disk usage.
func (w *Writer) Status(s Status) error {
	if w.format == OutputJSON {
		return w.json(s)
	}
	fmt.Fprintf(w.out, "Database:     %s\n", s.Database)
	fmt.Fprintf(w.out, "Index:        %s\n", s.Index)
	fmt.Fprintf(w.out, "Books:        %d\n", s.Books)
	fmt.Fprintf(w.out, "Verses:       %d (html %d)\n", s.Verses, s.HTMLVerses)
	fmt.Fprintf(w.out, "Indexed:      %d\n", s.IndexedDocs)
	fmt.Fprintf(w.out, "Disk usage:   %s\n", HumanBytes(s.DiskBytes))
	return nil
}

// HumanBytes formats n with a binary unit suffix.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
