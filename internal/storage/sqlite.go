package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/sworddrill/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SetMaxOpenConns caps the connection pool. Each in-flight request holds at most one.
func (s *SQLiteStorage) SetMaxOpenConns(n int) {
	if n > 0 {
		s.db.SetMaxOpenConns(n)
	}
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		chapter_count INTEGER NOT NULL,
		testament TEXT NOT NULL CHECK (testament IN ('OLD', 'NEW'))
	);

	CREATE TABLE IF NOT EXISTS book_abbreviations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book_id INTEGER NOT NULL REFERENCES books(id),
		abbreviation TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS verses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book INTEGER NOT NULL REFERENCES books(id),
		chapter INTEGER NOT NULL,
		verse INTEGER NOT NULL,
		words TEXT NOT NULL,
		UNIQUE (book, chapter, verse)
	);

	CREATE TABLE IF NOT EXISTS verses_html (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		book INTEGER NOT NULL REFERENCES books(id),
		chapter INTEGER NOT NULL,
		verse INTEGER NOT NULL,
		words TEXT NOT NULL,
		UNIQUE (book, chapter, verse)
	);

	CREATE INDEX IF NOT EXISTS idx_abbreviations_book ON book_abbreviations(book_id);
	`
	_, err := db.Exec(schema)
	return err
}

// verseTable maps a format to its parallel table. Both tables share one shape.
func verseTable(format models.VerseFormat) (string, error) {
	switch format {
	case models.PlainText:
		return "verses", nil
	case models.HTML:
		return "verses_html", nil
	default:
		return "", fmt.Errorf("unknown verse format: %d", format)
	}
}

// SeedBooks upserts books and their abbreviations in a single transaction.
func (s *SQLiteStorage) SeedBooks(ctx context.Context, books []models.Book, abbrevs []models.BookAbbreviation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	bookStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO books (id, name, chapter_count, testament) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name,
		 chapter_count = excluded.chapter_count, testament = excluded.testament`)
	if err != nil {
		return err
	}
	defer bookStmt.Close()
	for _, b := range books {
		if _, err := bookStmt.ExecContext(ctx, b.ID, b.Name, b.ChapterCount, string(b.Testament)); err != nil {
			return fmt.Errorf("failed to seed book %q: %w", b.Name, err)
		}
	}

	abbrevStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO book_abbreviations (book_id, abbreviation) VALUES (?, ?)
		 ON CONFLICT(abbreviation) DO UPDATE SET book_id = excluded.book_id`)
	if err != nil {
		return err
	}
	defer abbrevStmt.Close()
	for _, a := range abbrevs {
		if _, err := abbrevStmt.ExecContext(ctx, a.BookID, a.Abbreviation); err != nil {
			return fmt.Errorf("failed to seed abbreviation %q: %w", a.Abbreviation, err)
		}
	}

	return tx.Commit()
}

// BookByAbbreviation returns the book registered under abbrev. Matching is exact;
// callers lowercase the token first.
func (s *SQLiteStorage) BookByAbbreviation(ctx context.Context, abbrev string) (*models.Book, error) {
	var b models.Book
	err := s.db.QueryRowContext(ctx,
		`SELECT b.id, b.name, b.chapter_count, b.testament
		 FROM books b
		 JOIN book_abbreviations a ON a.book_id = b.id
		 WHERE a.abbreviation = ?
		 LIMIT 1`, abbrev,
	).Scan(&b.ID, &b.Name, &b.ChapterCount, &b.Testament)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("abbreviation %q: %w", abbrev, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Book returns a book by its canonical id.
func (s *SQLiteStorage) Book(ctx context.Context, id int) (*models.Book, error) {
	var b models.Book
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, chapter_count, testament FROM books WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.ChapterCount, &b.Testament)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Books returns every book in canonical order.
func (s *SQLiteStorage) Books(ctx context.Context) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, chapter_count, testament FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Name, &b.ChapterCount, &b.Testament); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Abbreviations returns the whole abbreviation table.
func (s *SQLiteStorage) Abbreviations(ctx context.Context) ([]models.BookAbbreviation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, abbreviation FROM book_abbreviations ORDER BY book_id, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BookAbbreviation
	for rows.Next() {
		var a models.BookAbbreviation
		if err := rows.Scan(&a.ID, &a.BookID, &a.Abbreviation); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Verses executes a bounded chapter query ordered by chapter then verse.
// A chapter or range with no rows yields an empty slice, not an error.
func (s *SQLiteStorage) Verses(ctx context.Context, q VerseQuery) ([]models.Verse, error) {
	table, err := verseTable(q.Format)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, book, chapter, verse, words FROM ` + table + `
		WHERE book = ? AND chapter = ?`
	args := []interface{}{q.Book, q.Chapter}
	if q.Ranged() {
		query += ` AND verse BETWEEN ? AND ?`
		args = append(args, q.Start, q.End)
	}
	query += ` ORDER BY chapter, verse`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVerses(rows)
}

// BatchInsertVerses upserts verses into the table for format in one transaction.
// Verse.ID is assigned by the database and ignored on input.
func (s *SQLiteStorage) BatchInsertVerses(ctx context.Context, format models.VerseFormat, verses []models.Verse) error {
	table, err := verseTable(format)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (book, chapter, verse, words) VALUES (?, ?, ?, ?)
		 ON CONFLICT(book, chapter, verse) DO UPDATE SET words = excluded.words`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range verses {
		if _, err := stmt.ExecContext(ctx, v.Book, v.Chapter, v.Verse, v.Words); err != nil {
			return fmt.Errorf("failed to insert %d %d:%d: %w", v.Book, v.Chapter, v.Verse, err)
		}
	}
	return tx.Commit()
}

// EachVerse streams every verse of format in canonical order. Iteration stops
// at the first error returned by fn.
func (s *SQLiteStorage) EachVerse(ctx context.Context, format models.VerseFormat, fn func(models.Verse) error) error {
	table, err := verseTable(format)
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book, chapter, verse, words FROM `+table+` ORDER BY book, chapter, verse`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var v models.Verse
		if err := rows.Scan(&v.ID, &v.Book, &v.Chapter, &v.Verse, &v.Words); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountBooks returns the number of seeded books.
func (s *SQLiteStorage) CountBooks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

// CountVerses returns the number of verses stored for format.
func (s *SQLiteStorage) CountVerses(ctx context.Context, format models.VerseFormat) (int64, error) {
	table, err := verseTable(format)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanVerses(rows *sql.Rows) ([]models.Verse, error) {
	verses := []models.Verse{}
	for rows.Next() {
		var v models.Verse
		if err := rows.Scan(&v.ID, &v.Book, &v.Chapter, &v.Verse, &v.Words); err != nil {
			return nil, err
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}
