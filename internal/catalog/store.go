// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog records finished conversions in a SQLite database so
// unchanged sources can be skipped and past results listed or exported.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// timeLayout has fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Source identifies an input file by path, size and modification time.
type Source struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Stat describes the local file at path. The path is made absolute so the
// same file matches regardless of the working directory.
func Stat(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Source{}, err
	}
	return Source{Path: abs, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Entry is one recorded conversion.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	SourcePath  string    `json:"source_path" yaml:"source_path"`
	Size        int64     `json:"size" yaml:"size"`
	ModTime     time.Time `json:"mod_time" yaml:"mod_time"`
	ConvertedAt time.Time `json:"converted_at" yaml:"converted_at"`

	types.ConversionResult `yaml:",inline"`
}

// Store manages the catalog database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens or creates the catalog database at path, creating its
// directory and schema when missing.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time TEXT NOT NULL,
			md_path TEXT NOT NULL,
			md_dir TEXT NOT NULL,
			pages INTEGER NOT NULL,
			images INTEGER NOT NULL,
			tables INTEGER NOT NULL,
			converted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_source ON conversions(source_path, md_dir)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a successful conversion of src and returns the new entry.
func (s *Store) Record(ctx context.Context, src Source, result types.ConversionResult) (Entry, error) {
	e := Entry{
		ID:               uuid.NewString(),
		SourcePath:       src.Path,
		Size:             src.Size,
		ModTime:          src.ModTime.UTC(),
		ConvertedAt:      s.now().UTC(),
		ConversionResult: result,
	}
	e.MarkdownPath = absPath(result.MarkdownPath)
	e.OutputDir = absPath(result.OutputDir)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, source_path, size, mod_time, md_path, md_dir, pages, images, tables, converted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourcePath, e.Size, e.ModTime.Format(timeLayout),
		e.MarkdownPath, e.OutputDir, e.Pages, e.Images, e.Tables,
		e.ConvertedAt.Format(timeLayout),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("recording conversion of %s: %w", src.Path, err)
	}
	return e, nil
}

// Unchanged returns the latest conversion of src into outputDir when the
// source size and modification time still match and the recorded Markdown
// file still exists.
func (s *Store) Unchanged(ctx context.Context, src Source, outputDir string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM conversions
		 WHERE source_path = ? AND md_dir = ?
		 ORDER BY converted_at DESC LIMIT 1`,
		src.Path, absPath(outputDir),
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up %s: %w", src.Path, err)
	}

	if e.Size != src.Size || !e.ModTime.Equal(src.ModTime.UTC()) {
		return Entry{}, false, nil
	}
	if _, err := os.Stat(e.MarkdownPath); err != nil {
		return Entry{}, false, nil
	}
	return e, true, nil
}

// absPath keys output locations by absolute path so relative and absolute
// spellings of one directory match.
func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// List returns every recorded conversion, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM conversions ORDER BY converted_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversion: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const columns = `id, source_path, size, mod_time, md_path, md_dir, pages, images, tables, converted_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var modTime, convertedAt string
	err := row.Scan(&e.ID, &e.SourcePath, &e.Size, &modTime,
		&e.MarkdownPath, &e.OutputDir, &e.Pages, &e.Images, &e.Tables, &convertedAt)
	if err != nil {
		return Entry{}, err
	}
	if e.ModTime, err = time.Parse(timeLayout, modTime); err != nil {
		return Entry{}, fmt.Errorf("parsing mod_time: %w", err)
	}
	if e.ConvertedAt, err = time.Parse(timeLayout, convertedAt); err != nil {
		return Entry{}, fmt.Errorf("parsing converted_at: %w", err)
	}
	return e, nil
}
