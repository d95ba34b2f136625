// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert drives a PDF-to-Markdown conversion: it reads each page
// from the parser, classifies and renders it, and assembles the pages into
// one Markdown file next to an images/ directory.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2md/internal/blocks"
	"github.com/pdiddy/pdf2md/internal/render"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// PageSeparator is appended after every page when separators are enabled.
const PageSeparator = "\n\n------------\n\n"

// Document is an opened source PDF as seen by the converter. Page indices
// are zero-based.
type Document interface {
	NumPages() int
	Page(index int) (types.RawPage, error)
	// Warnings lists non-fatal problems found while reading pages.
	Warnings() []string
	Close() error
}

// OpenFunc opens the PDF at path.
type OpenFunc func(path string) (Document, error)

// Converter converts one PDF per Convert call. It keeps no state between
// calls, so separate conversions may run concurrently as long as they use
// distinct output directories.
type Converter struct {
	Open   OpenFunc
	Codec  render.Codec
	FS     afero.Fs
	Config types.ConversionConfig

	// Log receives progress lines. Nil discards them.
	Log io.Writer
}

// New returns a Converter writing to the OS filesystem.
func New(open OpenFunc, codec render.Codec, cfg types.ConversionConfig, log io.Writer) *Converter {
	return &Converter{
		Open:   open,
		Codec:  codec,
		FS:     afero.NewOsFs(),
		Config: cfg,
		Log:    log,
	}
}

// Convert reads the PDF at pdfPath and writes <basename>.md plus extracted
// images into outputDir. The Markdown file is committed only after every
// page has rendered; the first error aborts the conversion.
func (c *Converter) Convert(ctx context.Context, pdfPath, outputDir string) (types.ConversionResult, error) {
	var result types.ConversionResult
	w := c.Log
	if w == nil {
		w = io.Discard
	}

	doc, err := c.Open(pdfPath)
	if err != nil {
		return result, sourceError(pdfPath, err)
	}
	defer doc.Close()

	mdPath, err := PrepareOutput(c.FS, pdfPath, outputDir)
	if err != nil {
		return result, err
	}

	images := &render.DirWriter{
		FS:    c.FS,
		Dir:   filepath.Join(outputDir, render.ImagesDir),
		Codec: c.Codec,
	}

	total := doc.NumPages()
	fragments := make([]string, 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		raw, err := doc.Page(i)
		if err != nil {
			return result, sourceError(pdfPath, err)
		}

		page := types.PageContent{Number: i, Chunks: blocks.Classify(raw.Blocks, raw.Tables)}
		fragment, written, err := render.Page(page, images)
		if err != nil {
			return result, err
		}
		fragments = append(fragments, fragment)

		tables := countTables(page.Chunks)
		result.Images += written
		result.Tables += tables
		fmt.Fprintf(w, "page %d/%d: %d blocks, %d tables, %d images\n",
			i+1, total, len(page.Chunks), tables, written)
	}

	for _, warning := range doc.Warnings() {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}

	if err := WriteMarkdown(c.FS, mdPath, Assemble(fragments, c.Config.PageSeparator)); err != nil {
		return result, err
	}

	result.MarkdownPath = mdPath
	result.OutputDir = outputDir
	result.Pages = total
	fmt.Fprintf(w, "converted: %s -> %s\n", filepath.Base(pdfPath), mdPath)
	return result, nil
}

func sourceError(path string, err error) error {
	if errors.Is(err, types.ErrSourceRead) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", types.ErrSourceRead, path, err)
}

func countTables(chunks []types.Block) int {
	n := 0
	for _, c := range chunks {
		if _, ok := c.(*types.TableBlock); ok {
			n++
		}
	}
	return n
}

// MarkdownName returns the output file name for pdfPath: its base name with
// the extension replaced by .md.
func MarkdownName(pdfPath string) string {
	base := filepath.Base(pdfPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".md"
}

// PrepareOutput creates outputDir and its images/ subdirectory if absent and
// returns the Markdown path for pdfPath.
func PrepareOutput(fs afero.Fs, pdfPath, outputDir string) (string, error) {
	for _, dir := range []string{outputDir, filepath.Join(outputDir, render.ImagesDir)} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("%w: creating %s: %w", types.ErrOutputWrite, dir, err)
		}
	}
	return filepath.Join(outputDir, MarkdownName(pdfPath)), nil
}

// Assemble joins page fragments in order, appending PageSeparator after
// each page, the last included, when withSeparator is set.
func Assemble(fragments []string, withSeparator bool) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f)
		if withSeparator {
			b.WriteString(PageSeparator)
		}
	}
	return b.String()
}

// WriteMarkdown writes content to path through a temporary file in the same
// directory and renames it into place, so readers never observe a partial
// file.
func WriteMarkdown(fs afero.Fs, path, content string) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), ".pdf2md-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", types.ErrOutputWrite, err)
	}
	tmpPath := tmp.Name()

	_, writeErr := io.WriteString(tmp, content)
	closeErr := tmp.Close()
	if writeErr != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %w", types.ErrOutputWrite, path, writeErr)
	}
	if closeErr != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("%w: closing temp file: %w", types.ErrOutputWrite, closeErr)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("%w: renaming temp file to %s: %w", types.ErrOutputWrite, path, err)
	}
	return nil
}
