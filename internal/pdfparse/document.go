// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfparse reads a PDF with github.com/ledongthuc/pdf and reports
// each page as raw text/image blocks plus detected table regions, all in a
// top-left-origin page coordinate space.
package pdfparse

import (
	"fmt"
	"os"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/pdf2md/internal/tables"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// Default page size (US Letter) when a page has no usable MediaBox.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// Options tunes page reading.
type Options struct {
	// NormalizeText applies NFKC normalization to glyph text.
	NormalizeText bool

	// WideGap splits a line into segments where the horizontal gap between
	// glyphs exceeds WideGap times the font size.
	WideGap float64

	// Tables configures table detection.
	Tables tables.Config
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		NormalizeText: true,
		WideGap:       1.5,
		Tables:        tables.DefaultConfig(),
	}
}

// Document is an open PDF file.
type Document struct {
	path     string
	file     *os.File
	reader   *pdf.Reader
	opts     Options
	detector *tables.Detector
	jpegs    *jpegIndex
	warnings []string
}

// Open opens the PDF at path. Failures wrap types.ErrSourceRead.
func Open(path string, opts Options) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: parsing %s: %v", types.ErrSourceRead, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", types.ErrSourceRead, path, err)
	}

	return &Document{
		path:     path,
		file:     f,
		reader:   r,
		opts:     opts,
		detector: tables.NewDetector(opts.Tables),
	}, nil
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// Warnings returns non-fatal problems found so far, such as images in an
// encoding the reader cannot extract.
func (d *Document) Warnings() []string {
	return d.warnings
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}

func (d *Document) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// Page reads the zero-based page index. Blocks are ordered top to bottom,
// then left to right.
func (d *Document) Page(index int) (page types.RawPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: page %d of %s: %v", types.ErrSourceRead, index, d.path, r)
		}
	}()

	if index < 0 || index >= d.NumPages() {
		return page, fmt.Errorf("%w: page %d out of range (%d pages)", types.ErrSourceRead, index, d.NumPages())
	}

	p := d.reader.Page(index + 1)
	if p.V.IsNull() {
		return page, fmt.Errorf("%w: page %d of %s is missing", types.ErrSourceRead, index, d.path)
	}

	space := newPageSpace(mediaBox(p.V))
	lines := buildLines(p.Content().Text, space, d.opts)

	blocks := textBlocks(lines)
	blocks = append(blocks, d.imageBlocks(p, index, space)...)
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].BBox.Y1 != blocks[j].BBox.Y1 {
			return blocks[i].BBox.Y1 < blocks[j].BBox.Y1
		}
		return blocks[i].BBox.X1 < blocks[j].BBox.X1
	})

	page.Blocks = blocks
	page.Tables = d.detector.Detect(tableLines(lines))
	return page, nil
}

// mediaBox returns the page's MediaBox, following Parent for inherited
// values.
func mediaBox(v pdf.Value) [4]float64 {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		box := node.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			return [4]float64{
				box.Index(0).Float64(), box.Index(1).Float64(),
				box.Index(2).Float64(), box.Index(3).Float64(),
			}
		}
	}
	return [4]float64{0, 0, defaultPageWidth, defaultPageHeight}
}

// pageSpace maps PDF user space (bottom-left origin) to the top-left-origin
// space used for blocks and tables.
type pageSpace struct {
	left, top float64
}

func newPageSpace(box [4]float64) pageSpace {
	left, top := box[0], box[3]
	if box[2] < left {
		left = box[2]
	}
	if box[1] > top {
		top = box[1]
	}
	return pageSpace{left: left, top: top}
}

// rect converts a user-space box given by two corners.
func (s pageSpace) rect(x1, y1, x2, y2 float64) types.Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return types.Rect{
		X1: x1 - s.left,
		Y1: s.top - y2,
		X2: x2 - s.left,
		Y2: s.top - y1,
	}
}
