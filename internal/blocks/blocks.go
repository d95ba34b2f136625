// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blocks turns a page's raw parser blocks and detected table regions
// into the ordered, classified block stream the renderer consumes.
package blocks

import (
	"strings"

	"github.com/pdiddy/pdf2md/internal/geometry"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// noTable marks that the most recently appended chunk is not a table.
const noTable = -1

// Classify walks raw in order. A raw block contained by a table region is
// replaced by that table's block; consecutive raw blocks inside the same
// table yield a single table block. When a raw block lies inside several
// regions, the first region in tables order wins. Blocks outside every
// region are classified on their own shape.
func Classify(raw []types.RawBlock, tables []types.TableRegion) []types.Block {
	chunks := make([]types.Block, 0, len(raw))
	last := noTable

	for _, rb := range raw {
		idx := containingTable(tables, rb.BBox)
		if idx == noTable {
			chunks = append(chunks, ClassifyRaw(rb))
			last = noTable
			continue
		}
		if idx == last {
			continue
		}
		t := tables[idx]
		chunks = append(chunks, &types.TableBlock{Markdown: t.Markdown, BBox: t.BBox})
		last = idx
	}

	return chunks
}

func containingTable(tables []types.TableRegion, box types.Rect) int {
	for i, t := range tables {
		if geometry.Contains(t.BBox, box) {
			return i
		}
	}
	return noTable
}

// ClassifyRaw classifies a single raw block by its own shape. Text blocks
// concatenate their span texts in order; image blocks keep their payload.
// A block with neither shape becomes an empty text block.
func ClassifyRaw(rb types.RawBlock) types.Block {
	switch {
	case rb.IsText():
		text, size := foldSpans(rb.Lines)
		return &types.TextBlock{Text: text, FontSize: size, BBox: rb.BBox}
	case rb.IsImage():
		return &types.ImageBlock{Data: rb.Image.Data, Ext: rb.Image.Ext, BBox: rb.BBox}
	default:
		return &types.TextBlock{BBox: rb.BBox}
	}
}

// foldSpans joins every span's text and returns the smallest span font size.
// A block holding any small run is therefore never promoted to a large
// heading. Without spans the size is zero.
func foldSpans(lines []types.RawLine) (string, float64) {
	var b strings.Builder
	var size float64
	seen := false
	for _, line := range lines {
		for _, span := range line.Spans {
			b.WriteString(span.Text)
			if !seen || span.FontSize < size {
				size = span.FontSize
				seen = true
			}
		}
	}
	return b.String(), size
}
