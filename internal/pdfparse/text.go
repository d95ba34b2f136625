// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfparse

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/pdf2md/internal/geometry"
	"github.com/pdiddy/pdf2md/internal/tables"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// Glyph box proportions relative to the font size, measured from the
// baseline.
const (
	ascent  = 0.8
	descent = 0.2
)

// Gaps relative to the font size.
const (
	wordGap     = 0.25 // inserts a space between glyphs
	baselineTol = 0.3  // glyphs on the same baseline
	lineTol     = 0.5  // fragments on the same visual line
	backtrack   = 0.5  // glyph may overlap its predecessor by this much
	leadingMax  = 0.8  // largest gap between lines of one paragraph
	sizeTol     = 0.5  // largest size difference within a paragraph, in points
)

type glyph struct {
	text string
	size float64
	base float64
	box  types.Rect
}

type segment struct {
	glyphs []glyph
	box    types.Rect
}

// text joins the segment's glyphs, inserting a space at word gaps.
func (s segment) text() string {
	var b strings.Builder
	for i, g := range s.glyphs {
		if i > 0 && needsGap(s.glyphs[i-1], g) {
			b.WriteByte(' ')
		}
		b.WriteString(g.text)
	}
	return b.String()
}

// spans groups consecutive glyphs of equal size.
func (s segment) spans() []types.RawSpan {
	var out []types.RawSpan
	var b strings.Builder
	size := 0.0
	for i, g := range s.glyphs {
		if i > 0 && math.Abs(g.size-size) > 0.05 {
			out = append(out, types.RawSpan{Text: b.String(), FontSize: size})
			b.Reset()
		}
		if i > 0 && needsGap(s.glyphs[i-1], g) {
			b.WriteByte(' ')
		}
		b.WriteString(g.text)
		size = g.size
	}
	if b.Len() > 0 {
		out = append(out, types.RawSpan{Text: b.String(), FontSize: size})
	}
	return out
}

func needsGap(prev, cur glyph) bool {
	if strings.HasSuffix(prev.text, " ") || strings.HasPrefix(cur.text, " ") {
		return false
	}
	return cur.box.X1-prev.box.X2 > wordGap*math.Max(prev.size, cur.size)
}

type textLine struct {
	segments []segment
	base     float64
	size     float64
}

// buildLines groups the page's glyphs into visual lines, top to bottom.
// Glyphs are first chained into fragments in content order, so text drawn
// column by column still lands on the right line; fragments sharing a
// baseline then merge into one line and split into segments at wide gaps.
func buildLines(texts []pdf.Text, space pageSpace, opts Options) []textLine {
	frags := fragments(glyphs(texts, space, opts.NormalizeText))
	sort.SliceStable(frags, func(i, j int) bool { return frags[i][0].base < frags[j][0].base })

	var lines []textLine
	var cur []glyph
	curBase, curSize := 0.0, 0.0
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, splitLine(cur, curBase, curSize, opts.WideGap))
		}
		cur = nil
	}
	for _, f := range frags {
		size := fragmentSize(f)
		if len(cur) > 0 && math.Abs(f[0].base-curBase) <= lineTol*math.Max(size, curSize) {
			cur = append(cur, f...)
			curSize = math.Max(curSize, size)
			continue
		}
		flush()
		cur = append(cur, f...)
		curBase, curSize = f[0].base, size
	}
	flush()
	return lines
}

func glyphs(texts []pdf.Text, space pageSpace, normalize bool) []glyph {
	out := make([]glyph, 0, len(texts))
	for _, t := range texts {
		s := t.S
		if normalize {
			s = norm.NFKC.String(s)
		}
		if s == "" {
			continue
		}
		size := math.Abs(t.FontSize)
		if size == 0 {
			continue
		}
		w := t.W
		if w <= 0 {
			w = size * 0.5 * float64(utf8.RuneCountInString(s))
		}
		box := space.rect(t.X, t.Y-descent*size, t.X+w, t.Y+ascent*size)
		out = append(out, glyph{text: s, size: size, base: space.top - t.Y, box: box})
	}
	return out
}

// fragments chains glyphs that continue rightward on the same baseline.
func fragments(gs []glyph) [][]glyph {
	var out [][]glyph
	var cur []glyph
	for _, g := range gs {
		if n := len(cur); n > 0 {
			prev := cur[n-1]
			tol := math.Max(prev.size, g.size)
			if math.Abs(g.base-prev.base) <= baselineTol*tol && g.box.X1 >= prev.box.X2-backtrack*tol {
				cur = append(cur, g)
				continue
			}
			out = append(out, cur)
		}
		cur = []glyph{g}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func fragmentSize(f []glyph) float64 {
	size := 0.0
	for _, g := range f {
		size = math.Max(size, g.size)
	}
	return size
}

// splitLine orders a line's glyphs left to right and cuts segments where the
// gap exceeds wideGap times the font size. Whitespace glyphs never start a
// segment.
func splitLine(gs []glyph, base, size, wideGap float64) textLine {
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].box.X1 < gs[j].box.X1 })

	line := textLine{base: base, size: size}
	var cur []glyph
	right := 0.0
	flush := func() {
		cur = trimSpaces(cur)
		if len(cur) == 0 {
			return
		}
		boxes := make([]types.Rect, len(cur))
		for i, g := range cur {
			boxes[i] = g.box
		}
		line.segments = append(line.segments, segment{glyphs: cur, box: geometry.Union(boxes...)})
	}
	for _, g := range gs {
		blank := strings.TrimSpace(g.text) == ""
		if len(cur) > 0 && !blank && g.box.X1-right > wideGap*math.Max(g.size, size) {
			flush()
			cur = nil
		}
		if len(cur) == 0 && blank {
			continue
		}
		cur = append(cur, g)
		if !blank {
			right = g.box.X2
		}
	}
	flush()
	return line
}

func trimSpaces(gs []glyph) []glyph {
	for len(gs) > 0 && strings.TrimSpace(gs[len(gs)-1].text) == "" {
		gs = gs[:len(gs)-1]
	}
	return gs
}

// textBlocks groups lines into raw blocks. Consecutive single-segment lines
// with close leading, overlapping extent and the same size form one
// paragraph; every segment of a multi-segment line is a block of its own.
func textBlocks(lines []textLine) []types.RawBlock {
	var blocks []types.RawBlock
	var para *types.RawBlock
	var prev segment
	var prevSize float64

	flush := func() {
		if para != nil {
			blocks = append(blocks, *para)
			para = nil
		}
	}

	for _, ln := range lines {
		if len(ln.segments) == 0 {
			continue
		}
		if len(ln.segments) > 1 {
			flush()
			for _, s := range ln.segments {
				blocks = append(blocks, types.RawBlock{
					BBox:  s.box,
					Lines: []types.RawLine{{Spans: s.spans()}},
				})
			}
			continue
		}

		s := ln.segments[0]
		if para != nil && continuesParagraph(prev, prevSize, s, ln.size) {
			joinLines(para, s.spans())
			para.BBox = geometry.Union(para.BBox, s.box)
		} else {
			flush()
			para = &types.RawBlock{BBox: s.box, Lines: []types.RawLine{{Spans: s.spans()}}}
		}
		prev, prevSize = s, ln.size
	}
	flush()
	return blocks
}

func continuesParagraph(prev segment, prevSize float64, cur segment, size float64) bool {
	if math.Abs(prevSize-size) > sizeTol {
		return false
	}
	gap := cur.box.Y1 - prev.box.Y2
	if gap < -lineTol*size || gap > leadingMax*size {
		return false
	}
	return cur.box.X1 < prev.box.X2 && prev.box.X1 < cur.box.X2
}

// joinLines appends a line to a paragraph block. Lines of alphabetic text
// are separated by a space; ideographic text joins directly.
func joinLines(block *types.RawBlock, spans []types.RawSpan) {
	last := &block.Lines[len(block.Lines)-1]
	if n := len(last.Spans); n > 0 && len(spans) > 0 {
		tail := &last.Spans[n-1]
		prev, _ := utf8.DecodeLastRuneInString(tail.Text)
		next, _ := utf8.DecodeRuneInString(spans[0].Text)
		if !isIdeographic(prev) && !isIdeographic(next) && prev != '-' {
			tail.Text += " "
		}
	}
	block.Lines = append(block.Lines, types.RawLine{Spans: spans})
}

func isIdeographic(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		unicode.In(r, unicode.Ideographic) || (r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}

// tableLines converts lines for the table detector.
func tableLines(lines []textLine) []tables.Line {
	out := make([]tables.Line, 0, len(lines))
	for _, ln := range lines {
		tl := tables.Line{Segments: make([]tables.Segment, 0, len(ln.segments))}
		for _, s := range ln.segments {
			tl.Segments = append(tl.Segments, tables.Segment{BBox: s.box, Text: s.text()})
		}
		if len(tl.Segments) > 0 {
			out = append(out, tl)
		}
	}
	return out
}
