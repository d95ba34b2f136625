// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tables detects tables on a page from the alignment of its text
// segments and renders them as Markdown pipe tables.
//
// A table is a run of consecutive lines that each split into two or more
// segments, whose segment left edges line up on shared column anchors.
package tables

import (
	"sort"
	"strings"

	"github.com/pdiddy/pdf2md/internal/geometry"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// Segment is a horizontally contiguous run of text on one line.
type Segment struct {
	BBox types.Rect
	Text string
}

// Line is one text line of a page, segments ordered left to right.
type Line struct {
	Segments []Segment
}

// BBox returns the union of the line's segment boxes.
func (l Line) BBox() types.Rect {
	boxes := make([]types.Rect, len(l.Segments))
	for i, s := range l.Segments {
		boxes[i] = s.BBox
	}
	return geometry.Union(boxes...)
}

// Config tunes detection.
type Config struct {
	// AlignmentTolerance is the distance in points within which segment
	// left edges share a column anchor.
	AlignmentTolerance float64

	// MinRows is the minimum number of lines in a table.
	MinRows int

	// MinColumns is the minimum number of column anchors in a table.
	MinColumns int

	// MaxRowGap is the largest vertical gap between consecutive rows, as a
	// multiple of the taller row's height.
	MaxRowGap float64
}

// DefaultConfig returns the detection settings used by the converter.
func DefaultConfig() Config {
	return Config{
		AlignmentTolerance: 3,
		MinRows:            2,
		MinColumns:         2,
		MaxRowGap:          2.5,
	}
}

// Detector finds tables in a page's lines.
type Detector struct {
	config Config
}

// NewDetector returns a Detector with cfg.
func NewDetector(cfg Config) *Detector {
	return &Detector{config: cfg}
}

// Detect returns the tables found in lines, top to bottom. lines must be in
// reading order.
func (d *Detector) Detect(lines []Line) []types.TableRegion {
	var regions []types.TableRegion
	var run []Line

	flush := func() {
		if region, ok := d.buildTable(run); ok {
			regions = append(regions, region)
		}
		run = nil
	}

	for _, line := range lines {
		if len(line.Segments) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && !d.adjacent(run[len(run)-1], line) {
			flush()
		}
		run = append(run, line)
	}
	flush()

	return regions
}

func (d *Detector) adjacent(prev, next Line) bool {
	a, b := prev.BBox(), next.BBox()
	height := a.Height()
	if b.Height() > height {
		height = b.Height()
	}
	return b.Y1-a.Y2 <= height*d.config.MaxRowGap
}

func (d *Detector) buildTable(rows []Line) (types.TableRegion, bool) {
	if len(rows) < d.config.MinRows {
		return types.TableRegion{}, false
	}

	anchors := d.columnAnchors(rows)
	if len(anchors) < d.config.MinColumns {
		return types.TableRegion{}, false
	}

	grid := make([][]string, len(rows))
	var boxes []types.Rect
	for i, row := range rows {
		cells := make([]string, len(anchors))
		for _, seg := range row.Segments {
			col := d.columnOf(seg.BBox.X1, anchors)
			if cells[col] != "" {
				cells[col] += " "
			}
			cells[col] += strings.TrimSpace(seg.Text)
			boxes = append(boxes, seg.BBox)
		}
		grid[i] = cells
	}

	return types.TableRegion{
		BBox:     geometry.Union(boxes...),
		Markdown: ToMarkdown(grid),
	}, true
}

// columnAnchors clusters segment left edges and keeps the anchors used by
// at least two rows.
func (d *Detector) columnAnchors(rows []Line) []float64 {
	var lefts []float64
	for _, row := range rows {
		for _, seg := range row.Segments {
			lefts = append(lefts, seg.BBox.X1)
		}
	}
	sort.Float64s(lefts)
	candidates := clusterValues(lefts, d.config.AlignmentTolerance)

	var anchors []float64
	for _, a := range candidates {
		used := 0
		for _, row := range rows {
			for _, seg := range row.Segments {
				if abs(seg.BBox.X1-a) <= d.config.AlignmentTolerance {
					used++
					break
				}
			}
		}
		if used >= 2 {
			anchors = append(anchors, a)
		}
	}
	return anchors
}

// columnOf returns the last anchor at or left of x, or 0 when x lies left of
// every anchor.
func (d *Detector) columnOf(x float64, anchors []float64) int {
	col := 0
	for i, a := range anchors {
		if a <= x+d.config.AlignmentTolerance {
			col = i
		}
	}
	return col
}

// clusterValues merges sorted values closer than tolerance to the running
// cluster centre, averaging the centre as values join.
func clusterValues(values []float64, tolerance float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	clustered := []float64{values[0]}
	for _, v := range values[1:] {
		last := len(clustered) - 1
		if v-clustered[last] > tolerance {
			clustered = append(clustered, v)
			continue
		}
		clustered[last] = (clustered[last] + v) / 2
	}
	return clustered
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// ToMarkdown renders rows as a pipe table. The first row is the header.
// Pipes and newlines inside cells are escaped.
func ToMarkdown(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, markdownRow(rows[0]))

	sep := make([]string, len(rows[0]))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "|"+strings.Join(sep, "|")+"|")

	for _, row := range rows[1:] {
		lines = append(lines, markdownRow(row))
	}
	return strings.Join(lines, "\n")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = cellEscaper.Replace(c)
	}
	return "| " + strings.Join(escaped, " | ") + " |"
}
