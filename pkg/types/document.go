// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the records shared between pipeline stages: raw parser
// output, classified page blocks, conversion results, and configuration.
package types

// Rect is an axis-aligned bounding box in page space. The origin is the
// top-left corner of the page and Y grows downward, so X1<=X2 and Y1<=Y2 for
// well-formed boxes.
type Rect struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

// Width returns X2-X1.
func (r Rect) Width() float64 { return r.X2 - r.X1 }

// Height returns Y2-Y1.
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// RawSpan is a run of text sharing one font size.
type RawSpan struct {
	Text     string  `json:"text" yaml:"text"`
	FontSize float64 `json:"font_size" yaml:"font_size"`
}

// RawLine is one line of a text block.
type RawLine struct {
	Spans []RawSpan `json:"spans" yaml:"spans"`
}

// RawImage is an embedded image payload as produced by the parser. Ext is the
// format hint used both for decoding and for the output file extension.
type RawImage struct {
	Data []byte `json:"-" yaml:"-"`
	Ext  string `json:"ext" yaml:"ext"`
}

// RawBlock is a structural unit of a page before classification. A text block
// carries Lines, an image block carries Image. A block with neither is
// malformed parser output.
type RawBlock struct {
	BBox  Rect      `json:"bbox" yaml:"bbox"`
	Lines []RawLine `json:"lines,omitempty" yaml:"lines,omitempty"`
	Image *RawImage `json:"image,omitempty" yaml:"image,omitempty"`
}

// IsText reports whether the block has line structure.
func (b RawBlock) IsText() bool { return b.Lines != nil }

// IsImage reports whether the block carries an image payload.
func (b RawBlock) IsImage() bool { return b.Image != nil }

// TableRegion is a detected table: its extent on the page and its body
// already rendered as Markdown.
type TableRegion struct {
	BBox     Rect   `json:"bbox" yaml:"bbox"`
	Markdown string `json:"markdown" yaml:"markdown"`
}

// RawPage is everything the parser reports for one page, in the parser's
// block order.
type RawPage struct {
	Blocks []RawBlock    `json:"blocks" yaml:"blocks"`
	Tables []TableRegion `json:"tables" yaml:"tables"`
}

// Block is a classified page block: exactly one of *TextBlock, *ImageBlock
// or *TableBlock. The interface is sealed.
type Block interface {
	Bounds() Rect
	sealed()
}

// TextBlock is text to be passed through heading classification. FontSize
// is the smallest span size of the source block.
type TextBlock struct {
	Text     string
	FontSize float64
	BBox     Rect
}

// ImageBlock is an embedded image to be extracted to the images directory.
type ImageBlock struct {
	Data []byte
	Ext  string
	BBox Rect
}

// TableBlock is a table emitted verbatim as Markdown.
type TableBlock struct {
	Markdown string
	BBox     Rect
}

func (b *TextBlock) Bounds() Rect  { return b.BBox }
func (b *ImageBlock) Bounds() Rect { return b.BBox }
func (b *TableBlock) Bounds() Rect { return b.BBox }

func (*TextBlock) sealed()  {}
func (*ImageBlock) sealed() {}
func (*TableBlock) sealed() {}

// PageContent is one classified page. Number is zero-based.
type PageContent struct {
	Number int
	Chunks []Block
}

// ConversionResult describes a finished conversion.
type ConversionResult struct {
	// MarkdownPath is the written <basename>.md file.
	MarkdownPath string `json:"md_path" yaml:"md_path"`

	// OutputDir is the directory holding the Markdown file and images/.
	OutputDir string `json:"md_dir" yaml:"md_dir"`

	Pages  int `json:"pages" yaml:"pages"`
	Images int `json:"images" yaml:"images"`
	Tables int `json:"tables" yaml:"tables"`
}

// Report is the one-line JSON object the CLI prints for a conversion.
// Paths are set on success, Error on failure.
type Report struct {
	Success      bool   `json:"success"`
	MarkdownPath string `json:"md_path,omitempty"`
	OutputDir    string `json:"md_dir,omitempty"`
	Error        string `json:"error,omitempty"`
}
