// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfparse

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// maxFormDepth limits how deep form XObjects are followed.
const maxFormDepth = 1

var errUnsupported = errors.New("unsupported image encoding")

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m×n, the transform applying m first and then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitBox returns the user-space extent of the unit square under m, which
// is where an image XObject is painted.
func (m matrix) unitBox() (x1, y1, x2, y2 float64) {
	x1, y1 = math.Inf(1), math.Inf(1)
	x2, y2 = math.Inf(-1), math.Inf(-1)
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(c[0], c[1])
		x1, x2 = math.Min(x1, x), math.Max(x2, x)
		y1, y2 = math.Min(y1, y), math.Max(y2, y)
	}
	return x1, y1, x2, y2
}

func matrixOf(v pdf.Value) matrix {
	if v.Kind() != pdf.Array || v.Len() != 6 {
		return identity
	}
	var m matrix
	for i := range m {
		m[i] = v.Index(i).Float64()
	}
	return m
}

type graphicsState struct {
	ctm   matrix
	saved []matrix
}

// imageWalker interprets a page's content streams and collects the images
// painted with Do.
type imageWalker struct {
	doc    *Document
	page   int
	space  pageSpace
	blocks []types.RawBlock
}

// imageBlocks returns the page's images in painting order. A content stream
// the interpreter cannot follow ends the scan with a warning.
func (d *Document) imageBlocks(p pdf.Page, index int, space pageSpace) (blocks []types.RawBlock) {
	w := &imageWalker{doc: d, page: index + 1, space: space}
	defer func() {
		if r := recover(); r != nil {
			d.warnf("page %d: image scan stopped: %v", index+1, r)
			blocks = w.blocks
		}
	}()

	st := &graphicsState{ctm: identity}
	w.run(p.V.Key("Contents"), p.Resources(), st, 0)
	return w.blocks
}

func (w *imageWalker) run(strm, res pdf.Value, st *graphicsState, depth int) {
	if strm.Kind() == pdf.Array {
		for i := 0; i < strm.Len(); i++ {
			w.run(strm.Index(i), res, st, depth)
		}
		return
	}
	if strm.Kind() != pdf.Stream {
		return
	}

	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		switch op {
		case "q":
			st.saved = append(st.saved, st.ctm)
		case "Q":
			if n := len(st.saved); n > 0 {
				st.ctm = st.saved[n-1]
				st.saved = st.saved[:n-1]
			}
		case "cm":
			if stk.Len() < 6 {
				return
			}
			var m matrix
			for i := 5; i >= 0; i-- {
				m[i] = stk.Pop().Float64()
			}
			st.ctm = m.mul(st.ctm)
		case "Do":
			if stk.Len() < 1 {
				return
			}
			w.paint(stk.Pop().Name(), res, st, depth)
		}
	})
}

func (w *imageWalker) paint(name string, res pdf.Value, st *graphicsState, depth int) {
	xobj := res.Key("XObject").Key(name)
	if xobj.IsNull() {
		return
	}

	switch xobj.Key("Subtype").Name() {
	case "Form":
		if depth >= maxFormDepth {
			return
		}
		inner := res
		if r := xobj.Key("Resources"); !r.IsNull() {
			inner = r
		}
		saved := len(st.saved)
		st.saved = append(st.saved, st.ctm)
		st.ctm = matrixOf(xobj.Key("Matrix")).mul(st.ctm)
		w.run(xobj, inner, st, depth+1)
		st.ctm = st.saved[saved]
		st.saved = st.saved[:saved]

	case "Image":
		if xobj.Key("ImageMask").Bool() {
			return
		}
		data, ext, err := w.doc.extractImage(xobj)
		if err != nil {
			w.doc.warnf("page %d: skipping image %s: %v", w.page, name, err)
			return
		}
		x1, y1, x2, y2 := st.ctm.unitBox()
		w.blocks = append(w.blocks, types.RawBlock{
			BBox:  w.space.rect(x1, y1, x2, y2),
			Image: &types.RawImage{Data: data, Ext: ext},
		})
	}
}

// extractImage returns an image XObject's payload and extension. JPEG
// streams pass through untouched; sampled images are wrapped as PNG.
func (d *Document) extractImage(xobj pdf.Value) ([]byte, string, error) {
	width := int(xobj.Key("Width").Int64())
	height := int(xobj.Key("Height").Int64())
	if width <= 0 || height <= 0 {
		return nil, "", fmt.Errorf("invalid size %dx%d", width, height)
	}

	filters := filterNames(xobj.Key("Filter"))
	for _, f := range filters {
		switch f {
		case "DCTDecode", "DCT":
			data, err := d.jpegStream(width, height, int(xobj.Key("Length").Int64()))
			return data, "jpeg", err
		case "FlateDecode", "Fl", "ASCII85Decode", "A85":
		default:
			return nil, "", fmt.Errorf("%w: %s", errUnsupported, f)
		}
	}

	cm, err := parseColorSpace(xobj.Key("ColorSpace"))
	if err != nil {
		return nil, "", err
	}
	samples, err := readStream(xobj)
	if err != nil {
		return nil, "", err
	}
	bpc := int(xobj.Key("BitsPerComponent").Int64())
	if bpc == 0 {
		bpc = 8
	}
	img, err := decodeSamples(samples, width, height, bpc, cm)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "png", nil
}

func filterNames(v pdf.Value) []string {
	switch v.Kind() {
	case pdf.Name:
		return []string{v.Name()}
	case pdf.Array:
		names := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			names = append(names, v.Index(i).Name())
		}
		return names
	}
	return nil
}

// readStream reads a decoded stream body. The reader panics on filters it
// does not know.
func readStream(v pdf.Value) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errUnsupported, r)
		}
	}()
	rc := v.Reader()
	defer rc.Close()
	return io.ReadAll(rc)
}

// jpegStream finds the raw bytes of a DCT-encoded image. The reader does
// not decode DCT streams, so the file is scanned once for embedded JPEGs.
func (d *Document) jpegStream(width, height, length int) ([]byte, error) {
	if d.jpegs == nil {
		raw, err := os.ReadFile(d.path)
		if err != nil {
			return nil, err
		}
		d.jpegs = scanJPEGs(raw)
	}
	data, ok := d.jpegs.find(width, height, length)
	if !ok {
		return nil, fmt.Errorf("%w: no %dx%d JPEG stream found", errUnsupported, width, height)
	}
	return data, nil
}

// colorModel describes how image samples map to colour.
type colorModel struct {
	components int
	palette    color.Palette // set for Indexed spaces
}

func parseColorSpace(v pdf.Value) (colorModel, error) {
	switch v.Kind() {
	case pdf.Name:
		switch v.Name() {
		case "DeviceGray", "CalGray", "G":
			return colorModel{components: 1}, nil
		case "DeviceRGB", "CalRGB", "RGB":
			return colorModel{components: 3}, nil
		case "DeviceCMYK", "CMYK":
			return colorModel{components: 4}, nil
		}
		return colorModel{}, fmt.Errorf("%w: colour space %s", errUnsupported, v.Name())

	case pdf.Array:
		if v.Len() == 0 {
			break
		}
		switch family := v.Index(0).Name(); family {
		case "ICCBased":
			n := int(v.Index(1).Key("N").Int64())
			if n == 1 || n == 3 || n == 4 {
				return colorModel{components: n}, nil
			}
			return colorModel{}, fmt.Errorf("%w: ICC profile with %d components", errUnsupported, n)
		case "CalGray", "CalRGB":
			return parseColorSpace(v.Index(0))
		case "Indexed", "I":
			return indexedColorSpace(v)
		default:
			return colorModel{}, fmt.Errorf("%w: colour space %s", errUnsupported, family)
		}
	}
	return colorModel{}, fmt.Errorf("%w: missing colour space", errUnsupported)
}

func indexedColorSpace(v pdf.Value) (colorModel, error) {
	if v.Len() != 4 {
		return colorModel{}, fmt.Errorf("%w: malformed Indexed colour space", errUnsupported)
	}
	base, err := parseColorSpace(v.Index(1))
	if err != nil {
		return colorModel{}, err
	}
	hival := int(v.Index(2).Int64())

	var lookup []byte
	switch l := v.Index(3); l.Kind() {
	case pdf.String:
		lookup = []byte(l.RawString())
	case pdf.Stream:
		if lookup, err = readStream(l); err != nil {
			return colorModel{}, err
		}
	}
	return colorModel{components: 1, palette: buildPalette(lookup, base.components, hival)}, nil
}

func buildPalette(lookup []byte, components, hival int) color.Palette {
	pal := make(color.Palette, 0, hival+1)
	for i := 0; i <= hival && (i+1)*components <= len(lookup); i++ {
		c := lookup[i*components : (i+1)*components]
		switch components {
		case 1:
			pal = append(pal, color.Gray{Y: c[0]})
		case 3:
			pal = append(pal, color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xff})
		case 4:
			pal = append(pal, color.CMYK{C: c[0], M: c[1], Y: c[2], K: c[3]})
		}
	}
	if len(pal) == 0 {
		pal = append(pal, color.Black)
	}
	return pal
}

// decodeSamples builds an image from raw samples, rows padded to whole
// bytes.
func decodeSamples(data []byte, width, height, bpc int, cm colorModel) (image.Image, error) {
	if bpc != 1 && bpc != 2 && bpc != 4 && bpc != 8 {
		return nil, fmt.Errorf("%w: %d bits per component", errUnsupported, bpc)
	}
	if bpc != 8 && cm.components != 1 {
		return nil, fmt.Errorf("%w: %d-bit samples with %d components", errUnsupported, bpc, cm.components)
	}
	stride := (width*cm.components*bpc + 7) / 8
	if len(data) < stride*height {
		return nil, fmt.Errorf("short sample data: %d bytes for %dx%d", len(data), width, height)
	}
	rect := image.Rect(0, 0, width, height)

	switch {
	case cm.palette != nil:
		img := image.NewPaletted(rect, cm.palette)
		for y := 0; y < height; y++ {
			for x, s := range unpack(data[y*stride:(y+1)*stride], bpc, width) {
				if int(s) >= len(cm.palette) {
					s = uint8(len(cm.palette) - 1)
				}
				img.SetColorIndex(x, y, s)
			}
		}
		return img, nil

	case cm.components == 1:
		img := image.NewGray(rect)
		maxVal := float64(int(1)<<bpc - 1)
		for y := 0; y < height; y++ {
			for x, s := range unpack(data[y*stride:(y+1)*stride], bpc, width) {
				img.Pix[y*img.Stride+x] = uint8(float64(s) * 255 / maxVal)
			}
		}
		return img, nil

	case cm.components == 3:
		img := image.NewRGBA(rect)
		for y := 0; y < height; y++ {
			row := data[y*stride:]
			for x := 0; x < width; x++ {
				o := y*img.Stride + x*4
				copy(img.Pix[o:o+3], row[x*3:x*3+3])
				img.Pix[o+3] = 0xff
			}
		}
		return img, nil

	case cm.components == 4:
		img := image.NewCMYK(rect)
		for y := 0; y < height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+width*4], data[y*stride:])
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %d components", errUnsupported, cm.components)
}

// unpack splits a row into n samples of bpc bits each, most significant bit
// first.
func unpack(row []byte, bpc, n int) []uint8 {
	out := make([]uint8, n)
	if bpc == 8 {
		copy(out, row)
		return out
	}
	perByte := 8 / bpc
	mask := uint8(1)<<bpc - 1
	for i := 0; i < n; i++ {
		b := row[i/perByte]
		shift := uint(8 - bpc*(i%perByte+1))
		out[i] = (b >> shift) & mask
	}
	return out
}
