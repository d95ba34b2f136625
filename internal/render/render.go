// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render converts a page's classified blocks into a Markdown
// fragment, extracting embedded images as a side effect.
package render

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2md/internal/heading"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// ImagesDir is the image subdirectory of the output directory. Markdown
// links reference it relatively.
const ImagesDir = "images"

// ImageWriter persists one extracted image under the images directory.
type ImageWriter interface {
	WriteImage(name string, data []byte, ext string) error
}

// Codec decodes an embedded image payload and re-encodes it for the given
// extension. Undecodable payloads must yield an error wrapping
// types.ErrImageDecode.
type Codec interface {
	Transcode(data []byte, ext string) ([]byte, error)
}

// ImageName returns the file name of the seq-th image (1-based) on the
// zero-based page.
func ImageName(page, seq int, ext string) string {
	return fmt.Sprintf("page_%d_image_%d.%s", page, seq, ext)
}

// Page renders every chunk of page in order. Image numbering starts at 1 for
// each call. It returns the fragment and the number of images written. Any
// image failure aborts the page.
func Page(page types.PageContent, images ImageWriter) (string, int, error) {
	var b strings.Builder
	seq := 1

	for _, chunk := range page.Chunks {
		next, err := renderBlock(&b, page.Number, seq, chunk, images)
		if err != nil {
			return "", seq - 1, err
		}
		seq = next
	}

	return b.String(), seq - 1, nil
}

// renderBlock appends one chunk and returns the image sequence number for
// the next image on the page.
func renderBlock(b *strings.Builder, page, seq int, chunk types.Block, images ImageWriter) (int, error) {
	switch c := chunk.(type) {
	case *types.TextBlock:
		b.WriteString(heading.Format(strings.TrimSpace(c.Text), c.FontSize))
		return seq, nil

	case *types.ImageBlock:
		name := ImageName(page, seq, c.Ext)
		if err := images.WriteImage(name, c.Data, c.Ext); err != nil {
			return seq, fmt.Errorf("page %d image %d: %w", page, seq, err)
		}
		b.WriteString("\n\n![image](" + ImagesDir + "/" + name + ")\n\n")
		return seq + 1, nil

	case *types.TableBlock:
		b.WriteString("\n\n" + c.Markdown + "\n\n")
		return seq, nil

	default:
		return seq, fmt.Errorf("page %d: unhandled block type %T", page, chunk)
	}
}

// DirWriter writes transcoded images into Dir on FS.
type DirWriter struct {
	FS    afero.Fs
	Dir   string
	Codec Codec
}

// WriteImage decodes data, re-encodes it for ext, and writes it as Dir/name.
func (w *DirWriter) WriteImage(name string, data []byte, ext string) error {
	out, err := w.Codec.Transcode(data, ext)
	if err != nil {
		return err
	}
	path := filepath.Join(w.Dir, name)
	if err := afero.WriteFile(w.FS, path, out, 0o644); err != nil {
		return fmt.Errorf("%w: writing image %s: %w", types.ErrOutputWrite, path, err)
	}
	return nil
}
