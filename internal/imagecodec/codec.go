// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagecodec validates embedded image payloads and re-encodes them
// for the file extension they will be saved under.
package imagecodec

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// jpegQuality matches the quality most PDF producers embed at.
const jpegQuality = 90

// Codec transcodes images through the registered image decoders.
type Codec struct{}

// New returns a Codec.
func New() *Codec {
	return &Codec{}
}

// Transcode decodes data and encodes it for ext. Extensions without an
// encoder keep the original bytes once they decode successfully. An empty,
// corrupt, or unrecognized payload yields an error wrapping
// types.ErrImageDecode.
func (c *Codec) Transcode(data []byte, ext string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty %s payload", types.ErrImageDecode, ext)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s payload: %w", types.ErrImageDecode, ext, err)
	}

	var buf bytes.Buffer
	switch strings.ToLower(ext) {
	case "png":
		err = png.Encode(&buf, img)
	case "jpg", "jpeg":
		if format == "jpeg" {
			return data, nil
		}
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tif", "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s (decoded as %s): %w", types.ErrImageDecode, ext, format, err)
	}
	return buf.Bytes(), nil
}
