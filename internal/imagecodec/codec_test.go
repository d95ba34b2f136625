// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package imagecodec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2md/pkg/types"
)

func sample() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 80), B: 200, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sample()))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, sample(), nil))
	return buf.Bytes()
}

func TestTranscode_Formats(t *testing.T) {
	c := New()
	pngData := encodePNG(t)

	tests := []struct {
		ext        string
		wantFormat string
	}{
		{"png", "png"},
		{"PNG", "png"},
		{"jpg", "jpeg"},
		{"jpeg", "jpeg"},
		{"gif", "gif"},
		{"bmp", "bmp"},
		{"tiff", "tiff"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			out, err := c.Transcode(pngData, tt.ext)
			require.NoError(t, err)

			img, format, err := image.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
		})
	}
}

func TestTranscode_JPEGPassThrough(t *testing.T) {
	data := encodeJPEG(t)
	out, err := New().Transcode(data, "jpeg")
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestTranscode_UnknownExtensionKeepsBytes(t *testing.T) {
	data := encodePNG(t)
	out, err := New().Transcode(data, "webp")
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestTranscode_Corrupt(t *testing.T) {
	c := New()
	truncated := encodePNG(t)[:20]

	for name, data := range map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not an image"),
		"truncated": truncated,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Transcode(data, "png")
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrImageDecode))
		})
	}
}
