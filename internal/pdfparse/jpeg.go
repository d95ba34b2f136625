// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pdfparse

import (
	"bytes"
	"image/jpeg"
)

var (
	streamKeyword = []byte("stream")
	endKeyword    = []byte("endstream")
	jpegSOI       = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI       = []byte{0xFF, 0xD9}
)

type jpegEntry struct {
	width, height int
	data          []byte

	// length is the stream body length before trailing bytes after the
	// end-of-image marker were trimmed.
	length int
}

// jpegIndex lists the JPEG stream bodies of a PDF file in file order.
type jpegIndex struct {
	entries []*jpegEntry
}

// scanJPEGs finds every stream whose body starts with a JPEG signature and
// records its dimensions. Bodies that do not parse as JPEG are ignored.
func scanJPEGs(raw []byte) *jpegIndex {
	idx := &jpegIndex{}
	for pos := 0; pos < len(raw); {
		i := bytes.Index(raw[pos:], streamKeyword)
		if i < 0 {
			break
		}
		start := pos + i + len(streamKeyword)
		pos = start

		// Skip "endstream" and require an end-of-line after the keyword.
		if bytes.HasSuffix(raw[:start-len(streamKeyword)], []byte("end")) {
			continue
		}
		switch {
		case bytes.HasPrefix(raw[start:], []byte("\r\n")):
			start += 2
		case bytes.HasPrefix(raw[start:], []byte("\n")), bytes.HasPrefix(raw[start:], []byte("\r")):
			start++
		default:
			continue
		}
		if !bytes.HasPrefix(raw[start:], jpegSOI) {
			continue
		}

		end := bytes.Index(raw[start:], endKeyword)
		if end < 0 {
			break
		}
		body := bytes.TrimRight(raw[start:start+end], "\r\n")
		length := len(body)
		if eoi := bytes.LastIndex(body, jpegEOI); eoi >= 0 {
			body = body[:eoi+len(jpegEOI)]
		}
		pos = start + end + len(endKeyword)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(body))
		if err != nil {
			continue
		}
		idx.entries = append(idx.entries, &jpegEntry{width: cfg.Width, height: cfg.Height, data: body, length: length})
	}
	return idx
}

// find returns the stream of the given size whose body length matches the
// object's declared Length. Streams that only agree on size are not
// returned. An image painted several times resolves to the same stream
// each time.
func (x *jpegIndex) find(width, height, length int) ([]byte, bool) {
	for _, e := range x.entries {
		if e.width != width || e.height != height {
			continue
		}
		if len(e.data) == length || e.length == length {
			return e.data, true
		}
	}
	return nil, false
}
