// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds surfaced by a conversion. Collaborators wrap the underlying
// cause so callers can match the kind with errors.Is.
var (
	// ErrSourceRead means the input PDF is missing, unreadable, or malformed.
	ErrSourceRead = errors.New("source read error")

	// ErrImageDecode means an embedded image payload could not be decoded.
	ErrImageDecode = errors.New("image decode error")

	// ErrOutputWrite means the Markdown file, an image, or an output
	// directory could not be written.
	ErrOutputWrite = errors.New("output write error")
)
