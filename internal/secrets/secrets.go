// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads download credentials from a directory of plain-text
// files. Each file holds the bearer token for one host: the file name is the
// host name (for example "files.example.com") and the trimmed contents are
// the token.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultDir is where tokens are read from when no directory is configured.
const DefaultDir = ".secrets"

// Load reads every file in dir and returns host to token. A missing
// directory is not an error; Load returns an empty map. Unreadable files
// produce a warning on warn but do not abort. Host names are lower-cased.
func Load(fs afero.Fs, dir string, warn io.Writer) (map[string]string, error) {
	if warn == nil {
		warn = io.Discard
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	tokens := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := afero.ReadFile(fs, filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read token for %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			tokens[strings.ToLower(name)] = value
		}
	}

	return tokens, nil
}
