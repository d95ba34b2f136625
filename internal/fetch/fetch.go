// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch resolves conversion inputs. Local paths pass through;
// http(s) URLs, arXiv IDs and DOIs are downloaded to a temporary directory
// first.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2md/internal/httputil"
	"github.com/pdiddy/pdf2md/pkg/types"
)

// defaultName is used when the URL path has no usable file name.
const defaultName = "document.pdf"

// Fetcher downloads remote inputs.
type Fetcher struct {
	Client *http.Client
	FS     afero.Fs
	Config types.FetchConfig
	Log    io.Writer

	// Tokens maps lower-case host names to bearer tokens.
	Tokens map[string]string
}

// New returns a Fetcher on the OS filesystem with a client honouring
// cfg.Timeout.
func New(cfg types.FetchConfig, log io.Writer) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: cfg.Timeout},
		FS:     afero.NewOsFs(),
		Config: cfg,
		Log:    log,
	}
}

// Remote reports whether input names something to download: an http(s)
// URL, an arXiv ID or a DOI that is not also an existing local file.
func (f *Fetcher) Remote(input string) bool {
	kind, _ := Classify(input)
	if kind == KindLocal {
		return false
	}
	if _, err := f.FS.Stat(input); err == nil {
		return false
	}
	return true
}

// Resolve returns a local path for input. A remote input is downloaded
// into a new temporary directory, which cleanup removes. Download failures
// wrap types.ErrSourceRead.
func (f *Fetcher) Resolve(ctx context.Context, input string) (localPath string, cleanup func(), err error) {
	noop := func() {}
	if !f.Remote(input) {
		return input, noop, nil
	}
	kind, normalized := Classify(input)
	source := DownloadURL(kind, normalized)

	dir, err := afero.TempDir(f.FS, "", "pdf2md-fetch-")
	if err != nil {
		return "", noop, fmt.Errorf("%w: creating download dir: %w", types.ErrSourceRead, err)
	}
	cleanup = func() { f.FS.RemoveAll(dir) }

	dest := filepath.Join(dir, FileName(kind, normalized))
	if err := f.download(ctx, source, dest); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("%w: downloading %s: %w", types.ErrSourceRead, source, err)
	}
	return dest, cleanup, nil
}

// download fetches rawURL to dest through a temporary file.
func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if f.Config.UserAgent != "" {
		req.Header.Set("User-Agent", f.Config.UserAgent)
	}
	req.Header.Set("Accept", "application/pdf")
	if token, ok := f.Tokens[strings.ToLower(req.URL.Hostname())]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, f.Config.MaxRetries, f.Log)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return fmt.Errorf("unexpected content type %q", ct)
	}

	tmp, err := afero.TempFile(f.FS, filepath.Dir(dest), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		f.FS.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		f.FS.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := f.FS.Rename(tmpPath, dest); err != nil {
		f.FS.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
