// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Kind classifies a conversion input.
type Kind int

const (
	KindLocal Kind = iota
	KindURL
	KindArxiv
	KindDOI
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindArxiv:
		return "arxiv"
	case KindDOI:
		return "doi"
	default:
		return "local"
	}
}

// Resolver endpoints. Declared as vars so tests can substitute httptest
// servers.
var (
	arxivPDFBase = "https://arxiv.org/pdf/"
	doiBase      = "https://doi.org/"
)

// arxivPattern matches arXiv IDs: "2301.07041", "arXiv:2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^(?:arXiv:)?(\d{4}\.\d{4,5}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568", optionally prefixed
// with "doi:".
var doiPattern = regexp.MustCompile(`^(?:doi:)?(10\.\d{4,9}/\S+)$`)

// Classify determines the input kind and returns its normalized form.
// Anything that is not an http(s) URL, arXiv ID or DOI is a local path.
func Classify(input string) (Kind, string) {
	input = strings.TrimSpace(input)

	if m := arxivPattern.FindStringSubmatch(input); m != nil {
		return KindArxiv, m[1]
	}
	if m := doiPattern.FindStringSubmatch(input); m != nil {
		return KindDOI, m[1]
	}
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return KindURL, input
	}
	return KindLocal, input
}

// DownloadURL returns where a remote input is fetched from. DOIs go through
// the doi.org resolver; the client follows its redirects.
func DownloadURL(kind Kind, normalized string) string {
	switch kind {
	case KindArxiv:
		return arxivPDFBase + normalized
	case KindDOI:
		return doiBase + normalized
	case KindURL:
		return normalized
	default:
		return ""
	}
}

// FileName returns the local file name for a remote input. For URLs it is
// the last path element with .pdf added when it has no extension; arXiv IDs
// and DOIs become filesystem-safe names.
func FileName(kind Kind, normalized string) string {
	switch kind {
	case KindArxiv:
		return normalized + ".pdf"
	case KindDOI:
		return strings.NewReplacer("/", "-", ":", "-").Replace(normalized) + ".pdf"
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return defaultName
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return defaultName
	}
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
