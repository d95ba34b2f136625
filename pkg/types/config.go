package types

import "time"

// HTTPConfig holds shared HTTP settings used when an input is a URL.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pdf2md/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ConversionConfig holds settings for a single conversion.
type ConversionConfig struct {
	// PageSeparator appends a horizontal rule after every page.
	PageSeparator bool `json:"page_separator" yaml:"page_separator"`

	// NormalizeText applies NFKC normalization to extracted span text so
	// compatibility ideographs and full-width digits compare as their
	// canonical forms.
	NormalizeText bool `json:"normalize_text" yaml:"normalize_text"`
}

// FetchConfig holds settings for downloading remote inputs.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxRetries is the number of retries on 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// SecretsDir holds per-host bearer tokens, one file per host name.
	SecretsDir string `json:"secrets_dir" yaml:"secrets_dir"`
}

// CatalogConfig holds settings for the conversion catalog.
type CatalogConfig struct {
	// Path is the SQLite database file. Empty disables the catalog.
	Path string `json:"path" yaml:"path"`

	// SkipUnchanged reports the recorded result instead of reconverting a
	// source whose size and modification time are unchanged.
	SkipUnchanged bool `json:"skip_unchanged" yaml:"skip_unchanged"`
}

// RunnerConfig selects where a conversion runs.
type RunnerConfig struct {
	// Runtime is empty for in-process conversion, "local" for a pdf2md
	// subprocess, or "docker", "podman" or "auto" for a container.
	Runtime string `json:"runtime" yaml:"runtime"`

	// Binary is the pdf2md executable used by the local runtime.
	Binary string `json:"binary" yaml:"binary"`

	// Image is the container image used by container runtimes.
	Image string `json:"image" yaml:"image"`
}

// Config groups all settings read from pdf2md.yaml.
type Config struct {
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch"`
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog"`
	Runner     RunnerConfig     `json:"runner" yaml:"runner"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Conversion: ConversionConfig{
			PageSeparator: true,
			NormalizeText: true,
		},
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: "pdf2md/0.1",
			},
			MaxRetries: 5,
			SecretsDir: ".secrets",
		},
		Runner: RunnerConfig{
			Binary: "pdf2md",
			Image:  "pdf2md:latest",
		},
	}
}
