// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner converts a PDF out of process: by running the pdf2md
// binary, or its container image under docker or podman, and parsing the
// one-line JSON report it prints.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// Runtime names accepted in types.RunnerConfig.
const (
	RuntimeLocal  = "local"
	RuntimeDocker = binDocker
	RuntimePodman = binPodman
	RuntimeAuto   = "auto"
)

// Paths the source and output directories are mounted at inside the
// container.
const (
	containerIn  = "/in"
	containerOut = "/out"
)

// ErrConversionFailed wraps the error message a failed conversion reported.
var ErrConversionFailed = errors.New("conversion failed")

// Runner runs conversions out of process.
type Runner struct {
	cfg     types.RunnerConfig
	exec    executor
	runtime Runtime // nil for the local binary
	stderr  io.Writer
}

// New returns a Runner for cfg. Container runtimes are detected and the
// image checked up front. stderr receives the converter's progress lines.
func New(ctx context.Context, cfg types.RunnerConfig, stderr io.Writer) (*Runner, error) {
	return newRunner(ctx, cfg, &osExecutor{}, stderr)
}

func newRunner(ctx context.Context, cfg types.RunnerConfig, exec executor, stderr io.Writer) (*Runner, error) {
	if stderr == nil {
		stderr = io.Discard
	}
	r := &Runner{cfg: cfg, exec: exec, stderr: stderr}

	if cfg.Runtime == "" || cfg.Runtime == RuntimeLocal {
		if cfg.Binary == "" {
			r.cfg.Binary = "pdf2md"
		}
		if _, err := exec.LookPath(r.cfg.Binary); err != nil {
			return nil, fmt.Errorf("converter binary %s: %w", r.cfg.Binary, err)
		}
		return r, nil
	}

	if cfg.Image == "" {
		return nil, fmt.Errorf("runtime %s needs a container image", cfg.Runtime)
	}
	rt, err := selectRuntime(ctx, cfg.Runtime, exec)
	if err != nil {
		return nil, err
	}
	if err := rt.ImageExists(ctx, cfg.Image); err != nil {
		return nil, err
	}
	r.runtime = rt
	return r, nil
}

// Name describes where conversions run.
func (r *Runner) Name() string {
	if r.runtime == nil {
		return r.cfg.Binary
	}
	return r.runtime.Name() + ":" + r.cfg.Image
}

// Run converts pdfPath into outputDir and returns the reported paths. A
// report with success false yields an error wrapping ErrConversionFailed
// and carrying the reported message.
func (r *Runner) Run(ctx context.Context, pdfPath, outputDir string) (types.ConversionResult, error) {
	name, args, mapBack, err := r.command(pdfPath, outputDir)
	if err != nil {
		return types.ConversionResult{}, err
	}

	var stdout bytes.Buffer
	runErr := r.exec.RunPiped(ctx, name, args, &stdout, r.stderr)

	report, parseErr := ParseReport(stdout.Bytes())
	if parseErr != nil {
		if runErr != nil {
			return types.ConversionResult{}, fmt.Errorf("running %s: %w", name, runErr)
		}
		return types.ConversionResult{}, parseErr
	}
	if !report.Success {
		return types.ConversionResult{}, fmt.Errorf("%w: %s", ErrConversionFailed, report.Error)
	}
	if runErr != nil {
		return types.ConversionResult{}, fmt.Errorf("running %s: %w", name, runErr)
	}

	return types.ConversionResult{
		MarkdownPath: mapBack(report.MarkdownPath),
		OutputDir:    mapBack(report.OutputDir),
	}, nil
}

// command builds the argv for one conversion and a function mapping paths
// reported by the converter back to host paths.
func (r *Runner) command(pdfPath, outputDir string) (string, []string, func(string) string, error) {
	if r.runtime == nil {
		args := []string{"convert", "--pdf-path", pdfPath, "--output-dir", outputDir}
		return r.cfg.Binary, args, func(p string) string { return p }, nil
	}

	srcAbs, err := filepath.Abs(pdfPath)
	if err != nil {
		return "", nil, nil, err
	}
	outAbs, err := filepath.Abs(outputDir)
	if err != nil {
		return "", nil, nil, err
	}

	mounts := []Mount{
		{Host: filepath.Dir(srcAbs), Container: containerIn, ReadOnly: true},
		{Host: outAbs, Container: containerOut},
	}
	args := []string{
		"convert",
		"--pdf-path", path.Join(containerIn, filepath.Base(srcAbs)),
		"--output-dir", containerOut,
	}
	mapBack := func(p string) string {
		if p == containerOut {
			return outAbs
		}
		if rest, ok := strings.CutPrefix(p, containerOut+"/"); ok {
			return filepath.Join(outAbs, filepath.FromSlash(rest))
		}
		return p
	}
	return r.runtime.Name(), r.runtime.Args(r.cfg.Image, mounts, args), mapBack, nil
}

// ParseReport decodes the converter's JSON report. Output before the last
// non-empty line is ignored.
func ParseReport(out []byte) (types.Report, error) {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return types.Report{}, errors.New("converter printed no report")
	}

	var report types.Report
	if err := json.Unmarshal([]byte(last), &report); err != nil {
		return types.Report{}, fmt.Errorf("parsing converter report %q: %w", last, err)
	}
	return report, nil
}
