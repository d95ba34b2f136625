// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2md/internal/catalog"
	"github.com/pdiddy/pdf2md/internal/convert"
	"github.com/pdiddy/pdf2md/internal/fetch"
	"github.com/pdiddy/pdf2md/internal/imagecodec"
	"github.com/pdiddy/pdf2md/internal/pdfparse"
	"github.com/pdiddy/pdf2md/internal/runner"
	"github.com/pdiddy/pdf2md/internal/secrets"
	"github.com/pdiddy/pdf2md/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdf-path output-dir]",
	Short: "Convert one PDF file or URL to Markdown",
	Long: `Convert writes <output-dir>/<basename>.md and extracts embedded images to
<output-dir>/images/. The input may be a local path or an http(s) URL.

Exactly one JSON line is printed on stdout:

  {"success":true,"md_path":"out/report.md","md_dir":"out"}
  {"success":false,"error":"..."}

and the exit status is 1 on failure.`,
	Args: cobra.ArbitraryArgs,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("pdf-path", "", "input PDF file or http(s) URL")
	convertCmd.Flags().String("output-dir", "", "directory for the Markdown file and images/")
	convertCmd.Flags().Bool("page-separator", true, "append a horizontal rule after every page")
	convertCmd.Flags().Bool("skip-unchanged", false, "reuse the catalogued result when the source is unchanged")
	convertCmd.Flags().String("runtime", "", "run out of process: local, docker, podman, or auto")
	convertCmd.Flags().String("image", "", "container image for docker/podman runtimes")

	viper.BindPFlag("conversion.page_separator", convertCmd.Flags().Lookup("page-separator"))
	viper.BindPFlag("catalog.skip_unchanged", convertCmd.Flags().Lookup("skip-unchanged"))
	viper.BindPFlag("runner.runtime", convertCmd.Flags().Lookup("runtime"))
	viper.BindPFlag("runner.image", convertCmd.Flags().Lookup("image"))

	convertCmd.SetFlagErrorFunc(reportFlagError)

	rootCmd.AddCommand(convertCmd)
}

// reportFlagError prints the failure report for flags cobra could not parse.
func reportFlagError(cmd *cobra.Command, err error) error {
	writeReport(cmd.OutOrStdout(), types.Report{Error: err.Error()})
	cmd.SilenceErrors = true
	return err
}

func runConvert(cmd *cobra.Command, args []string) error {
	pdfPath, outputDir, err := convertArgs(cmd, args)

	var result types.ConversionResult
	if err == nil {
		result, err = convertInput(cmd.Context(), loadConfig(), pdfPath, outputDir, cmd.ErrOrStderr())
	}

	report := types.Report{Success: err == nil}
	if err != nil {
		report.Error = err.Error()
	} else {
		report.MarkdownPath = result.MarkdownPath
		report.OutputDir = result.OutputDir
	}
	if werr := writeReport(cmd.OutOrStdout(), report); werr != nil && err == nil {
		err = werr
	}

	if err != nil {
		// The report already carries the message.
		cmd.SilenceErrors = true
	}
	return err
}

// convertArgs takes the input and output from flags, or from the two
// positional arguments.
func convertArgs(cmd *cobra.Command, args []string) (string, string, error) {
	pdfPath, _ := cmd.Flags().GetString("pdf-path")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	switch len(args) {
	case 0:
	case 2:
		if pdfPath != "" || outputDir != "" {
			return "", "", errors.New("give the input and output either as flags or as arguments, not both")
		}
		pdfPath, outputDir = args[0], args[1]
	default:
		return "", "", errors.New("expected <pdf-path> <output-dir>")
	}

	if pdfPath == "" || outputDir == "" {
		return "", "", errors.New("--pdf-path and --output-dir are required")
	}
	return pdfPath, outputDir, nil
}

func writeReport(w io.Writer, report types.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// convertInput resolves input, consults and updates the catalog when one
// is configured, and converts in process or through a runner.
func convertInput(ctx context.Context, cfg types.Config, input, outputDir string, log io.Writer) (types.ConversionResult, error) {
	fetcher := fetch.New(cfg.Fetch, log)
	remote := fetcher.Remote(input)
	if remote {
		tokens, err := secrets.Load(afero.NewOsFs(), cfg.Fetch.SecretsDir, log)
		if err != nil {
			return types.ConversionResult{}, err
		}
		fetcher.Tokens = tokens
	}

	local, cleanup, err := fetcher.Resolve(ctx, input)
	if err != nil {
		return types.ConversionResult{}, err
	}
	defer cleanup()

	var store *catalog.Store
	var src catalog.Source
	if cfg.Catalog.Path != "" {
		if store, err = catalog.NewStore(cfg.Catalog.Path); err != nil {
			return types.ConversionResult{}, fmt.Errorf("opening catalog: %w", err)
		}
		defer store.Close()

		if src, err = catalog.Stat(local); err != nil {
			return types.ConversionResult{}, fmt.Errorf("%w: %w", types.ErrSourceRead, err)
		}

		if remote {
			src.Path = input
		} else if cfg.Catalog.SkipUnchanged {
			entry, ok, err := store.Unchanged(ctx, src, outputDir)
			if err != nil {
				return types.ConversionResult{}, err
			}
			if ok {
				fmt.Fprintf(log, "unchanged: %s (converted %s)\n", input, entry.ConvertedAt.Format("2006-01-02 15:04"))
				return entry.ConversionResult, nil
			}
		}
	}

	result, err := run(ctx, cfg, local, outputDir, log)
	if err != nil {
		return result, err
	}

	if store != nil {
		if _, err := store.Record(ctx, src, result); err != nil {
			fmt.Fprintf(log, "warning: %v\n", err)
		}
	}
	return result, nil
}

func run(ctx context.Context, cfg types.Config, pdfPath, outputDir string, log io.Writer) (types.ConversionResult, error) {
	if cfg.Runner.Runtime != "" {
		r, err := runner.New(ctx, cfg.Runner, log)
		if err != nil {
			return types.ConversionResult{}, err
		}
		fmt.Fprintf(log, "converting with %s\n", r.Name())
		return r.Run(ctx, pdfPath, outputDir)
	}

	opts := pdfparse.DefaultOptions()
	opts.NormalizeText = cfg.Conversion.NormalizeText
	open := func(path string) (convert.Document, error) {
		doc, err := pdfparse.Open(path, opts)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}

	return convert.New(open, imagecodec.New(), cfg.Conversion, log).Convert(ctx, pdfPath, outputDir)
}
