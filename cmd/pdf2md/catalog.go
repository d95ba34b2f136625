// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2md/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the catalog of past conversions",
	Long: `Catalog reads the SQLite database that records every successful
conversion when catalog.path (or --catalog) is set.`,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded conversions, newest first",
	RunE:  runCatalogList,
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded conversions as YAML or JSON",
	RunE:  runCatalogExport,
}

func init() {
	catalogListCmd.Flags().Bool("json", false, "output as JSON")
	catalogExportCmd.Flags().String("format", catalog.FormatYAML, "export format: yaml or json")

	catalogCmd.AddCommand(catalogListCmd, catalogExportCmd)
	rootCmd.AddCommand(catalogCmd)
}

func openCatalog() (*catalog.Store, error) {
	path := loadConfig().Catalog.Path
	if path == "" {
		return nil, errors.New("no catalog configured: set catalog.path or pass --catalog")
	}
	return catalog.NewStore(path)
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatCatalogList(cmd.OutOrStdout(), entries, jsonOutput)
}

func formatCatalogList(w io.Writer, entries []catalog.Entry, jsonOutput bool) error {
	if jsonOutput {
		if entries == nil {
			entries = []catalog.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-16s  %-40s  %5s  %6s  %6s  %s\n",
		"Converted", "Source", "Pages", "Images", "Tables", "Markdown")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, e := range entries {
		source := e.SourcePath
		if len(source) > 40 {
			source = "..." + filepath.Base(source)
			if len(source) > 40 {
				source = source[:37] + "..."
			}
		}
		fmt.Fprintf(w, "%-16s  %-40s  %5d  %6d  %6d  %s\n",
			e.ConvertedAt.Local().Format("2006-01-02 15:04"), source,
			e.Pages, e.Images, e.Tables, e.MarkdownPath)
	}
	fmt.Fprintf(w, "\n%d conversions\n", len(entries))
	return nil
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Export(cmd.Context(), cmd.OutOrStdout(), format)
}
