// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2md CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the pdf2md CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf2md",
	Short: "Convert PDF documents to Markdown",
	Long: `pdf2md converts a PDF into a Markdown file plus an images/ directory,
recovering headings from font sizes, extracting embedded images, and
rendering detected tables as pipe tables.

The convert command prints a one-line JSON report on stdout so other
programs can drive it; progress goes to stderr.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2md.yaml or ~/.config/pdf2md/pdf2md.yaml)")
	rootCmd.PersistentFlags().String("catalog", "", "SQLite catalog of conversions (empty disables it)")
	viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2md")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2md"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("PDF2MD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	d := types.DefaultConfig()
	viper.SetDefault("conversion.page_separator", d.Conversion.PageSeparator)
	viper.SetDefault("conversion.normalize_text", d.Conversion.NormalizeText)
	viper.SetDefault("fetch.timeout", d.Fetch.Timeout)
	viper.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	viper.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	viper.SetDefault("fetch.secrets_dir", d.Fetch.SecretsDir)
	viper.SetDefault("catalog.path", d.Catalog.Path)
	viper.SetDefault("catalog.skip_unchanged", d.Catalog.SkipUnchanged)
	viper.SetDefault("runner.runtime", d.Runner.Runtime)
	viper.SetDefault("runner.binary", d.Runner.Binary)
	viper.SetDefault("runner.image", d.Runner.Image)
}

// loadConfig reads the effective settings: flags, then environment, then
// the config file, then defaults.
func loadConfig() types.Config {
	return types.Config{
		Conversion: types.ConversionConfig{
			PageSeparator: viper.GetBool("conversion.page_separator"),
			NormalizeText: viper.GetBool("conversion.normalize_text"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: viper.GetString("fetch.user_agent"),
			},
			MaxRetries: viper.GetInt("fetch.max_retries"),
			SecretsDir: viper.GetString("fetch.secrets_dir"),
		},
		Catalog: types.CatalogConfig{
			Path:          viper.GetString("catalog.path"),
			SkipUnchanged: viper.GetBool("catalog.skip_unchanged"),
		},
		Runner: types.RunnerConfig{
			Runtime: viper.GetString("runner.runtime"),
			Binary:  viper.GetString("runner.binary"),
			Image:   viper.GetString("runner.image"),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
