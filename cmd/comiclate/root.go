package main

import (
	"github.com/spf13/cobra"

	"github.com/oguzhansen/comiclate/internal/api"
	"github.com/oguzhansen/comiclate/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "comiclate",
	Short: "Comic page translator with LLM-powered bubble detection",
	Long: `Comiclate translates comic and manga pages using vision LLMs.

Load a .cbz/.zip archive or a single page image, pick a target
language, and the provider detects every speech bubble, extracts its
text, and returns a translation with a bounding box so the result can
be overlaid on the original art.

Features:
  - Archive paging for .cbz and .zip books
  - Gemini and OpenAI translation providers
  - Bubble overlay layout with confidence scoring
  - Translation call history`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.comiclate/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
