package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "doodlebook",
	Short: "Turn a child's drawing into an illustrated, animated storybook",
	Long: `Doodlebook turns an uploaded drawing into a short picture book.

A drawing goes through three steps:
  - Analysis: the subject, a title and three pages of story text
  - Refinement: the reader edits the title, credits and page text
  - Animation: a short movie of the character plus page illustrations

Finished books are read one spread at a time in a reading session.
Reading to the end unlocks sharing and the ePub/PDF exports.`,
	Version: version.Get().String(),
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.doodlebook/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "doodlebook home directory (default: ~/.doodlebook)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
