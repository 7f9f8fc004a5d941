package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.Output(version.Get())
	},
}
