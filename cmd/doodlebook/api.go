package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Doodlebook server via HTTP.

These commands require a running server (doodlebook serve).
Use --server to specify a custom server URL.

Examples:
  doodlebook api health                          # Check server health
  doodlebook api books upload dragon.png         # Start a new book
  doodlebook api books list --status ready       # Books ready to read
  doodlebook api sessions open <book-id>         # Open the book on its cover
  doodlebook api sessions next <session-id>      # Turn the page
  doodlebook api metrics summary --stage illustrate
  doodlebook api books export epub <book-id> --session <session-id> -f book.epub`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	registry := api.NewRegistry()
	endpoints.Register(registry)
	registry.AddCommands(apiCmd, getServerURL)

	rootCmd.AddCommand(apiCmd)
}
