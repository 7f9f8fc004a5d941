package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/config"
	"github.com/jackzampolin/doodlebook/internal/home"
	"github.com/jackzampolin/doodlebook/internal/server"
	"github.com/jackzampolin/doodlebook/version"
)

var (
	serveHost   string
	servePort   string
	logLevel    string
	logFormat   string
	watchConfig bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Doodlebook server",
	Long: `Start the Doodlebook HTTP server.

The server stores books under the home directory, runs story generation in
the background and hosts reading sessions for the browser client.

The server provides:
  - /health  - Basic server health check
  - /ready   - Readiness check (includes book store status)
  - /status  - Providers, book counts and open sessions
  - /swagger - API documentation

Examples:
  doodlebook serve                    # Start on the configured port (8080)
  doodlebook serve --port 3000        # Start on custom port
  doodlebook serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stdout, logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		logger.Info("doodlebook starting", "version", version.Get().String())

		// Get home directory
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		path := cfgFile
		if path == "" && h.ConfigExists() {
			path = h.ConfigPath()
		}
		cfgMgr, err := config.NewManager(path)
		if err != nil {
			return err
		}
		if watchConfig {
			cfgMgr.WatchConfig()
		}
		if f := cfgMgr.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

// newLogger builds the process logger. "auto" picks text on a terminal and
// JSON otherwise.
func newLogger(out *os.File, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if format == "auto" {
		format = "json"
		if isTerminal(out) {
			format = "text"
		}
	}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want auto, text or json", format)
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port from config)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&logFormat, "log-format", "auto", "Log format: auto, text or json")
	serveCmd.Flags().BoolVar(&watchConfig, "watch-config", true, "Reload config when the file changes")

	rootCmd.AddCommand(serveCmd)
}
