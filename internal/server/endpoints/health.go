package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/generation"
	"github.com/jackzampolin/doodlebook/internal/providers"
	"github.com/jackzampolin/doodlebook/internal/reader"
	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Server health
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Server readiness (includes the book store)
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Failure	503	{object}	HealthResponse
//	@Router		/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: "not_initialized"})
		return
	}
	if _, err := store.List(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes the book store)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Store != "" {
				fmt.Printf("Store:  %s\n", resp.Store)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string                             `json:"server"`
	Config    string                             `json:"config,omitempty"`
	Providers []string                           `json:"providers"`
	Limits    map[string]providers.LimiterStatus `json:"limits,omitempty"`
	Defaults  DefaultsStatus                     `json:"defaults"`
	Books     map[string]int                     `json:"books"`
	Sessions  int                                `json:"sessions"`
}

// DefaultsStatus shows which provider runs each generation step.
type DefaultsStatus struct {
	Analyzer    string `json:"analyzer"`
	Illustrator string `json:"illustrator"`
	Animator    string `json:"animator"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary	Detailed server status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Router		/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := StatusResponse{
		Server: "running",
		Books:  map[string]int{},
	}

	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		resp.Config = cm.ConfigFile()
	}
	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers = registry.List()
		resp.Limits = registry.Limits()
	}
	if pipeline := svcctx.PipelineFrom(ctx); pipeline != nil {
		cfg := pipeline.Config()
		resp.Defaults = DefaultsStatus{Analyzer: cfg.Analyzer, Illustrator: cfg.Illustrator, Animator: cfg.Animator}
	}
	if store := svcctx.StoreFrom(ctx); store != nil {
		if books, err := store.List(ctx); err == nil {
			for _, b := range books {
				resp.Books[string(b.Status)]++
			}
		}
	} else {
		resp.Server = "initializing"
	}
	if sessions := svcctx.SessionsFrom(ctx); sessions != nil {
		resp.Sessions = sessions.Len()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			fmt.Printf("Server:    %s\n", resp.Server)
			if resp.Config != "" {
				fmt.Printf("Config:    %s\n", resp.Config)
			}
			fmt.Printf("Providers: %v\n", resp.Providers)
			for name, l := range resp.Limits {
				fmt.Printf("  %s: %d/%d available, %d granted, %d throttled\n", name, l.Available, l.Burst, l.Granted, l.Throttled)
			}
			fmt.Printf("Defaults:\n")
			fmt.Printf("  Analyzer:    %s\n", resp.Defaults.Analyzer)
			fmt.Printf("  Illustrator: %s\n", resp.Defaults.Illustrator)
			fmt.Printf("  Animator:    %s\n", resp.Defaults.Animator)
			fmt.Printf("Books:     %v\n", resp.Books)
			fmt.Printf("Sessions:  %d\n", resp.Sessions)
			return nil
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeDomainError maps store, pipeline and reader errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, story.ErrNotFound), errors.Is(err, reader.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, story.ErrInvalidMedia), errors.Is(err, story.ErrEmptyPage), errors.Is(err, story.ErrPageCount):
		status = http.StatusBadRequest
	case errors.Is(err, story.ErrInvalidStatus), errors.Is(err, story.ErrNotAnalyzed), errors.Is(err, reader.ErrBookNotReady):
		status = http.StatusConflict
	case errors.Is(err, reader.ErrShareLocked):
		status = http.StatusForbidden
	case errors.Is(err, generation.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}
