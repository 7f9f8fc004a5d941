package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"github.com/jackzampolin/doodlebook/internal/api"
	"github.com/jackzampolin/doodlebook/internal/config"
	"github.com/jackzampolin/doodlebook/internal/generation"
	"github.com/jackzampolin/doodlebook/internal/home"
	"github.com/jackzampolin/doodlebook/internal/metrics"
	"github.com/jackzampolin/doodlebook/internal/providers"
	"github.com/jackzampolin/doodlebook/internal/reader"
	"github.com/jackzampolin/doodlebook/internal/server/endpoints"
	"github.com/jackzampolin/doodlebook/internal/story"
	"github.com/jackzampolin/doodlebook/internal/storybook"
	"github.com/jackzampolin/doodlebook/internal/svcctx"
)

const (
	// sessionIdleTimeout is how long a reading session may go without input
	// before it is closed.
	sessionIdleTimeout = 30 * time.Minute
	reapInterval       = time.Minute
)

// Server is the main Doodlebook HTTP server.
// It owns the book store, the generation pipeline and the reading sessions,
// and shuts them down when the server stops.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	home       *home.Dir
	store      story.Store
	registry   *providers.Registry
	configMgr  *config.Manager
	scheduler  storybook.Scheduler
	logger     *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	services *svcctx.Services
	pipeline *generation.Pipeline
	sessions *reader.Manager
	metrics  *metrics.Recorder
	unlock   func() error
	running  bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config, then 127.0.0.1)
	Host string
	// Port is the port to listen on (default: server.port from config, then 8080)
	Port string
	// Home is the doodlebook home directory holding books and config
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Store replaces the file store under Home
	Store story.Store
	// Scheduler replaces the wall clock for reading sessions
	Scheduler storybook.Scheduler
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil && cfg.Store == nil {
		return nil, errors.New("server needs a home directory or a store")
	}

	conf := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		conf = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = conf.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = conf.Server.Port
	}

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)
	registry.Reload(conf.ToProviderRegistryConfig())

	s := &Server{
		home:      cfg.Home,
		store:     cfg.Store,
		registry:  registry,
		configMgr: cfg.ConfigManager,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	endpoints.Register(s.endpointRegistry)

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.handler = s.withCORS(conf.Server.CORS, s.withServices(mux))
	s.httpServer = &http.Server{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:     s.handler,
		ReadTimeout: 30 * time.Second,
		// Exports and media downloads can be large.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Init opens the book store and starts the pipeline and the session manager.
// Start calls it; tests call it directly and drive Handler.
func (s *Server) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.services != nil {
		return nil
	}

	if s.store == nil {
		if err := s.home.EnsureExists(); err != nil {
			return err
		}
		fs, err := story.NewFileStore(s.home, s.logger)
		if err != nil {
			return fmt.Errorf("failed to open book store: %w", err)
		}
		s.store = fs
	}

	conf := config.DefaultConfig()
	if s.configMgr != nil {
		conf = s.configMgr.Get()
	}

	s.metrics = metrics.NewRecorder(metrics.DefaultCapacity)
	s.pipeline = generation.New(s.store, s.registry, conf.GenerationConfig(), s.logger)
	s.pipeline.SetRecorder(s.metrics)
	opts := []reader.ManagerOption{reader.WithLogger(s.logger)}
	if s.scheduler != nil {
		opts = append(opts, reader.WithScheduler(s.scheduler))
	}
	s.sessions = reader.NewManager(s.store, conf.ReaderConfig(), opts...)

	sessions := s.sessions
	s.pipeline.OnPageReady(func(bookID string, page int) {
		s.logger.Debug("illustration ready",
			"book_id", bookID, "page", page+1, "readers", len(sessions.ForBook(bookID)))
	})

	if s.configMgr != nil {
		pipeline := s.pipeline
		s.configMgr.OnChange(func(c *config.Config) {
			s.registry.Reload(c.ToProviderRegistryConfig())
			pipeline.SetConfig(c.GenerationConfig())
			sessions.SetConfig(c.ReaderConfig())
			s.logger.Info("configuration reloaded")
		})
	}

	s.services = &svcctx.Services{
		Store:     s.store,
		Registry:  s.registry,
		Pipeline:  s.pipeline,
		Sessions:  s.sessions,
		Metrics:   s.metrics,
		ConfigMgr: s.configMgr,
		Logger:    s.logger,
		Home:      s.home,
	}

	books, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}
	s.logger.Info("book store ready", "books", len(books), "providers", s.registry.List())
	return nil
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.home != nil {
		unlock, err := s.home.Lock()
		if err != nil {
			s.setNotRunning()
			return err
		}
		s.mu.Lock()
		s.unlock = unlock
		s.mu.Unlock()
	}

	if err := s.Init(ctx); err != nil {
		s.releaseHome()
		s.setNotRunning()
		return err
	}

	reapCtx, stopReap := context.WithCancel(ctx)
	defer stopReap()
	go s.reapIdleSessions(reapCtx)

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// reapIdleSessions closes abandoned reading sessions until ctx is done.
func (s *Server) reapIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sessions := s.Sessions(); sessions != nil {
				if n := sessions.CloseIdle(sessionIdleTimeout); n > 0 {
					s.logger.Info("closed idle reading sessions", "count", n)
				}
			}
		}
	}
}

// shutdown stops the HTTP server, closes reading sessions and cancels
// in-flight generation.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.mu.RLock()
	sessions, pipeline := s.sessions, s.pipeline
	s.mu.RUnlock()
	if sessions != nil {
		sessions.CloseAll()
	}
	if pipeline != nil {
		pipeline.Close()
	}

	s.releaseHome()
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close releases background work started by Init without an HTTP server.
func (s *Server) Close() {
	s.mu.RLock()
	sessions, pipeline := s.sessions, s.pipeline
	s.mu.RUnlock()
	if sessions != nil {
		sessions.CloseAll()
	}
	if pipeline != nil {
		pipeline.Close()
	}
}

func (s *Server) releaseHome() {
	s.mu.Lock()
	unlock := s.unlock
	s.unlock = nil
	s.mu.Unlock()
	if unlock == nil {
		return
	}
	if err := unlock(); err != nil {
		s.logger.Warn("failed to release home lock", "error", err)
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Handler returns the server's HTTP handler with CORS and services applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Pipeline returns the generation pipeline, or nil before Init.
func (s *Server) Pipeline() *generation.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// Sessions returns the reading session manager, or nil before Init.
func (s *Server) Sessions() *reader.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions
}

func (s *Server) currentServices() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc := s.currentServices(); svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withCORS lets the browser client call the API from its dev server origin.
func (s *Server) withCORS(cfg config.CORSCfg, next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           300,
	})
	return c.Handler(next)
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or sessions aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.currentServices() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
