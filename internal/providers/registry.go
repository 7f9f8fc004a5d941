package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds named providers. It supports config-driven instantiation,
// hot-reload, and thread-safe access by role.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register adds or replaces a provider by name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
	if r.logger != nil {
		r.logger.Info("registered provider", "name", name, "type", p.Name())
	}
}

// Unregister removes a provider by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
	if r.logger != nil {
		r.logger.Info("unregistered provider", "name", name)
	}
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// Has checks if a provider is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Limits returns the rate limiter status of every provider that has one.
func (r *Registry) Limits() map[string]LimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]LimiterStatus)
	for name, p := range r.providers {
		if l, ok := p.(Limited); ok {
			out[name] = l.RateLimiter().Status()
		}
	}
	return out
}

// Analyzer returns the named provider as a StoryAnalyzer.
func (r *Registry) Analyzer(name string) (StoryAnalyzer, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	a, ok := p.(StoryAnalyzer)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot analyze drawings", name)
	}
	return a, nil
}

// Illustrator returns the named provider as an Illustrator.
func (r *Registry) Illustrator(name string) (Illustrator, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	i, ok := p.(Illustrator)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot illustrate", name)
	}
	return i, nil
}

// Animator returns the named provider as an Animator.
func (r *Registry) Animator(name string) (Animator, error) {
	p, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	a, ok := p.(Animator)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot animate", name)
	}
	return a, nil
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
}

// ProviderConfig matches config.ProviderCfg with a resolved API key.
type ProviderConfig struct {
	Type         string  // "openai", "mock"
	Model        string  // chat model
	ImageModel   string  // image model
	VideoModel   string  // video model
	APIKey       string  // resolved API key
	RateLimit    float64 // requests per second
	PollInterval time.Duration
	MaxPolls     uint
	Enabled      bool
}

// usable reports whether cfg should produce a provider. Mock needs no key.
func (cfg ProviderConfig) usable() bool {
	if !cfg.Enabled {
		return false
	}
	return cfg.Type == MockName || cfg.APIKey != ""
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-created.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.Providers {
		if !provCfg.usable() {
			continue
		}
		want[name] = true

		existing, hasExisting := r.providers[name]
		if hasExisting && !needsUpdate(existing, provCfg) {
			continue
		}
		p := createProvider(provCfg, r.logger)
		if p == nil {
			if r.logger != nil {
				r.logger.Warn("unknown provider type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		r.providers[name] = p
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated provider", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered provider", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name := range r.providers {
		if !want[name] {
			delete(r.providers, name)
			if r.logger != nil {
				r.logger.Info("unregistered provider", "name", name)
			}
		}
	}
}

// createProvider creates a provider based on its type.
func createProvider(cfg ProviderConfig, logger *slog.Logger) Provider {
	switch cfg.Type {
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			Model:        cfg.Model,
			ImageModel:   cfg.ImageModel,
			VideoModel:   cfg.VideoModel,
			RateLimit:    cfg.RateLimit,
			PollInterval: cfg.PollInterval,
			MaxPolls:     cfg.MaxPolls,
			Logger:       logger,
		})
	case MockName:
		return NewMock()
	default:
		return nil
	}
}

// needsUpdate checks if a provider needs to be recreated.
func needsUpdate(p Provider, cfg ProviderConfig) bool {
	switch c := p.(type) {
	case *OpenAIClient:
		return cfg.Type != OpenAIName ||
			c.apiKey != cfg.APIKey ||
			c.model != orDefault(cfg.Model, openAIDefaultChatModel) ||
			c.imageModel != orDefault(cfg.ImageModel, openAIDefaultImageModel) ||
			c.videoModel != orDefault(cfg.VideoModel, openAIDefaultVideoModel) ||
			(cfg.RateLimit > 0 && c.rateLimit != cfg.RateLimit) ||
			(cfg.PollInterval > 0 && c.pollInterval != cfg.PollInterval) ||
			(cfg.MaxPolls > 0 && c.maxPolls != cfg.MaxPolls)
	case *Mock:
		return cfg.Type != MockName
	default:
		return true
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
