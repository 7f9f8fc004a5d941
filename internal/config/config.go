package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/doodlebook/internal/generation"
	"github.com/jackzampolin/doodlebook/internal/providers"
	"github.com/jackzampolin/doodlebook/internal/reader"
)

// EnvPrefix prefixes environment overrides, e.g. DOODLEBOOK_SERVER_PORT.
const EnvPrefix = "DOODLEBOOK"

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config. An empty
// cfgFile searches ./config.yaml and then $HOME/.doodlebook/config.yaml.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	d := DefaultConfig()

	// Scalar defaults make these keys visible to env overrides.
	v.SetDefault("defaults.analyzer", d.Defaults.Analyzer)
	v.SetDefault("defaults.illustrator", d.Defaults.Illustrator)
	v.SetDefault("defaults.animator", d.Defaults.Animator)
	v.SetDefault("defaults.max_workers", d.Defaults.MaxWorkers)
	v.SetDefault("reader.flip_delay", d.Reader.FlipDelay)
	v.SetDefault("reader.cheer_delay", d.Reader.CheerDelay)
	v.SetDefault("reader.unlock_display", d.Reader.UnlockDisplay)
	v.SetDefault("reader.hint_display", d.Reader.HintDisplay)
	v.SetDefault("reader.close_delay", d.Reader.CloseDelay)
	v.SetDefault("reader.share_url", d.Reader.ShareURL)
	v.SetDefault("generation.poll_interval", d.Generation.PollInterval)
	v.SetDefault("generation.max_polls", d.Generation.MaxPolls)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.cors.allowed_origins", d.Server.CORS.AllowedOrigins)
	v.SetDefault("server.cors.allow_credentials", d.Server.CORS.AllowCredentials)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.doodlebook")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct. Providers
// missing from the file keep their defaults.
func (cm *Manager) load() (*Config, error) {
	cfg := DefaultConfig()
	// Slices decode in place; let the viper default supply origins.
	cfg.Server.CORS.AllowedOrigins = nil
	if err := cm.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ConfigFile returns the file the config was read from, or "" when running
// on defaults.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envVarPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToProviderRegistryConfig converts the enabled providers to a
// providers.RegistryConfig, resolving ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		Providers: make(map[string]providers.ProviderConfig),
	}
	poll := parseDuration(c.Generation.PollInterval)
	for name, p := range c.EnabledProviders() {
		cfg.Providers[name] = providers.ProviderConfig{
			Type:         p.Type,
			Model:        p.Model,
			ImageModel:   p.ImageModel,
			VideoModel:   p.VideoModel,
			APIKey:       ResolveEnvVars(p.APIKey),
			RateLimit:    p.RateLimit,
			PollInterval: poll,
			MaxPolls:     c.Generation.MaxPolls,
			Enabled:      p.Enabled,
		}
	}
	return cfg
}

// GenerationConfig returns the pipeline's provider selection.
func (c *Config) GenerationConfig() generation.Config {
	return generation.Config{
		Analyzer:    c.Defaults.Analyzer,
		Illustrator: c.Defaults.Illustrator,
		Animator:    c.Defaults.Animator,
		MaxWorkers:  c.Defaults.MaxWorkers,
	}
}

// ReaderConfig returns reading session timings. Invalid durations fall back
// to the reader defaults.
func (c *Config) ReaderConfig() reader.Config {
	return reader.Config{
		FlipDelay:     parseDuration(c.Reader.FlipDelay),
		CheerDelay:    parseDuration(c.Reader.CheerDelay),
		UnlockDisplay: parseDuration(c.Reader.UnlockDisplay),
		HintDisplay:   parseDuration(c.Reader.HintDisplay),
		CloseDelay:    parseDuration(c.Reader.CloseDelay),
		ShareURL:      c.Reader.ShareURL,
	}
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Doodlebook configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx
# Point defaults at "mock" to run without an API key.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
