package config

import (
	"time"

	"github.com/jackzampolin/doodlebook/internal/generation"
	"github.com/jackzampolin/doodlebook/internal/providers"
	"github.com/jackzampolin/doodlebook/internal/reader"
)

// Config holds doodlebook configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Providers  map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Defaults   DefaultsCfg            `mapstructure:"defaults" yaml:"defaults"`
	Reader     ReaderCfg              `mapstructure:"reader" yaml:"reader"`
	Generation GenerationCfg          `mapstructure:"generation" yaml:"generation"`
	Server     ServerCfg              `mapstructure:"server" yaml:"server"`
}

// ProviderCfg configures an AI provider.
type ProviderCfg struct {
	Type       string  `mapstructure:"type" yaml:"type"`                         // "openai", "mock"
	Model      string  `mapstructure:"model" yaml:"model,omitempty"`             // chat model for analysis
	ImageModel string  `mapstructure:"image_model" yaml:"image_model,omitempty"` // illustration model
	VideoModel string  `mapstructure:"video_model" yaml:"video_model,omitempty"` // movie model
	APIKey     string  `mapstructure:"api_key" yaml:"api_key,omitempty"`         // API key (supports ${ENV_VAR} syntax)
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"`   // Requests per second
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg selects which provider does each generation step.
type DefaultsCfg struct {
	Analyzer    string `mapstructure:"analyzer" yaml:"analyzer"`
	Illustrator string `mapstructure:"illustrator" yaml:"illustrator"`
	Animator    string `mapstructure:"animator" yaml:"animator"`
	MaxWorkers  int    `mapstructure:"max_workers" yaml:"max_workers"` // concurrent illustrations per book
}

// ReaderCfg holds reading session timings as Go duration strings.
type ReaderCfg struct {
	FlipDelay     string `mapstructure:"flip_delay" yaml:"flip_delay"`
	CheerDelay    string `mapstructure:"cheer_delay" yaml:"cheer_delay"`
	UnlockDisplay string `mapstructure:"unlock_display" yaml:"unlock_display"`
	HintDisplay   string `mapstructure:"hint_display" yaml:"hint_display"`
	CloseDelay    string `mapstructure:"close_delay" yaml:"close_delay"`
	ShareURL      string `mapstructure:"share_url" yaml:"share_url"`
}

// GenerationCfg tunes long-running provider jobs.
type GenerationCfg struct {
	PollInterval string `mapstructure:"poll_interval" yaml:"poll_interval"` // video job poll interval
	MaxPolls     uint   `mapstructure:"max_polls" yaml:"max_polls"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string  `mapstructure:"host" yaml:"host"`
	Port string  `mapstructure:"port" yaml:"port"`
	CORS CORSCfg `mapstructure:"cors" yaml:"cors"`
}

// CORSCfg configures cross-origin access for the browser client.
type CORSCfg struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	rd := reader.DefaultConfig()
	return &Config{
		Providers: map[string]ProviderCfg{
			providers.OpenAIName: {
				Type:      providers.OpenAIName,
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
			providers.MockName: {
				Type:    providers.MockName,
				Enabled: true,
			},
		},
		Defaults: DefaultsCfg{
			Analyzer:    providers.OpenAIName,
			Illustrator: providers.OpenAIName,
			Animator:    providers.OpenAIName,
			MaxWorkers:  generation.DefaultMaxWorkers,
		},
		Reader: ReaderCfg{
			FlipDelay:     rd.FlipDelay.String(),
			CheerDelay:    rd.CheerDelay.String(),
			UnlockDisplay: rd.UnlockDisplay.String(),
			HintDisplay:   rd.HintDisplay.String(),
			CloseDelay:    rd.CloseDelay.String(),
			ShareURL:      rd.ShareURL,
		},
		Generation: GenerationCfg{
			PollInterval: "8s",
			MaxPolls:     150,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
			CORS: CORSCfg{
				AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			},
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// parseDuration reads a duration string, returning zero for empty or invalid
// values so the consumer's default applies.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
