package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Newswire configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream" yaml:"upstream"`
	Retry    RetryConfig    `mapstructure:"retry" yaml:"retry"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Search   SearchConfig   `mapstructure:"search" yaml:"search"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig controls the HTTP server
type ServerConfig struct {
	// Host is the listen address (default: "0.0.0.0")
	Host string `mapstructure:"host" yaml:"host"`
	// Port is the listen port (default: 8080)
	Port int `mapstructure:"port" yaml:"port"`
	// ShutdownTimeoutSeconds is how long to wait for in-flight requests on shutdown
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	// SSEPingIntervalSeconds is the keepalive ping interval for event streams
	SSEPingIntervalSeconds int `mapstructure:"sse_ping_interval_seconds" yaml:"sse_ping_interval_seconds"`
	// CORSOrigins is the list of allowed origins for cross-origin requests
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// UpstreamConfig controls the language model gateway client
type UpstreamConfig struct {
	// BaseURL is the gateway endpoint (OpenAI-compatible chat completions)
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// Model is the model identifier sent with every request
	Model string `mapstructure:"model" yaml:"model"`
	// APIKey authenticates against the gateway. Usually set via
	// NEWSWIRE_UPSTREAM_API_KEY rather than the config file.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	// RequestTimeoutSeconds bounds a single request attempt (default: 120)
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" yaml:"request_timeout_seconds"`
	// MaxTokens caps the completion length per request (0 = gateway default)
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// RetryConfig controls retry behavior for upstream calls
type RetryConfig struct {
	// MaxRetries is the total number of attempts per upstream call (default: 5)
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// BaseDelaySeconds is the starting backoff delay (default: 2)
	BaseDelaySeconds int `mapstructure:"base_delay_seconds" yaml:"base_delay_seconds"`
	// MaxDelaySeconds caps the backoff delay before jitter (default: 60)
	MaxDelaySeconds int `mapstructure:"max_delay_seconds" yaml:"max_delay_seconds"`
	// JitterRange is the symmetric jitter fraction applied to the delay,
	// 0.5 means the delay varies by up to +/-50% (default: 0.5)
	JitterRange float64 `mapstructure:"jitter_range" yaml:"jitter_range"`
	// MinDelayMs is the floor for the post-jitter delay (default: 500)
	MinDelayMs int `mapstructure:"min_delay_ms" yaml:"min_delay_ms"`
}

// PipelineConfig controls the generation pipeline
type PipelineConfig struct {
	// MaxIterations limits research/validate cycles per session (default: 3)
	MaxIterations int `mapstructure:"max_iterations" yaml:"max_iterations"`
	// FeedbackExcerptLen is the max length of validator feedback carried
	// into the next research cycle (default: 600)
	FeedbackExcerptLen int `mapstructure:"feedback_excerpt_len" yaml:"feedback_excerpt_len"`
	// StageTimeoutSeconds bounds a single stage invocation, including
	// retries (0 = no stage-level timeout)
	StageTimeoutSeconds int `mapstructure:"stage_timeout_seconds" yaml:"stage_timeout_seconds"`
	// EventBufferSize is the per-subscriber event channel capacity
	EventBufferSize int `mapstructure:"event_buffer_size" yaml:"event_buffer_size"`
}

// SearchConfig controls the news search tool
type SearchConfig struct {
	// BaseURL is the base address of the scraper service
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// MaxResults is the default number of results requested per source
	// per query, clamped to 1-20 (default: 5)
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`
	// TimeoutSeconds bounds a single search request. Local scrapers with
	// browser automation can take over a minute (default: 90)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// DeepSources lists source names whose results carry full extracted
	// article content rather than API snippets
	DeepSources []string `mapstructure:"deep_sources" yaml:"deep_sources"`
	// APISources lists source names backed by global news APIs that
	// return snippets only
	APISources []string `mapstructure:"api_sources" yaml:"api_sources"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
}

// ShutdownTimeout returns the shutdown timeout as a time.Duration
func (s *ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// SSEPingInterval returns the keepalive interval as a time.Duration
func (s *ServerConfig) SSEPingInterval() time.Duration {
	return time.Duration(s.SSEPingIntervalSeconds) * time.Second
}

// Addr returns the host:port listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RequestTimeout returns the per-attempt timeout as a time.Duration
func (u *UpstreamConfig) RequestTimeout() time.Duration {
	return time.Duration(u.RequestTimeoutSeconds) * time.Second
}

// BaseDelay returns the starting backoff delay as a time.Duration
func (r *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelaySeconds) * time.Second
}

// MaxDelay returns the backoff cap as a time.Duration
func (r *RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelaySeconds) * time.Second
}

// MinDelay returns the post-jitter floor as a time.Duration
func (r *RetryConfig) MinDelay() time.Duration {
	return time.Duration(r.MinDelayMs) * time.Millisecond
}

// StageTimeout returns the stage timeout as a time.Duration (0 means disabled)
func (p *PipelineConfig) StageTimeout() time.Duration {
	return time.Duration(p.StageTimeoutSeconds) * time.Second
}

// Timeout returns the search request timeout as a time.Duration
func (s *SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8080,
			ShutdownTimeoutSeconds: 15,
			SSEPingIntervalSeconds: 15,
			CORSOrigins:            []string{"*"},
		},
		Upstream: UpstreamConfig{
			BaseURL:               "http://localhost:4000/v1/chat/completions",
			Model:                 "gpt-4o",
			APIKey:                "",
			RequestTimeoutSeconds: 120,
			MaxTokens:             0, // Gateway default
		},
		Retry: RetryConfig{
			MaxRetries:       5,
			BaseDelaySeconds: 2,
			MaxDelaySeconds:  60,
			JitterRange:      0.5,
			MinDelayMs:       500,
		},
		Pipeline: PipelineConfig{
			MaxIterations:       3,
			FeedbackExcerptLen:  600,
			StageTimeoutSeconds: 0, // No stage-level timeout by default
			EventBufferSize:     64,
		},
		Search: SearchConfig{
			BaseURL:        "http://127.0.0.1:5000",
			MaxResults:     5,
			TimeoutSeconds: 90,
			DeepSources:    []string{"La República", "El Comercio", "Infobae"},
			APISources:     []string{"NewsAPI", "TheNewsAPI"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Server defaults
	viper.SetDefault("server.host", defaults.Server.Host)
	viper.SetDefault("server.port", defaults.Server.Port)
	viper.SetDefault("server.shutdown_timeout_seconds", defaults.Server.ShutdownTimeoutSeconds)
	viper.SetDefault("server.sse_ping_interval_seconds", defaults.Server.SSEPingIntervalSeconds)
	viper.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)

	// Upstream defaults
	viper.SetDefault("upstream.base_url", defaults.Upstream.BaseURL)
	viper.SetDefault("upstream.model", defaults.Upstream.Model)
	viper.SetDefault("upstream.api_key", defaults.Upstream.APIKey)
	viper.SetDefault("upstream.request_timeout_seconds", defaults.Upstream.RequestTimeoutSeconds)
	viper.SetDefault("upstream.max_tokens", defaults.Upstream.MaxTokens)

	// Retry defaults
	viper.SetDefault("retry.max_retries", defaults.Retry.MaxRetries)
	viper.SetDefault("retry.base_delay_seconds", defaults.Retry.BaseDelaySeconds)
	viper.SetDefault("retry.max_delay_seconds", defaults.Retry.MaxDelaySeconds)
	viper.SetDefault("retry.jitter_range", defaults.Retry.JitterRange)
	viper.SetDefault("retry.min_delay_ms", defaults.Retry.MinDelayMs)

	// Pipeline defaults
	viper.SetDefault("pipeline.max_iterations", defaults.Pipeline.MaxIterations)
	viper.SetDefault("pipeline.feedback_excerpt_len", defaults.Pipeline.FeedbackExcerptLen)
	viper.SetDefault("pipeline.stage_timeout_seconds", defaults.Pipeline.StageTimeoutSeconds)
	viper.SetDefault("pipeline.event_buffer_size", defaults.Pipeline.EventBufferSize)

	// Search defaults
	viper.SetDefault("search.base_url", defaults.Search.BaseURL)
	viper.SetDefault("search.max_results", defaults.Search.MaxResults)
	viper.SetDefault("search.timeout_seconds", defaults.Search.TimeoutSeconds)
	viper.SetDefault("search.deep_sources", defaults.Search.DeepSources)
	viper.SetDefault("search.api_sources", defaults.Search.APISources)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "newswire")
	}
	// Fall back to ~/.config/newswire
	home, err := os.UserHomeDir()
	if err != nil {
		return ".newswire"
	}
	return filepath.Join(home, ".config", "newswire")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
