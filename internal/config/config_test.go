package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default server config
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}

	// Verify default retry config
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("Retry.MaxRetries = %d, want 5", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelaySeconds != 2 {
		t.Errorf("Retry.BaseDelaySeconds = %d, want 2", cfg.Retry.BaseDelaySeconds)
	}
	if cfg.Retry.MaxDelaySeconds != 60 {
		t.Errorf("Retry.MaxDelaySeconds = %d, want 60", cfg.Retry.MaxDelaySeconds)
	}
	if cfg.Retry.JitterRange != 0.5 {
		t.Errorf("Retry.JitterRange = %v, want 0.5", cfg.Retry.JitterRange)
	}
	if cfg.Retry.MinDelayMs != 500 {
		t.Errorf("Retry.MinDelayMs = %d, want 500", cfg.Retry.MinDelayMs)
	}

	// Verify default pipeline config
	if cfg.Pipeline.MaxIterations != 3 {
		t.Errorf("Pipeline.MaxIterations = %d, want 3", cfg.Pipeline.MaxIterations)
	}

	// Verify default logging config
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() config should validate cleanly, got: %v", ValidationErrors(errs))
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	if got := cfg.Retry.BaseDelay(); got != 2*time.Second {
		t.Errorf("BaseDelay() = %v, want 2s", got)
	}
	if got := cfg.Retry.MaxDelay(); got != 60*time.Second {
		t.Errorf("MaxDelay() = %v, want 60s", got)
	}
	if got := cfg.Retry.MinDelay(); got != 500*time.Millisecond {
		t.Errorf("MinDelay() = %v, want 500ms", got)
	}
	if got := cfg.Upstream.RequestTimeout(); got != 120*time.Second {
		t.Errorf("RequestTimeout() = %v, want 120s", got)
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9090

	if got := cfg.Server.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9090", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			field:  "server.port",
		},
		{
			name:   "empty upstream url",
			mutate: func(c *Config) { c.Upstream.BaseURL = "" },
			field:  "upstream.base_url",
		},
		{
			name:   "malformed upstream url",
			mutate: func(c *Config) { c.Upstream.BaseURL = "not a url" },
			field:  "upstream.base_url",
		},
		{
			name:   "empty model",
			mutate: func(c *Config) { c.Upstream.Model = "" },
			field:  "upstream.model",
		},
		{
			name:   "negative max retries",
			mutate: func(c *Config) { c.Retry.MaxRetries = -1 },
			field:  "retry.max_retries",
		},
		{
			name:   "jitter above one",
			mutate: func(c *Config) { c.Retry.JitterRange = 1.5 },
			field:  "retry.jitter_range",
		},
		{
			name:   "max delay below base delay",
			mutate: func(c *Config) { c.Retry.MaxDelaySeconds = 1 },
			field:  "retry.max_delay_seconds",
		},
		{
			name:   "zero iterations",
			mutate: func(c *Config) { c.Pipeline.MaxIterations = 0 },
			field:  "pipeline.max_iterations",
		},
		{
			name:   "excessive iterations",
			mutate: func(c *Config) { c.Pipeline.MaxIterations = 99 },
			field:  "pipeline.max_iterations",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "verbose" },
			field:  "logging.level",
		},
		{
			name:   "zero search results",
			mutate: func(c *Config) { c.Search.MaxResults = 0 },
			field:  "search.max_results",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatal("expected validation errors, got none")
			}

			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got: %v", tt.field, ValidationErrors(errs))
			}
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a.b", Value: 1, Message: "too small"},
		{Field: "c.d", Value: "x", Message: "unknown value"},
	}

	msg := errs.Error()
	if !strings.Contains(msg, "2 validation errors") {
		t.Errorf("expected count header in message, got: %s", msg)
	}
	if !strings.Contains(msg, "a.b: too small (got: 1)") {
		t.Errorf("expected first error in message, got: %s", msg)
	}
}

func TestValidationErrorsSingle(t *testing.T) {
	errs := ValidationErrors{{Field: "a.b", Value: 1, Message: "too small"}}
	if got := errs.Error(); got != "a.b: too small (got: 1)" {
		t.Errorf("single error message = %q", got)
	}
}
