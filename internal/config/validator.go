package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "retry.max_retries")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateUpstream()...)
	errors = append(errors, c.validateRetry()...)
	errors = append(errors, c.validatePipeline()...)
	errors = append(errors, c.validateSearch()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Value:   c.Server.Port,
			Message: "must be between 1 and 65535",
		})
	}

	if c.Server.ShutdownTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.shutdown_timeout_seconds",
			Value:   c.Server.ShutdownTimeoutSeconds,
			Message: "must be non-negative",
		})
	}

	if c.Server.SSEPingIntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "server.sse_ping_interval_seconds",
			Value:   c.Server.SSEPingIntervalSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateUpstream validates the UpstreamConfig
func (c *Config) validateUpstream() []ValidationError {
	var errors []ValidationError

	if c.Upstream.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "upstream.base_url",
			Value:   c.Upstream.BaseURL,
			Message: "cannot be empty",
		})
	} else if !isValidHTTPURL(c.Upstream.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "upstream.base_url",
			Value:   c.Upstream.BaseURL,
			Message: "must be a valid http or https URL",
		})
	}

	if c.Upstream.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "upstream.model",
			Value:   c.Upstream.Model,
			Message: "cannot be empty",
		})
	}

	if c.Upstream.RequestTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "upstream.request_timeout_seconds",
			Value:   c.Upstream.RequestTimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	if c.Upstream.MaxTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "upstream.max_tokens",
			Value:   c.Upstream.MaxTokens,
			Message: "must be non-negative (0 uses the gateway default)",
		})
	}

	return errors
}

// validateRetry validates the RetryConfig
func (c *Config) validateRetry() []ValidationError {
	var errors []ValidationError

	const maxMaxRetries = 20
	if c.Retry.MaxRetries < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_retries",
			Value:   c.Retry.MaxRetries,
			Message: "must allow at least one attempt",
		})
	}
	if c.Retry.MaxRetries > maxMaxRetries {
		errors = append(errors, ValidationError{
			Field:   "retry.max_retries",
			Value:   c.Retry.MaxRetries,
			Message: fmt.Sprintf("exceeds maximum of %d", maxMaxRetries),
		})
	}

	if c.Retry.BaseDelaySeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.base_delay_seconds",
			Value:   c.Retry.BaseDelaySeconds,
			Message: "must be at least 1",
		})
	}

	if c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySeconds {
		errors = append(errors, ValidationError{
			Field:   "retry.max_delay_seconds",
			Value:   c.Retry.MaxDelaySeconds,
			Message: fmt.Sprintf("must be at least base_delay_seconds (%d)", c.Retry.BaseDelaySeconds),
		})
	}

	if c.Retry.JitterRange < 0 || c.Retry.JitterRange > 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.jitter_range",
			Value:   c.Retry.JitterRange,
			Message: "must be between 0 and 1",
		})
	}

	if c.Retry.MinDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "retry.min_delay_ms",
			Value:   c.Retry.MinDelayMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validatePipeline validates the PipelineConfig
func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	const maxMaxIterations = 10
	if c.Pipeline.MaxIterations < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_iterations",
			Value:   c.Pipeline.MaxIterations,
			Message: "must be at least 1",
		})
	}
	if c.Pipeline.MaxIterations > maxMaxIterations {
		errors = append(errors, ValidationError{
			Field:   "pipeline.max_iterations",
			Value:   c.Pipeline.MaxIterations,
			Message: fmt.Sprintf("exceeds maximum of %d", maxMaxIterations),
		})
	}

	if c.Pipeline.FeedbackExcerptLen < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.feedback_excerpt_len",
			Value:   c.Pipeline.FeedbackExcerptLen,
			Message: "must be at least 1",
		})
	}

	if c.Pipeline.StageTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.stage_timeout_seconds",
			Value:   c.Pipeline.StageTimeoutSeconds,
			Message: "must be non-negative (0 disables timeout)",
		})
	}

	if c.Pipeline.EventBufferSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "pipeline.event_buffer_size",
			Value:   c.Pipeline.EventBufferSize,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateSearch validates the SearchConfig
func (c *Config) validateSearch() []ValidationError {
	var errors []ValidationError

	if c.Search.BaseURL != "" && !isValidHTTPURL(c.Search.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "search.base_url",
			Value:   c.Search.BaseURL,
			Message: "must be a valid http or https URL",
		})
	}

	const maxSearchResults = 20
	if c.Search.MaxResults < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.max_results",
			Value:   c.Search.MaxResults,
			Message: "must be at least 1",
		})
	}
	if c.Search.MaxResults > maxSearchResults {
		errors = append(errors, ValidationError{
			Field:   "search.max_results",
			Value:   c.Search.MaxResults,
			Message: fmt.Sprintf("exceeds maximum of %d", maxSearchResults),
		})
	}

	if c.Search.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.timeout_seconds",
			Value:   c.Search.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// isValidHTTPURL reports whether s parses as an absolute http(s) URL
func isValidHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
