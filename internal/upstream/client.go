// Package upstream provides the client for the language model gateway.
//
// The gateway speaks the OpenAI-compatible chat completions protocol. Calls
// are retried with exponential backoff and jitter when the failure is
// transient (rate limits, server errors, network failures); client errors
// other than 429 fail immediately.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/util"
)

// Message is a single chat message in the conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is a request to the gateway's chat completions endpoint.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// ChatResponse is the assembled result of a chat completion.
type ChatResponse struct {
	Content      string
	FinishReason string
	Attempts     int
}

// DeltaFunc receives incremental content fragments during a streaming
// completion. Returning an error aborts the stream.
type DeltaFunc func(delta string) error

// Client is the interface the pipeline stages use to talk to the gateway.
type Client interface {
	// Chat performs a buffered completion, retrying transient failures.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// ChatStream performs a streaming completion, invoking onDelta for each
	// content fragment and returning the assembled response. Retries apply
	// only before the first delta is delivered.
	ChatStream(ctx context.Context, req ChatRequest, onDelta DeltaFunc) (ChatResponse, error)
}

// HTTPClient implements Client against an HTTP gateway.
type HTTPClient struct {
	endpoint string
	model    string
	apiKey   string
	maxToken int
	retry    config.RetryConfig
	http     *http.Client
	logger   *logging.Logger

	// jitter returns a sample in [-1, 1). Replaceable in tests.
	jitter func() float64
	// sleep waits for d or until ctx is done. Replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHTTPClient creates a gateway client from configuration.
func NewHTTPClient(upstreamCfg config.UpstreamConfig, retryCfg config.RetryConfig, logger *logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &HTTPClient{
		endpoint: upstreamCfg.BaseURL,
		model:    upstreamCfg.Model,
		apiKey:   upstreamCfg.APIKey,
		maxToken: upstreamCfg.MaxTokens,
		retry:    retryCfg,
		http: &http.Client{
			Timeout: upstreamCfg.RequestTimeout(),
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger.WithComponent("upstream"),
		jitter: defaultJitter,
		sleep:  sleepContext,
	}
}

// Chat performs a buffered completion with retries.
func (c *HTTPClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := c.prepare(&req); err != nil {
		return ChatResponse{}, err
	}
	req.Stream = false

	var resp ChatResponse
	attempts, err := c.withRetry(ctx, func() error {
		var attemptErr error
		resp, attemptErr = c.chatOnce(ctx, req)
		return attemptErr
	})
	resp.Attempts = attempts
	if err != nil {
		return ChatResponse{}, err
	}
	return resp, nil
}

// ChatStream performs a streaming completion. The retry loop covers attempts
// that fail before any content is delivered; once the first delta reaches
// onDelta, a mid-stream failure is returned without retrying so the caller
// never sees duplicated content.
func (c *HTTPClient) ChatStream(ctx context.Context, req ChatRequest, onDelta DeltaFunc) (ChatResponse, error) {
	if err := c.prepare(&req); err != nil {
		return ChatResponse{}, err
	}
	req.Stream = true

	var resp ChatResponse
	var delivered bool
	attempts, err := c.withRetry(ctx, func() error {
		var attemptErr error
		resp, attemptErr = c.streamOnce(ctx, req, func(delta string) error {
			delivered = true
			if onDelta == nil {
				return nil
			}
			return onDelta(delta)
		})
		if attemptErr != nil && delivered {
			// Do not retry a stream that already produced output.
			return &nonRetryable{attemptErr}
		}
		return attemptErr
	})
	resp.Attempts = attempts
	if err != nil {
		return ChatResponse{}, err
	}
	return resp, nil
}

// prepare validates the request and applies client defaults.
func (c *HTTPClient) prepare(req *ChatRequest) error {
	if len(req.Messages) == 0 {
		return errors.NewValidationError("messages", "at least one message is required")
	}
	req.Model = util.FirstNonEmpty(req.Model, c.model)
	if req.MaxTokens == 0 {
		req.MaxTokens = c.maxToken
	}
	return nil
}

// chatCompletionResponse mirrors the gateway's buffered response shape.
type chatCompletionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// chatOnce performs a single buffered completion attempt.
func (c *HTTPClient) chatOnce(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body, status, err := c.post(ctx, req)
	if err != nil {
		return ChatResponse{}, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return ChatResponse{}, errors.NewUpstreamError(0, "read response body", err)
	}
	if status < 200 || status >= 300 {
		return ChatResponse{}, errors.NewUpstreamError(status, errorSnippet(raw), nil)
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ChatResponse{}, errors.NewUpstreamError(status, "decode response", err)
	}
	if decoded.Error != nil {
		return ChatResponse{}, errors.NewUpstreamError(status, decoded.Error.Message, nil)
	}
	if len(decoded.Choices) == 0 {
		return ChatResponse{}, errors.NewUpstreamError(status, "response missing choices", nil)
	}

	content := decoded.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return ChatResponse{}, errors.NewUpstreamError(status, "response carried empty content", nil)
	}
	return ChatResponse{
		Content:      content,
		FinishReason: strings.TrimSpace(decoded.Choices[0].FinishReason),
	}, nil
}

// post sends the request and returns the response body and status. Transport
// failures are classified as retryable upstream errors with status 0.
func (c *HTTPClient) post(ctx context.Context, req ChatRequest) (io.ReadCloser, int, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, errors.FromContext(ctxErr)
		}
		return nil, 0, errors.NewUpstreamError(0, "request failed", err)
	}
	return resp.Body, resp.StatusCode, nil
}

// errorSnippet extracts a short error description from a non-2xx body.
func errorSnippet(raw []byte) string {
	var decoded struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error != nil && decoded.Error.Message != "" {
		return util.TruncateString(decoded.Error.Message, 200)
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "request rejected"
	}
	return util.TruncateString(trimmed, 200)
}
