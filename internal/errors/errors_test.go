package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestUpstreamErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{0, true}, // network-level failure
		{400, false},
		{404, false},
		{422, false},
	}

	for _, tt := range tests {
		err := NewUpstreamError(tt.status, "boom", nil)
		if err.IsRetryable() != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, err.IsRetryable(), tt.retryable)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("status %d: IsRetryable helper = %v, want %v", tt.status, IsRetryable(err), tt.retryable)
		}
	}
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := NewUpstreamError(429, "rate limited", nil)
	want := "upstream error [status=429]: rate limited"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := NewUpstreamError(503, "request failed", New("connection refused"))
	if wrapped.Error() != "upstream error [status=503]: request failed: connection refused" {
		t.Errorf("unexpected wrapped message: %q", wrapped.Error())
	}
}

func TestIsRetryableThroughWrapping(t *testing.T) {
	base := NewUpstreamError(503, "temporary", nil)
	wrapped := fmt.Errorf("worker invoke: %w", base)

	if !IsRetryable(wrapped) {
		t.Error("IsRetryable should see through fmt.Errorf wrapping")
	}
	if IsRetryable(New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestPipelineErrorContext(t *testing.T) {
	err := NewPipelineError("stage failed", ErrRetriesExhausted).
		WithSessionID("abc123").
		WithStage("researcher")

	got := err.Error()
	want := "pipeline error [session=abc123, stage=researcher]: stage failed: upstream retries exhausted"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !Is(err, ErrRetriesExhausted) {
		t.Error("PipelineError should match its cause via errors.Is")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("session", "abc123")

	if err.Error() != `session "abc123" not found` {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !Is(err, ErrSessionNotFound) {
		t.Error("session NotFoundError should match ErrSessionNotFound")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should report true")
	}
	if IsNotFound(New("other")) {
		t.Error("IsNotFound should report false for unrelated errors")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("topic", "must not be empty")

	if err.Error() != "validation failed for topic: must not be empty" {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}

func TestFromContext(t *testing.T) {
	timeout := FromContext(context.DeadlineExceeded)
	if !Is(timeout, ErrTimeout) || !Is(timeout, context.DeadlineExceeded) {
		t.Errorf("deadline error = %v, want ErrTimeout wrapping DeadlineExceeded", timeout)
	}

	canceled := FromContext(context.Canceled)
	if !Is(canceled, ErrCanceled) || !Is(canceled, context.Canceled) {
		t.Errorf("canceled error = %v, want ErrCanceled wrapping Canceled", canceled)
	}

	other := New("unrelated")
	if got := FromContext(other); got != other {
		t.Errorf("unrelated error = %v, want passthrough", got)
	}
}
