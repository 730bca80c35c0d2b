// Package errors provides centralized error definitions and error handling
// utilities for the newswire codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - UpstreamError: errors returned by the upstream generation service
//   - PipelineError: errors raised while driving a session's pipeline
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	// Classified upstream failure
//	err := errors.NewUpstreamError(429, "rate limited", nil)
//
//	// Semantic error
//	err := errors.NewNotFoundError("session", "abc123")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrSessionNotFound) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Session-related sentinel errors
var (
	// ErrSessionNotFound indicates that a session could not be found.
	ErrSessionNotFound = New("session not found")
	// ErrSessionTerminal indicates an attempted transition out of a terminal state.
	ErrSessionTerminal = New("session already in terminal state")
	// ErrEmptyTopic indicates that a submission carried no topic.
	ErrEmptyTopic = New("topic must not be empty")
)

// Pipeline-related sentinel errors
var (
	// ErrIterationsExhausted indicates the bounded backtracking loop ran out
	// of iterations without an approved verdict.
	ErrIterationsExhausted = New("iteration budget exhausted without approval")
	// ErrVerdictUnparsed indicates the validator output carried no
	// recognizable verdict token.
	ErrVerdictUnparsed = New("validator output carried no verdict")
)

// Upstream-related sentinel errors
var (
	// ErrRetriesExhausted indicates the upstream retry budget was spent.
	ErrRetriesExhausted = New("upstream retries exhausted")
	// ErrStreamClosed indicates a read from an already-terminated stream.
	ErrStreamClosed = New("upstream stream closed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Upstream Errors
// -----------------------------------------------------------------------------

// UpstreamError represents a classified failure of a call to the upstream
// generation service. StatusCode carries the HTTP status (or an HTTP-equivalent
// code for network-level failures), and Retryable records the classification:
// 429, 5xx and network failures are retryable, other 4xx are not.
type UpstreamError struct {
	StatusCode int
	Message    string
	Retryable  bool
	cause      error
}

// NewUpstreamError creates an UpstreamError, classifying retryability from
// the status code: 429 and anything >= 500 (including the 0 used for
// network-level failures) is retryable, other 4xx is not.
func NewUpstreamError(statusCode int, message string, cause error) *UpstreamError {
	retryable := statusCode == 429 || statusCode >= 500 || statusCode <= 0
	return &UpstreamError{
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
		cause:      cause,
	}
}

// Error returns the formatted error message.
func (e *UpstreamError) Error() string {
	prefix := fmt.Sprintf("upstream error [status=%d]", e.StatusCode)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error { return e.cause }

// IsRetryable returns whether the failure may succeed on retry.
func (e *UpstreamError) IsRetryable() bool { return e.Retryable }

// -----------------------------------------------------------------------------
// Pipeline Errors
// -----------------------------------------------------------------------------

// PipelineError represents a failure while driving a session's pipeline.
//
// Example:
//
//	err := errors.NewPipelineError("research stage failed", cause).
//		WithSessionID("abc123").WithStage("researcher")
type PipelineError struct {
	SessionID string
	Stage     string
	message   string
	cause     error
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(message string, cause error) *PipelineError {
	return &PipelineError{message: message, cause: cause}
}

// WithSessionID adds a session ID to the error context.
func (e *PipelineError) WithSessionID(id string) *PipelineError {
	e.SessionID = id
	return e
}

// WithStage adds the pipeline stage name to the error context.
func (e *PipelineError) WithStage(stage string) *PipelineError {
	e.Stage = stage
	return e
}

// Error returns the formatted error message.
func (e *PipelineError) Error() string {
	prefix := "pipeline error"
	switch {
	case e.SessionID != "" && e.Stage != "":
		prefix = fmt.Sprintf("pipeline error [session=%s, stage=%s]", e.SessionID, e.Stage)
	case e.SessionID != "":
		prefix = fmt.Sprintf("pipeline error [session=%s]", e.SessionID)
	case e.Stage != "":
		prefix = fmt.Sprintf("pipeline error [stage=%s]", e.Stage)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error { return e.cause }

// Is reports whether this error matches the target error.
func (e *PipelineError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates that a requested resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows a session NotFoundError to match ErrSessionNotFound.
func (e *NotFoundError) Is(target error) bool {
	return e.Resource == "session" && target == ErrSessionNotFound
}

// ValidationError indicates that input failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is allows ValidationError to match ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// retryable is implemented by errors that know their own retry semantics.
type retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether the error is transient and the operation may
// succeed on retry. Errors that do not carry an explicit classification are
// treated as non-retryable.
func IsRetryable(err error) bool {
	var r retryable
	if As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return As(err, &nf) || Is(err, ErrSessionNotFound)
}

// FromContext classifies a context error as ErrTimeout or ErrCanceled while
// preserving the original error for Is checks. Non-context errors are
// returned unchanged.
func FromContext(err error) error {
	switch {
	case Is(err, context.DeadlineExceeded):
		return Join(ErrTimeout, err)
	case Is(err, context.Canceled):
		return Join(ErrCanceled, err)
	default:
		return err
	}
}
