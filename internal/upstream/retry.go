package upstream

import (
	"context"
	"math/rand"
	"time"

	"github.com/jmcortes/newswire/internal/config"
	"github.com/jmcortes/newswire/internal/errors"
)

// nonRetryable marks an error that must not be retried regardless of its
// underlying classification.
type nonRetryable struct {
	err error
}

func (e *nonRetryable) Error() string { return e.err.Error() }

func (e *nonRetryable) Unwrap() error { return e.err }

// withRetry runs fn until it succeeds, fails with a non-retryable error, or
// the budget of MaxRetries total attempts is spent. It returns the number of
// attempts made. Between attempts it waits for the backoff delay, aborting
// early if the context is canceled.
func (c *HTTPClient) withRetry(ctx context.Context, fn func() error) (int, error) {
	attempts := 0
	var lastErr error

	for attempt := 0; attempt < c.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempts, errors.Join(errors.FromContext(err), lastErr)
			}
			return attempts, errors.FromContext(err)
		}

		attempts++
		err := fn()
		if err == nil {
			return attempts, nil
		}

		var marked *nonRetryable
		if errors.As(err, &marked) {
			return attempts, marked.err
		}
		if !errors.IsRetryable(err) {
			return attempts, err
		}
		lastErr = err

		if attempt == c.retry.MaxRetries-1 {
			break
		}

		delay := backoffDelay(c.retry, attempt, c.jitter())
		c.logger.Warn("retrying upstream call",
			"attempt", attempt+1,
			"max_retries", c.retry.MaxRetries,
			"delay", delay.String(),
			"error", err.Error())
		if err := c.sleep(ctx, delay); err != nil {
			return attempts, errors.Join(errors.FromContext(err), lastErr)
		}
	}

	return attempts, errors.Join(errors.ErrRetriesExhausted, lastErr)
}

// backoffDelay computes the wait before retrying attempt+1. The delay doubles
// each attempt from the base, is capped at the max, then a symmetric jitter
// fraction is applied. jitterSample must be in [-1, 1). The result never
// drops below the configured floor.
func backoffDelay(cfg config.RetryConfig, attempt int, jitterSample float64) time.Duration {
	delay := cfg.BaseDelay() << uint(attempt)
	if max := cfg.MaxDelay(); delay > max || delay <= 0 {
		delay = max
	}

	jittered := delay + time.Duration(float64(delay)*cfg.JitterRange*jitterSample)
	if min := cfg.MinDelay(); jittered < min {
		jittered = min
	}
	return jittered
}

// defaultJitter returns a uniform sample in [-1, 1).
func defaultJitter() float64 {
	return rand.Float64()*2 - 1
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
