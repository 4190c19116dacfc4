package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig bounds delivery attempts for one channel.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseDelay is multiplied by 2^attempt between attempts.
	BaseDelay time.Duration
	// AttemptTimeout bounds each individual transport call.
	AttemptTimeout time.Duration
}

// DefaultRetryConfig matches the delivery contract: 3 extra attempts,
// exponential backoff, 10s per attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		BaseDelay:      500 * time.Millisecond,
		AttemptTimeout: 10 * time.Second,
	}
}

// terminalError marks failures that must not be retried: non-2xx
// responses other than 429/5xx, and malformed payloads.
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal wraps err so the retry loop stops immediately.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err (or anything it wraps) is terminal.
func IsTerminal(err error) bool {
	var te *terminalError
	return errors.As(err, &te)
}

// doWithRetry runs fn under the retry policy. Network failures and
// transient transport errors are retried with exponential backoff;
// terminal errors stop the loop. Returns the attempt count alongside
// the final error.
func doWithRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) (int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return attempts, nil
		}
		lastErr = err
		if IsTerminal(err) {
			return attempts, err
		}
		if attempt == cfg.MaxRetries {
			break
		}
		backoff := cfg.BaseDelay * (1 << attempt)
		select {
		case <-ctx.Done():
			return attempts, fmt.Errorf("delivery cancelled: %w", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return attempts, lastErr
}
