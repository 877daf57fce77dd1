package resilience

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig controls the backoff schedule.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryConfig suits short local HTTP calls.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// IsRetryableError decides whether an error is worth another attempt.
type IsRetryableError func(error) bool

// Retry executes fn until it succeeds, a non-retryable error occurs, the
// attempts run out, or ctx is cancelled.
func Retry(ctx context.Context, fn func() error, config *RetryConfig, isRetryable IsRetryableError) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetryable != nil && !isRetryable(err) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		sleep := CalculateBackoff(attempt, config.InitialBackoff, config.MaxBackoff, config.BackoffMultiplier)
		if config.Jitter {
			sleep += time.Duration(rand.Int63n(int64(sleep)/4 + 1))
		}
		if sleep > config.MaxBackoff {
			sleep = config.MaxBackoff
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// CalculateBackoff returns the exponential backoff for a given attempt,
// capped at maxBackoff.
func CalculateBackoff(attempt int, initialBackoff, maxBackoff time.Duration, multiplier float64) time.Duration {
	backoff := time.Duration(float64(initialBackoff) * math.Pow(multiplier, float64(attempt)))
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}

// IsRetryableNetworkError reports whether an error smells like a transient
// network or load problem.
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	for _, substr := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"network is unreachable",
		"no route to host",
		"unavailable",
		"deadline exceeded",
		"timeout",
		"i/o timeout",
		"resource exhausted",
		"too many connections",
		"rate limit",
	} {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
