package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
	"github.com/bstardust/gphotos-amazon-transfer/pkg/common"
)

// RetryConfig defines the bounded retry behavior for operations that fail
// transiently (rate limits, network hiccups).
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// BackoffFactor multiplies the delay after each failed attempt.
	BackoffFactor float64

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// Sleep is the delay function. Tests inject a no-op to avoid real waits.
	Sleep func(time.Duration)
}

// DefaultRetryConfig returns the retry policy used for real runs
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		BackoffFactor:  2.0,
		MaxBackoff:     30 * time.Second,
		Sleep:          time.Sleep,
	}
}

// retryable reports whether an error is worth another attempt. NotFound,
// duplicate, quota, and auth errors never are: retrying cannot change the
// outcome.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if common.IsNotFound(err) || common.IsDuplicate(err) || common.IsQuotaExceeded(err) || common.IsAuth(err) {
		return false
	}
	return common.IsRateLimit(err) || common.IsTransient(err)
}

// withRetry runs fn with bounded retries and increasing delay. A rate-limit
// response carrying its own Retry-After hint stretches the delay.
func withRetry(ctx context.Context, cfg RetryConfig, operation string, fn func() error) error {
	var err error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s canceled: %w", operation, ctx.Err())
		}

		err = fn()
		if err == nil {
			if attempt > 1 {
				logger.Info("%s succeeded on attempt %d", operation, attempt)
			}
			return nil
		}

		if !retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoff
		var rateLimit *common.RateLimitError
		if errors.As(err, &rateLimit) && rateLimit.RetryAfter > delay {
			delay = rateLimit.RetryAfter
		}
		if delay > cfg.MaxBackoff {
			delay = cfg.MaxBackoff
		}

		logger.Debug("Retrying %s in %v after attempt %d: %v", operation, delay, attempt, err)
		cfg.Sleep(delay)
		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.MaxAttempts, err)
}
