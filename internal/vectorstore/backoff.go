package vectorstore

import (
	"context"
	"time"

	"github.com/relaya-ai/relaya/internal/domain"
)

const (
	// DefaultMaxAttempts is the total attempt budget for rate-limited operations
	DefaultMaxAttempts = 5
	// DefaultBaseDelay is the backoff unit; delay doubles after each attempt
	DefaultBaseDelay = time.Second
)

// RetryClassifier reports whether an error should be retried with backoff.
type RetryClassifier func(error) bool

// withBackoff runs op, retrying with exponential delay when the classifier
// marks the error as rate limiting. Delays are baseDelay * 2^attempt, so with
// the defaults a failing operation waits 1s, 2s, 4s, 8s before the fifth and
// final attempt. Any other error propagates immediately; exhausting the
// budget surfaces as a rate-limited failure wrapping the last error.
func withBackoff(ctx context.Context, op func(context.Context) error, isRetryable RetryClassifier, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	var lastErr error
	delay := baseDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if isRetryable == nil || !isRetryable(lastErr) {
			return lastErr
		}
	}

	return domain.NewDomainErrorWithCause(domain.ErrCodeRateLimited,
		"retry budget exhausted", lastErr)
}
