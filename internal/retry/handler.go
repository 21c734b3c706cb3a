package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"pokesprite/internal/failure"
)

// Retry runs fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. Between attempts it sleeps for an exponential
// backoff with jitter; a canceled context stops the loop early.
func Retry[T any](ctx context.Context, param Param, fn func() (T, error)) (T, error) {
	var zero T

	if param.MaxAttempts < 1 {
		return zero, &RetryError{
			Message:   "max attempt cannot be 0",
			Cause:     ErrZeroAttempt,
			Retryable: false,
		}
	}

	rng := rand.New(rand.NewSource(param.RandomSeed))

	var lastErr error
	for attempt := 1; attempt <= param.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !failure.IsRetryable(err) {
			return zero, err
		}
		if attempt == param.MaxAttempts {
			break
		}

		var jitter time.Duration
		if param.Jitter > 0 {
			jitter = time.Duration(rng.Int63n(int64(param.Jitter)))
		}

		timer := time.NewTimer(param.Delay(attempt, jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, &RetryError{
				Message:   fmt.Sprintf("stopped after %d attempts: %v", attempt, ctx.Err()),
				Cause:     ErrCanceled,
				Retryable: false,
				Last:      lastErr,
			}
		case <-timer.C:
		}
	}

	// A single attempt is not a retry; hand back the original error.
	if param.MaxAttempts == 1 {
		return zero, lastErr
	}

	return zero, &RetryError{
		Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", param.MaxAttempts, lastErr),
		Cause:     ErrExhaustedAttempts,
		Retryable: true,
		Last:      lastErr,
	}
}
