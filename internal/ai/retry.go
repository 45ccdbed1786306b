package ai

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// MaxRetries is the number of additional attempts after a transient failure
	MaxRetries = 3
	// BaseBackoff is the base wait time for exponential backoff
	BaseBackoff = 500 * time.Millisecond
	// MaxBackoff caps the exponential backoff wait time
	MaxBackoff = 8 * time.Second
)

// withRetry runs fn, retrying transient failures with exponential backoff
// and jitter. Non-transient failures and context cancellation return
// immediately.
func withRetry(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoff > MaxBackoff {
				backoff = MaxBackoff
			}
			backoff += time.Duration(rand.Int63n(int64(backoff) / 2))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return err
		}
	}

	return lastErr
}

// isTransient reports whether the error is worth retrying: rate limits,
// server-side failures and network timeouts. Client errors such as invalid
// requests or bad credentials fail fast.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
