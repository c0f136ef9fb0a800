package providers

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/parley/internal/observability"
)

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// withRetry retries transient provider failures (rate limits and server
// errors) with exponential backoff. Other failures return immediately.
func withRetry(ctx context.Context, logger *observability.Logger, fn func() error) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		logger.Warn(ctx, "provider request failed, retrying",
			"attempt", attempt, "backoff", backoff.String(), "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return false
}
