package engine

import (
	"context"
	"errors"
	"time"

	"github.com/dvera/autopilot/pkg/schema"
)

// IsRetryableError classifies whether a failed attempt is worth repeating.
// Validation, confirmation, and token errors describe the call itself and
// will fail identically on every attempt; execution errors and everything
// untyped default to retryable so the step's attempt budget is the limit.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var perr *schema.PilotError
	if errors.As(err, &perr) {
		switch perr.Code {
		case schema.ErrCodeValidation, schema.ErrCodeConfirmation,
			schema.ErrCodeToken, schema.ErrCodeCancelled:
			return false
		}
	}
	return true
}

// WaitForRetry sleeps for the given delay or returns early when the context
// is cancelled. A non-positive delay returns immediately.
func WaitForRetry(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return schema.NewError(schema.ErrCodeCancelled, "wait interrupted").WithCause(ctx.Err())
	}
}
