package adapter

import (
	"context"
	"time"

	"github.com/dvera/autopilot/pkg/schema"
)

// SelectorAttempt tries one selector candidate and reports whether it worked.
type SelectorAttempt func(ctx context.Context, selector string) error

// TrySelectors attempts each selector in priority order until one succeeds,
// recording a per-selector metric for every attempt. It returns the selector
// that worked, or an execution error carrying the last attempt's failure when
// all candidates are exhausted.
//
// This is the ordered-strategy replacement for exception-swallowing "click
// whatever matches first" loops: every attempt leaves a telemetry trace.
func TrySelectors(ctx context.Context, tracker *Tracker, selectors []string, attempt SelectorAttempt) (string, error) {
	if len(selectors) == 0 {
		return "", schema.NewError(schema.ErrCodeValidation, "no selector candidates provided")
	}

	var lastErr error
	for _, selector := range selectors {
		if ctx.Err() != nil {
			return "", schema.NewError(schema.ErrCodeCancelled, "selector attempts cancelled").WithCause(ctx.Err())
		}
		start := time.Now()
		err := attempt(ctx, selector)
		if tracker != nil {
			tracker.RecordSelector(selector, time.Since(start), err)
		}
		if err == nil {
			return selector, nil
		}
		lastErr = err
	}

	return "", schema.NewErrorf(schema.ErrCodeExecution,
		"all %d selector candidates failed: %s", len(selectors), lastErr.Error()).WithCause(lastErr)
}
