// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"math"
	"time"
)

// backoffBase controls the base duration for exponential backoff. Tests
// override it to keep retries fast.
var backoffBase = time.Second

// callWithRetry runs call until it succeeds, fails permanently, or the
// retry budget is spent. Only transient provider errors are retried.
func callWithRetry[T any](ctx context.Context, maxRetries int, call func() (T, error)) (T, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := call()
		if err == nil {
			return out, nil
		}
		if !isTransient(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
