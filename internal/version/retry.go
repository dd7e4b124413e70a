// SPDX-License-Identifier: MPL-2.0

package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy bounds how often the resolver re-attempts a retryable fetch.
// The zero value performs a single attempt with no waiting.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the wait before the second try; it doubles each retry.
	Backoff time.Duration
}

// retryWithBackoff runs op up to policy.Attempts times, retrying only
// while the failure is retryable. Between attempts it waits the longer of
// the exponential backoff and any rate-limit reset the previous failure
// reported, and checks ctx to respect cancellation during the wait.
func retryWithBackoff(ctx context.Context, policy RetryPolicy, op func() error) error {
	attempts := max(policy.Attempts, 1)
	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			wait := policy.Backoff * time.Duration(1<<(attempt-1))
			if reset := resetTime(lastErr); !reset.IsZero() {
				if until := time.Until(reset); until > wait {
					wait = until
				}
			}
			slog.Debug("retrying version fetch", "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry aborted: %w", ctx.Err())
			case <-time.After(wait):
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// resetTime extracts the rate-limit reset timestamp from err, if any.
func resetTime(err error) time.Time {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.ResetAt
	}
	return time.Time{}
}
