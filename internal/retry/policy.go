package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is a bounded retry policy with a fixed delay between attempts.
// It is immutable after construction.
type Policy struct {
	MaxAttempts int           // total attempts including the first one
	Delay       time.Duration // sleep between attempts
}

// DefaultPolicy returns the workspace cleanup policy: 5 attempts, 5s apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, Delay: 5 * time.Second}
}

// NewPolicy builds a policy; non-positive values fall back to the defaults.
func NewPolicy(maxAttempts int, delay time.Duration) Policy {
	p := DefaultPolicy()
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if delay >= 0 {
		p.Delay = delay
	}
	return p
}

// Validate ensures invariants; returns error if the policy cannot be applied.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be >0")
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	return nil
}

// ExhaustedError is returned by Do when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error // last attempt's error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do calls fn until it succeeds or the policy is exhausted. onRetry, if non-nil,
// is called after each failed attempt that will be retried. A cancelled context
// stops the loop during the sleep and returns the context error.
func (p Policy) Do(ctx context.Context, fn func() error, onRetry func(attempt int, err error)) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, lastErr)
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}
