package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Retry defaults: a fixed number of attempts with a fixed delay between them.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Retrying wraps a Provider with fixed-delay retries. Non-temporary status
// errors and context cancellation are returned immediately.
type Retrying struct {
	next     Provider
	attempts int
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// NewRetrying wraps next. Non-positive arguments fall back to the defaults.
func NewRetrying(next Provider, attempts int, delay time.Duration, logger *slog.Logger) *Retrying {
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	if delay < 0 {
		delay = DefaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, attempts: attempts, delay: delay, sleep: sleepContext, logger: logger}
}

// Complete calls the wrapped provider until it succeeds or attempts run out.
func (r *Retrying) Complete(ctx context.Context, req Request) (*Completion, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(ctx, err) {
			return nil, err
		}
		if attempt == r.attempts {
			break
		}

		r.logger.Warn("LLM request failed, retrying",
			"purpose", req.Purpose,
			"attempt", attempt,
			"delay", r.delay,
			"error", err,
		)
		if err := r.sleep(ctx, r.delay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("llm: request failed after %d attempts: %w", r.attempts, lastErr)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
