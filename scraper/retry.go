package scraper

import (
	"context"
	"time"

	"github.com/aluiziolira/bookscrape/config"
)

// maxBackoffShift keeps the exponential term well inside int64 nanoseconds.
const maxBackoffShift = 24

// RetryPolicy decides how often and how patiently a page is re-requested.
// It is built once per run and never mutated.
type RetryPolicy struct {
	MaxAttempts   int
	BackoffFactor time.Duration
	BackoffMax    time.Duration // 0 means uncapped
	Timeout       time.Duration

	retryable map[int]struct{}
}

// NewRetryPolicy derives the policy from cfg.
func NewRetryPolicy(cfg *config.Config) RetryPolicy {
	retryable := make(map[int]struct{}, len(cfg.RetryableStatuses))
	for _, status := range cfg.RetryableStatuses {
		retryable[status] = struct{}{}
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return RetryPolicy{
		MaxAttempts:   attempts,
		BackoffFactor: cfg.BackoffFactor,
		BackoffMax:    cfg.BackoffMax,
		Timeout:       cfg.Timeout,
		retryable:     retryable,
	}
}

// Retryable reports whether a response with status should be retried.
func (p RetryPolicy) Retryable(status int) bool {
	_, ok := p.retryable[status]
	return ok
}

// Backoff returns the pause after the given failed attempt (1-based):
// BackoffFactor * 2^(attempt-1).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	if p.BackoffFactor <= 0 {
		return 0
	}

	delay := p.BackoffFactor * time.Duration(1<<(attempt-1))
	if max := p.BackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
