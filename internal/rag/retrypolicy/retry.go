package retrypolicy

import (
	"context"
	"time"

	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

// Policy is a reusable retry-with-backoff wrapper for external calls.
// Attempts and delays are configuration, not control flow scattered around
// call sites.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	logger      *logger_i.Logger
}

func New(maxAttempts int, baseDelay, maxDelay time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		logger:      logger_i.NewLogger("Retry"),
	}
}

// Do runs the operation until it succeeds or attempts are exhausted, sleeping
// with doubling capped delay between attempts. Context cancellation stops the
// loop immediately and returns the last error.
func (p Policy) Do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		p.logger.Warn("Operation failed, retrying", "operation", operation, "attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	p.logger.Error("Operation failed after all attempts", "operation", operation, "attempts", p.MaxAttempts, "error", lastErr)
	return lastErr
}
