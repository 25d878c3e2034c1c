package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Config controls how Do re-invokes a failing operation.
type Config struct {
	// Attempts is the total number of invocations, including the first.
	Attempts int
	// Backoff is the fixed delay between attempts.
	Backoff time.Duration
	// RetryIf decides whether an error is worth another attempt.
	// A nil predicate retries every error.
	RetryIf func(error) bool
	Logger  *logrus.Logger
}

// DefaultConfig matches the policy used across the network boundaries:
// 3 attempts with a fixed 1 second delay between them.
func DefaultConfig() Config {
	return Config{Attempts: 3, Backoff: 1 * time.Second}
}

// Do invokes op until it succeeds, the attempt budget is exhausted, the
// predicate rejects the error, or ctx is done. It returns the last error.
func Do(ctx context.Context, cfg Config, op func() error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if attempt > 1 {
			if cfg.Logger != nil {
				cfg.Logger.WithFields(logrus.Fields{
					"attempt": attempt,
					"backoff": cfg.Backoff,
				}).Debug("retrying after failure")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Backoff):
			}
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if cfg.RetryIf != nil && !cfg.RetryIf(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.Attempts, lastErr)
}
