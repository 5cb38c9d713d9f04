// Package retry provides bounded fixed-delay retry logic for best-effort
// remote calls.
//
// Usage:
//
//	err := retry.Do(ctx, retry.Config{MaxAttempts: 5, Delay: 2 * time.Second}, func() error {
//	    return client.Call()
//	})
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Config controls the retry behaviour.
type Config struct {
	// MaxAttempts is the total number of attempts (including the first).
	// Zero or negative values are treated as 1 (no retries).
	MaxAttempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// Sleep is the delay strategy. When nil, a real timer is used.
	// Tests inject a no-op or recording function here.
	Sleep func(d time.Duration)
}

// DefaultConfig provides sensible defaults for short-lived network calls.
var DefaultConfig = Config{
	MaxAttempts: 3,
	Delay:       2 * time.Second,
}

// Do calls fn up to cfg.MaxAttempts times, waiting cfg.Delay between
// attempts. It stops early when ctx is cancelled or fn returns nil.
// The error from the last attempt is returned.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultConfig.Delay
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = func(d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxAttempts {
			slog.Debug("retry: attempt failed, retrying",
				"attempt", attempt, "max", cfg.MaxAttempts,
				"err", lastErr, "delay", cfg.Delay)
			sleep(cfg.Delay)
		}
	}

	return lastErr
}
