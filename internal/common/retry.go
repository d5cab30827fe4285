package common

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryableFunc defines a function that can be retried.
// It should return an error if the operation failed and needs to be retried.
type RetryableFunc func() error

// Backoff computes the wait before the given retry (1-based).
type Backoff func(attempt int, base, max time.Duration) time.Duration

// Config holds the configuration for retry behavior.
type Config struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	backoff      Backoff
	retryIf      func(error) bool
}

// Option is a functional option for configuring retry behavior.
type Option func(*Config)

// WithMaxAttempts sets the total number of attempts, the first call included.
// Default is 3 attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.maxAttempts = n + 1
		}
	}
}

// WithInitialDelay sets the base delay used by the backoff schedule.
// Default is 1 second.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay sets the maximum delay between retries.
// Default is 30 seconds.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithBackoff replaces the delay schedule. Default is LinearBackoff.
func WithBackoff(b Backoff) Option {
	return func(c *Config) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithRetryIf stops retrying as soon as the predicate returns false for an error.
func WithRetryIf(pred func(error) bool) Option {
	return func(c *Config) {
		if pred != nil {
			c.retryIf = pred
		}
	}
}

// LinearBackoff waits attempt * base.
func LinearBackoff(attempt int, base, max time.Duration) time.Duration {
	d := time.Duration(attempt) * base
	if d > max {
		return max
	}
	return d
}

// ExponentialBackoff returns a schedule of base * multiplier^(attempt-1).
func ExponentialBackoff(multiplier float64) Backoff {
	if multiplier <= 0 {
		multiplier = 2.0
	}
	return func(attempt int, base, max time.Duration) time.Duration {
		delay := float64(base) * math.Pow(multiplier, float64(attempt-1))
		if time.Duration(delay) > max {
			return max
		}
		return time.Duration(delay)
	}
}

// defaultConfig returns the default retry configuration.
func defaultConfig() *Config {
	return &Config{
		maxAttempts:  3,
		initialDelay: 1 * time.Second,
		maxDelay:     30 * time.Second,
		backoff:      LinearBackoff,
		retryIf:      func(error) bool { return true },
	}
}

// Do executes fn until it succeeds, the attempts are exhausted, the error is
// not retryable, or ctx is done. Waits between attempts are timer based and
// abort immediately on cancellation.
//
//	err := common.Do(ctx, func() error {
//	    return someAPICall()
//	}, common.WithMaxAttempts(3), common.WithInitialDelay(time.Second))
func Do(ctx context.Context, fn RetryableFunc, opts ...Option) error {
	if fn == nil {
		return errors.New("retry: function cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := cfg.backoff(attempt-1, cfg.initialDelay, cfg.maxDelay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry aborted during backoff (attempt %d/%d): %w", attempt, cfg.maxAttempts, ctx.Err())
			case <-timer.C:
			}
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt-1, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !cfg.retryIf(err) {
			return err
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.maxAttempts, lastErr)
}
