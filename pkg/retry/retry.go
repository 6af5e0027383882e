// Package retry implements bounded retries with exponential backoff and
// jitter for the monitor's external calls: the portal API, the Telegram
// API, and state-store writes.
// No external dependencies - uses only standard library.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// PermanentError marks an error that retrying cannot fix (bad credentials,
// malformed request, missing row). Do stops immediately and surfaces the
// wrapped error.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do will not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is marked permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Config controls the retry loop.
type Config struct {
	// MaxAttempts counts the first try too; 3 means up to 2 retries.
	MaxAttempts int

	// BaseDelay is the pause after the first failure.
	BaseDelay time.Duration

	// MaxDelay caps the grown delay.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts; 1.0 keeps it fixed.
	Multiplier float64

	// Jitter randomizes each delay by up to this fraction either way.
	Jitter float64

	// RetryIf overrides the retry decision. When nil, every error except
	// a Permanent one is retried.
	RetryIf func(error) bool
}

// Retrier executes operations under a retry Config.
type Retrier struct {
	config Config
}

// New creates a Retrier, filling zero config fields with defaults
// (3 attempts, 100ms base, 30s cap, doubling, 10% jitter).
func New(config Config) *Retrier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier < 1.0 {
		config.Multiplier = 2.0
	}
	return &Retrier{config: config}
}

// Do runs op until it succeeds, exhausts the attempt budget, hits a
// permanent error, or the context ends. The returned error is the last
// failure, unwrapped if it was marked permanent.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if r.config.RetryIf != nil && !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(r.delay(attempt)):
		}
	}
}

// delay computes the pause before the next attempt.
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}
	if r.config.Jitter > 0 {
		d += d * r.config.Jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// PortalAPIRetrier covers portal marks and grade-card calls: 3 attempts
// with a fixed 1s pause. The portal fails in short bursts, so spacing
// matters more than growth here. retryIf gates which errors are worth
// another attempt; expired sessions and missing rows are not.
func PortalAPIRetrier(retryIf func(error) bool) *Retrier {
	return New(Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  1.0,
		RetryIf:     retryIf,
	})
}

// TelegramRetrier covers Bot API sends: 5 attempts, 100ms growing to 5s.
func TelegramRetrier() *Retrier {
	return New(Config{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  1.5,
		Jitter:      0.1,
	})
}

// StateStoreRetrier covers monitor-state reads and writes: 3 quick
// attempts so a transient connection blip does not lose a cycle's state.
func StateStoreRetrier() *Retrier {
	return New(Config{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    time.Second,
		Jitter:      0.05,
	})
}
