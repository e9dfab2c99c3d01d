// Package retry runs an operation until it succeeds, waiting an exponentially
// growing delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBackoffFactor = 2.0
	DefaultInitialDelay  = time.Second
	DefaultMaxDelay      = time.Minute
)

type Config struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts   int
	BackoffFactor float64
	InitialDelay  time.Duration
	MaxDelay      time.Duration

	// Notify is called before each wait with the error and the delay.
	Notify func(err error, delay time.Duration)
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:   DefaultMaxAttempts,
		BackoffFactor: DefaultBackoffFactor,
		InitialDelay:  DefaultInitialDelay,
		MaxDelay:      DefaultMaxDelay,
	}
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanent reports whether an error was marked with Permanent.
func IsPermanent(err error) bool {
	var permanent *backoff.PermanentError
	return errors.As(err, &permanent)
}

func (c Config) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialDelay
	b.Multiplier = c.BackoffFactor
	b.RandomizationFactor = 0
	b.MaxInterval = c.MaxDelay
	b.MaxElapsedTime = 0
	if b.InitialInterval <= 0 {
		b.InitialInterval = DefaultInitialDelay
	}
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	if b.MaxInterval <= 0 {
		b.MaxInterval = DefaultMaxDelay
	}
	b.Reset()

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do calls op until it returns nil, up to MaxAttempts times. The last error is
// returned when attempts are exhausted, a permanent error is returned at once
// and a cancelled context interrupts the wait.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	operation := func() error {
		return op(ctx)
	}
	var notify backoff.Notify
	if cfg.Notify != nil {
		notify = backoff.Notify(cfg.Notify)
	}
	err := backoff.RetryNotify(operation, cfg.backOff(ctx), notify)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}
