package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxAttempts:   3,
		BackoffFactor: 2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Second,
		Notify: func(err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}

	var calls int
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("backend unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestRetryExhausted(t *testing.T) {
	cfg := Config{MaxAttempts: 3, BackoffFactor: 2, InitialDelay: time.Millisecond}

	var calls int
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errors.New("attempt failed")
	})
	assert.EqualError(t, err, "attempt failed")
	assert.Equal(t, 3, calls)
}

func TestRetryPermanent(t *testing.T) {
	cfg := Config{MaxAttempts: 5, BackoffFactor: 2, InitialDelay: time.Millisecond}
	sentinel := errors.New("bad request")

	var calls int
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetryMaxDelay(t *testing.T) {
	var delays []time.Duration
	cfg := Config{
		MaxAttempts:   4,
		BackoffFactor: 10,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		Notify: func(err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("fail")
	})
	assert.Equal(t, []time.Duration{time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}, delays)
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 10, BackoffFactor: 2, InitialDelay: time.Hour}

	var calls int
	done := make(chan error)
	go func() {
		done <- Do(ctx, cfg, func(ctx context.Context) error {
			calls++
			return errors.New("fail")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop on cancellation")
	}
	assert.Equal(t, 1, calls)
}
