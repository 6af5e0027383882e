package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	r := New(fastConfig(5))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_ExhaustsAttemptBudget(t *testing.T) {
	r := New(fastConfig(3))
	boom := errors.New("still down")

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestRetrier_PermanentErrorStopsImmediately(t *testing.T) {
	r := New(fastConfig(5))
	bad := errors.New("bad credentials")

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(bad)
	})

	require.Equal(t, bad, err, "permanent errors surface unwrapped")
	assert.Equal(t, 1, calls)
}

func TestRetrier_RetryIfVetoesRetry(t *testing.T) {
	noRetry := errors.New("do not retry this")
	cfg := fastConfig(5)
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, noRetry) }
	r := New(cfg)

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return noRetry
	})

	require.ErrorIs(t, err, noRetry)
	assert.Equal(t, 1, calls)
}

func TestRetrier_CancelledContextSkipsOperation(t *testing.T) {
	r := New(fastConfig(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		return errors.New("should not run")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestPermanent_NilStaysNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestIsPermanent_SeesThroughWrapping(t *testing.T) {
	err := Permanent(errors.New("gone"))
	wrapped := errors.Join(errors.New("context"), err)

	assert.True(t, IsPermanent(err))
	assert.True(t, IsPermanent(wrapped))
	assert.False(t, IsPermanent(errors.New("plain")))
}
