package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 3, Backoff: time.Millisecond}, func() error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Do(context.Background(), Config{Attempts: 3, Backoff: time.Millisecond}, func() error {
		calls++
		return boom
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// The final error wraps the last failure
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 3, Backoff: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PredicateStopsRetries(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	err := Do(context.Background(), Config{
		Attempts: 5,
		Backoff:  time.Millisecond,
		RetryIf:  func(err error) bool { return !errors.Is(err, fatal) },
	}, func() error {
		calls++
		return fatal
	})

	// A rejected error comes back unwrapped, without burning attempts
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- Do(ctx, Config{Attempts: 3, Backoff: time.Minute}, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	// Let the first attempt fail, then cancel while it waits to retry
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestDo_ZeroConfigUsesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Attempts)
	assert.Equal(t, time.Second, cfg.Backoff)
}
