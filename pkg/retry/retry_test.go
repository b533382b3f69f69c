package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	r := New(Config{MaxAttempts: 3, InitialDelay: time.Millisecond, JitterFactor: 0})

	calls := 0
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	r := New(Config{MaxAttempts: 5, InitialDelay: time.Millisecond, JitterFactor: 0})

	calls := 0
	wantErr := errors.New("ordering violated")
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(wantErr)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls, "permanent errors are not retried")
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	r := New(Config{MaxAttempts: 2, InitialDelay: time.Millisecond, JitterFactor: 0})

	calls := 0
	wantErr := errors.New("still failing")
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, calls)
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	r := New(Config{MaxAttempts: 10, InitialDelay: time.Hour, JitterFactor: 0})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
