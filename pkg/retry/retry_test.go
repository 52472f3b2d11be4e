package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errFlaky = errors.New("flaky")

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := New(WithInitialDelay(time.Millisecond)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errFlaky)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnPlainError(t *testing.T) {
	calls := 0
	err := New(WithInitialDelay(time.Millisecond)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDiscordRetrier_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := DiscordRetrier().Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return Retryable(errFlaky)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := New(WithInitialDelay(time.Millisecond), WithMaxAttempts(2)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(errFlaky)
	})

	assert.Equal(t, errFlaky, err)
	assert.Equal(t, 2, calls)
}

func TestConflictRetrier_UsesPredicate(t *testing.T) {
	calls := 0
	r := ConflictRetrier(func(err error) bool { return errors.Is(err, errFlaky) })

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return errFlaky
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Do(ctx, func(ctx context.Context) error {
		t.Fatal("operation must not run")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
