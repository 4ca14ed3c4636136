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
	err := Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	},
		WithMaxRetries(5),
		WithInitialDelay(time.Millisecond),
	)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	wantErr := errors.New("still broken")
	err := Do(context.Background(), func() error {
		calls++
		return wantErr
	},
		WithMaxRetries(2),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2*time.Millisecond),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestDo_FatalNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return Fatal(errors.New("bad credentials"))
	},
		WithMaxRetries(5),
		WithInitialDelay(time.Millisecond),
	)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error {
		return errors.New("transient")
	},
		WithMaxRetries(5),
		WithInitialDelay(time.Minute),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(errors.New("plain")))
	assert.True(t, IsFatal(Fatal(errors.New("fatal"))))
	assert.True(t, IsFatal(errors.Join(errors.New("outer"), Fatal(errors.New("inner")))))
	assert.Nil(t, Fatal(nil))
}
