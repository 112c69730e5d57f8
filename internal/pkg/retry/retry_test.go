package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 5, Constant(0), func(_ context.Context, attempt int) (bool, error) {
		calls++
		return attempt == 2, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_Exhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, Constant(0), func(context.Context, int) (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
}

func TestDo_ErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), 5, Constant(0), func(context.Context, int) (bool, error) {
		calls++
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, 5, Constant(time.Hour), func(context.Context, int) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExponential_Capped(t *testing.T) {
	b := Exponential(10*time.Millisecond, 100*time.Millisecond)
	for attempt := 0; attempt < 10; attempt++ {
		d := b(attempt)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
	}
	assert.GreaterOrEqual(t, b(2), 40*time.Millisecond)
}
