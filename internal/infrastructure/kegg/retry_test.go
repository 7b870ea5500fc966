package kegg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleeps replaces real waiting with a log of requested durations.
func recordSleeps(p *RetryPolicy) *[]time.Duration {
	var waits []time.Duration
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func TestNewRetryPolicy_Schedule(t *testing.T) {
	p := NewRetryPolicy(4, 200*time.Millisecond, 0)

	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 800*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 1600*time.Millisecond, p.Backoff(4))
	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 1600*time.Millisecond, p.Backoff(9))
}

func TestNewRetryPolicy_StrictlyIncreasing(t *testing.T) {
	p := NewRetryPolicy(6, 50*time.Millisecond, 0)
	for a := 2; a <= 6; a++ {
		assert.Greater(t, p.Backoff(a), p.Backoff(a-1))
	}
}

func TestNewRetryPolicy_CapKeepsIncreasing(t *testing.T) {
	p := NewRetryPolicy(3, 20*time.Second, 30*time.Second)
	assert.Equal(t, 20*time.Second, p.Backoff(1))
	assert.Equal(t, 30*time.Second, p.Backoff(2))
	assert.Equal(t, 50*time.Second, p.Backoff(3))

	p = NewRetryPolicy(10, 200*time.Millisecond, 30*time.Second)
	assert.Equal(t, 30*time.Second, p.Backoff(9))
	assert.Equal(t, 30*time.Second+200*time.Millisecond, p.Backoff(10))
	for a := 2; a <= 10; a++ {
		assert.Greater(t, p.Backoff(a), p.Backoff(a-1), "attempt %d", a)
	}
}

func TestNewRetryPolicy_ZeroPauseRaisedToFloor(t *testing.T) {
	p := NewRetryPolicy(0, 0, 0)
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, time.Millisecond, p.Backoff(1))

	p = NewRetryPolicy(3, 0, 30*time.Second)
	assert.Equal(t, time.Millisecond, p.Backoff(1))
	assert.Equal(t, 2*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 4*time.Millisecond, p.Backoff(3))
}

func TestRetryPolicy_Do_StopsOnSuccess(t *testing.T) {
	p := NewRetryPolicy(5, 10*time.Millisecond, 0)
	waits := recordSleeps(p)

	calls := 0
	err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}, *waits)
}

func TestRetryPolicy_Do_ExactBound(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 7} {
		p := NewRetryPolicy(limit, time.Millisecond, 0)
		recordSleeps(p)

		calls := 0
		last := errors.New("still failing")
		err := p.Do(context.Background(), func(context.Context, int) error {
			calls++
			return last
		})

		assert.Equal(t, limit, calls)
		assert.Same(t, last, err)
	}
}

func TestRetryPolicy_Do_Permanent(t *testing.T) {
	p := NewRetryPolicy(5, 0, 0)
	root := errors.New("gone")

	calls := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return backoff.Permanent(root)
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, root, err)
}

func TestRetryPolicy_Do_ContextCanceled(t *testing.T) {
	p := NewRetryPolicy(5, time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(context.Context, int) error {
			t.Error("fn must not run before the first wait ends")
			return nil
		})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestRetryPolicy_Do_CanceledAfterFailureKeepsCause(t *testing.T) {
	p := NewRetryPolicy(3, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cause := errors.New("503")

	err := p.Do(ctx, func(context.Context, int) error {
		cancel()
		return cause
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, cause)
}
