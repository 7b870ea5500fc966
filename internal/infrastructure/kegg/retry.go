package kegg

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy runs an operation a bounded number of times. The wait before
// attempt n is Backoff(n); attempt 1 waits too, so request pacing and retry
// backoff share one schedule.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration

	// Sleep blocks for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// minPause is the smallest first wait. A zero pause would make every wait
// zero and the schedule flat.
const minPause = time.Millisecond

// NewRetryPolicy builds an exponential, jitter-free schedule in which every
// wait is strictly longer than the one before: attempt 1 waits pause and each
// later attempt doubles it. Once doubling reaches maxBackoff (when positive)
// the waits grow linearly by pause instead. pause is raised to one
// millisecond when smaller.
func NewRetryPolicy(maxAttempts int, pause, maxBackoff time.Duration) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if pause < minPause {
		pause = minPause
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = pause
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	if maxBackoff > 0 {
		b.MaxInterval = maxBackoff
	} else {
		b.MaxInterval = time.Duration(1<<63 - 1)
	}
	b.Reset()

	schedule := make([]time.Duration, maxAttempts)
	for i := range schedule {
		next := b.NextBackOff()
		if i > 0 && next <= schedule[i-1] {
			next = schedule[i-1] + pause
		}
		schedule[i] = next
	}

	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			switch {
			case attempt < 1:
				return 0
			case attempt > len(schedule):
				return schedule[len(schedule)-1]
			default:
				return schedule[attempt-1]
			}
		},
		Sleep: sleepContext,
	}
}

// Do calls fn until it succeeds, returns a backoff.Permanent error, or
// MaxAttempts calls have been made. It returns the last error from fn, or the
// context error when ctx ends while waiting.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			if lastErr != nil {
				return stderrors.Join(err, lastErr)
			}
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		var permanent *backoff.PermanentError
		if stderrors.As(err, &permanent) {
			return permanent.Err
		}
		lastErr = err
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
