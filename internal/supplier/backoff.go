package supplier

import (
	"context"
	"errors"
	"time"
)

// Backoff retries an adapter call on ErrUnavailable with exponentially
// growing delays. Auth errors and business rejections are returned as-is on
// the first occurrence.
type Backoff struct {
	Base        time.Duration
	Cap         time.Duration
	MaxAttempts int
}

// Delay returns the pause before attempt n (n starts at 1; no pause before
// the first attempt).
func (b Backoff) Delay(n int) time.Duration {
	if n <= 1 {
		return 0
	}
	d := b.Base << (n - 2)
	if d > b.Cap || d <= 0 {
		return b.Cap
	}
	return d
}

func (b Backoff) Retry(ctx context.Context, fn func(context.Context) error) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for n := 1; n <= attempts; n++ {
		if d := b.Delay(n); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
	}
	return err
}
