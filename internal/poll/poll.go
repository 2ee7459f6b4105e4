// Package poll provides the interval primitives shared by the cache
// refresher and the confirmation pollers: a cancellable recurring loop
// and a deadline-bounded poll.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrDeadline is returned by Until when the deadline elapses before the
// polled condition is met.
var ErrDeadline = errors.New("poll: deadline elapsed")

// Every runs fn once per interval until fn returns false or ctx is done.
// The first run happens one interval after the call, not immediately.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !fn(ctx) {
				return
			}
		}
	}
}

// Until runs fn once immediately and then once per interval until fn
// reports done, fn returns an error, the deadline elapses (ErrDeadline),
// or ctx is cancelled. The deadline also bounds work inside fn through
// the derived context.
func Until(ctx context.Context, interval, deadline time.Duration, fn func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			// A failure caused by the expiring context is a deadline,
			// not a condition error.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrDeadline
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrDeadline
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
