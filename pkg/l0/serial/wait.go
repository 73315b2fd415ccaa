package serial

import (
	"context"
	"time"
)

// DefaultPollInterval is the spin interval of a Waiter.
const DefaultPollInterval = time.Millisecond

// Waiter spins until a condition holds.
type Waiter struct {
	// Poll is the interval between checks.
	Poll time.Duration
	// Timeout bounds the wait, zero waits forever.
	Timeout time.Duration
}

// Until blocks until cond returns true, the timeout expires (ErrTimeout)
// or ctx is done.
func (w Waiter) Until(ctx context.Context, cond func() bool) error {
	if cond() {
		return nil
	}
	poll := w.Poll
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	var deadline <-chan time.Time
	if w.Timeout > 0 {
		timer := time.NewTimer(w.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			if cond() {
				return nil
			}
			return ErrTimeout
		case <-ticker.C:
			if cond() {
				return nil
			}
		}
	}
}
