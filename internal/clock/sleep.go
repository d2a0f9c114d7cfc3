// Package clock provides context-aware pauses for periodic maintenance
// loops.
package clock

import (
	"context"
	"time"
)

// SleepWithContext blocks for d or until the context is canceled, whichever
// comes first. It returns the context error on early wakeup and nil after a
// full sleep. Non-positive durations return immediately.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
