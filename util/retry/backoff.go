package retry

import (
	"context"
	"time"
)

var sleepFunc = sleep

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BackoffAndSleep waits (backoffMultiplier*retries)+1 units of durationType after
// the attempt numbered retries, counting from zero. It returns the context error
// if ctx ends first.
func BackoffAndSleep(ctx context.Context, retries int, backoffMultiplier int, durationType time.Duration) error {
	units := time.Duration(backoffMultiplier*retries + 1)

	return sleepFunc(ctx, units*durationType)
}
