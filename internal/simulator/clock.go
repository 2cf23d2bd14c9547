package simulator

import (
	"context"
	"time"
)

// Clock abstracts wall-clock access so tests can replay exact timelines.
type Clock interface {
	Now() time.Time
}

// Sleeper abstracts pacing waits. Implementations must respect context
// cancellation so the account loop can stop between steps.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

type systemSleeper struct{}

func (systemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemSleeper returns a context-aware Sleeper backed by time.Timer.
func SystemSleeper() Sleeper { return systemSleeper{} }
