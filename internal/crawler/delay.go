package crawler

import (
	"context"
	"math/rand/v2"
	"time"
)

// Sleeper pauses for d. It returns early with ctx's error when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
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

// randomDelay samples uniformly from [lo, hi]. A cap > 0 bounds both ends.
func randomDelay(r *rand.Rand, lo, hi, limit time.Duration) time.Duration {
	if limit > 0 {
		lo = min(lo, limit)
		hi = min(hi, limit)
	}
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Int64N(int64(hi-lo)+1))
}
